// Package cerrors carries the compiler's two recoverable user-error
// categories (spec §7 category 2: unbound variable, unbound label) as
// wrapped errors with a stack trace, generalizing the teacher's
// pkg/errors.ProtocolError from bare fmt.Errorf onto
// github.com/cockroachdb/errors.
package cerrors

import "github.com/cockroachdb/errors"

// CompileError is returned by the compiler for a recoverable user
// mistake found while compiling. It is never used for precondition
// violations (malformed trees, out-of-range encodings): those remain
// panics, per spec §7 category 1.
type CompileError struct {
	Message string
	cause   error
}

func (e *CompileError) Error() string {
	return e.Message
}

func (e *CompileError) Unwrap() error {
	return e.cause
}

// Unbound builds a CompileError for an unbound variable or label
// reference, carrying a stack trace for verbose diagnostics.
func Unbound(kind, name string) *CompileError {
	cause := errors.Newf("unbound %s: `%s'", kind, name)
	return &CompileError{Message: cause.Error(), cause: cause}
}

// IsCompileError reports whether err is a CompileError, mirroring the
// teacher's IsProtocolError predicate.
func IsCompileError(err error) bool {
	_, ok := err.(*CompileError)
	return ok
}
