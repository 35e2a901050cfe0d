package compilenet

import (
	"context"
	"fmt"

	"github.com/getsentry/sentry-go"
)

// InitSentry initializes the global Sentry client for this process, if
// dsn is non-empty. Unbound variable/label errors are ordinary error
// returns and are never reported; only panics recovered by
// RecoveringHandler (malformed input the reader/compiler refuse to
// tolerate) are, since those indicate either a client sending genuinely
// broken bytecode-adjacent input or a bug in the compiler itself.
func InitSentry(dsn string) error {
	if dsn == "" {
		return nil
	}
	return sentry.Init(sentry.ClientOptions{Dsn: dsn})
}

// RecoveringHandler wraps next so that a panic escaping the compiler (a
// precondition violation per spec category 1/3) is reported to Sentry
// and converted into an ordinary error response instead of taking the
// whole connection down.
func RecoveringHandler(next Handler) Handler {
	return func(ctx context.Context, source string) (result uint64, err error) {
		defer func() {
			if r := recover(); r != nil {
				sentry.CurrentHub().Recover(r)
				err = fmt.Errorf("compiler panic: %v", r)
			}
		}()
		return next(ctx, source)
	}
}
