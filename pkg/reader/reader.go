// Package reader is a pure, recursive-descent parser over a source
// string, producing an ast.Node tree. It performs no I/O and keeps no
// state beyond a cursor into the input.
package reader

import (
	"fmt"

	"github.com/ascrivener/ghuloum/pkg/ast"
)

// maxAtomLen bounds how many characters an atom reads before
// NUL-terminating, matching the original reader's fixed-size buffer.
const maxAtomLen = 32

// reader walks a byte string with a mutable position cursor.
type reader struct {
	input string
	pos   int
}

// Read parses a single top-level expression from src. It returns an
// error ("no tree") if the top-level character is not recognized; this
// is the one recoverable failure mode the reader defines. Anything past
// the first expression is ignored, matching the original's single-shot
// Reader_read.
func Read(src string) (*ast.Node, error) {
	r := &reader{input: src}
	node := r.readExpr()
	if node == nil {
		return nil, fmt.Errorf("reader: no tree")
	}
	return node, nil
}

func (r *reader) peek() byte {
	if r.pos >= len(r.input) {
		return 0
	}
	return r.input[r.pos]
}

func (r *reader) advance() {
	r.pos++
}

func isAtomChar(c byte) bool {
	return isAlpha(c) || c == '+' || c == '-'
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

func (r *reader) skipSpace() {
	for isSpace(r.peek()) {
		r.advance()
	}
}

// readExpr reads one expression: a number, an atom, a list, or nil on an
// unrecognized leading character (including end of input).
func (r *reader) readExpr() *ast.Node {
	r.skipSpace()
	c := r.peek()
	switch {
	case isDigit(c):
		return r.readNumber()
	case isAtomChar(c):
		return r.readAtom()
	case c == '(':
		r.advance()
		return r.readList()
	default:
		return nil
	}
}

// readNumber parses a non-negative decimal fixnum. Leading sign is not
// supported here: a leading '-' is handled as an atom character instead,
// matching the original reader exactly.
func (r *reader) readNumber() *ast.Node {
	value := int32(0)
	for isDigit(r.peek()) {
		value = value*10 + int32(r.peek()-'0')
		r.advance()
	}
	return ast.NewFixnum(value)
}

// readAtom reads up to maxAtomLen characters into a fresh atom. After
// the first character, digits, '>' and '?' also continue the atom, so
// primitive names such as add1, integer->char and zero? read whole.
func (r *reader) readAtom() *ast.Node {
	buf := make([]byte, 0, maxAtomLen)
	for len(buf) < maxAtomLen {
		c := r.peek()
		if !(isAtomChar(c) || isDigit(c) || c == '>' || c == '?') {
			break
		}
		buf = append(buf, r.peek())
		r.advance()
	}
	return ast.NewAtom(string(buf))
}

// readList builds a right-nested cons chain ending in ast.Nil, reading
// elements until ')'.
func (r *reader) readList() *ast.Node {
	r.skipSpace()
	if r.peek() == ')' {
		r.advance()
		return ast.Nil
	}
	car := r.readExpr()
	if car == nil {
		panic("reader: malformed list")
	}
	cdr := r.readList()
	return ast.NewCons(car, cdr)
}
