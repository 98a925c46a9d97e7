// Package object holds the global symbol table and the native builtins
// every environment starts with.
package object

import (
	"fmt"

	"kiln/ast"
)

// Error is returned by builtins that reject their arguments.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(format string, a ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, a...)}
}

// Display is the form print writes: strings without quotes, everything
// else in its printed form.
func Display(e ast.Expr) string {
	if s, ok := e.(*ast.Str); ok {
		return s.Value
	}
	return e.String()
}

// Bool converts a Go truth value into #t or the empty list.
func Bool(b bool) ast.Expr {
	if b {
		return &ast.True{}
	}
	return ast.Nil()
}
