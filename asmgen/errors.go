package asmgen

import (
	"fmt"
	"strings"

	"kiln/ast"
)

// Error is a compile time failure. Expr is the expression that could not be
// compiled.
type Error struct {
	Target string
	Expr   ast.Expr
	Msg    string
}

func (e *Error) Error() string {
	return e.Msg
}

func newError(expr ast.Expr, format string, args ...any) *Error {
	return &Error{Expr: expr, Msg: fmt.Sprintf(format, args...)}
}

func joinErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}
