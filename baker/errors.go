package baker

import (
	"fmt"

	"kiln/ast"
)

type Kind int

const (
	DuplicateParameter Kind = iota + 1
	Malformed
	NotExecutable
	Unresolved
)

func (k Kind) String() string {
	switch k {
	case DuplicateParameter:
		return "duplicate parameter"
	case Malformed:
		return "malformed"
	case NotExecutable:
		return "not executable"
	case Unresolved:
		return "unresolved"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is returned for every form the baker rejects. Expr is the offending
// subexpression.
type Error struct {
	Kind Kind
	Expr ast.Expr
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func newError(expr ast.Expr, kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Expr: expr, Msg: fmt.Sprintf(format, args...)}
}
