package evaluator

import "fmt"

// Error is a run time failure of the reference evaluator or of a top level
// instruction.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(format string, a ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, a...)}
}
