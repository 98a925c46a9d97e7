package asmgen

import (
	"fmt"

	"kiln/ast"
	"kiln/code"
)

// lambdaCompiler emits the code of one function.
//
// A function has two entry points. The label itself is called with a dummy
// word below the arguments; the prologue moves the return address into
// that word. The .continue entry expects the return address already below
// the arguments and is the target of tail calls. bindings counts the stack
// slots owned by the running function that are dead once it tail calls or
// returns, offset the words pushed on top of them by the code being built.
type lambdaCompiler struct {
	compiler     *Compiler
	label        string
	counter      int
	instructions code.Instructions
}

func (lc *lambdaCompiler) emit(op code.Opcode, operands ...string) {
	lc.instructions = append(lc.instructions, code.Make(op, operands...))
}

func (lc *lambdaCompiler) defineLabel(name string) {
	lc.instructions = append(lc.instructions, code.Label(name))
}

func (lc *lambdaCompiler) blank() {
	lc.emit(code.OpBlank)
}

func (lc *lambdaCompiler) unique() string {
	result := fmt.Sprintf("%06d", lc.counter)
	lc.counter++
	return result
}

func (lc *lambdaCompiler) compile(expr ast.Expr) error {
	var body ast.Expr
	var bindings int

	switch expr := expr.(type) {
	case *ast.Lambda:
		if expr.Arity.IsVariadic() {
			return newError(expr, "%s: variadic lambda can not be compiled", expr)
		}
		body, bindings = expr.Body, int(expr.Arity)
	case *ast.Closure:
		body, bindings = expr.Body, expr.Bindings()
	default:
		return newError(expr, "%s: not a lambda", expr)
	}

	if isGlobal(lc.label) {
		lc.emit(code.OpGlobal, lc.label)
		lc.emit(code.OpGlobal, code.Continue(lc.label))
	}
	lc.defineLabel(lc.label)

	lc.emit(code.OpPop, code.RAX)
	lc.emit(code.OpMov, code.Stack(bindings), code.RAX)
	lc.defineLabel(".continue")

	return lc.emitFinal(body, bindings)
}
