package asmgen

import (
	"kiln/ast"
	"kiln/baker"
	"kiln/code"
)

// slot addresses the binding at depth with offset words pushed on top
func slot(offset, depth int) string {
	return code.Stack(offset + depth - 1)
}

// isInline reports whether a call to function splices its body into the
// caller instead of jumping to a label.
func isInline(function ast.Expr) bool {
	switch function.(type) {
	case *ast.Lambda, *ast.Closure:
		return true
	}
	return false
}

// reorder drops the dead slots lying below the live slots on top of the
// stack.
func (lc *lambdaCompiler) reorder(dead, live int) {
	if dead == 0 {
		return
	}

	regs := code.ReorderRegisters
	if live <= len(regs) {
		for i := 0; i < live; i++ {
			lc.emit(code.OpPop, regs[i])
		}
		lc.emit(code.OpAdd, code.RSP, code.Words(dead))
		for i := live - 1; i >= 0; i-- {
			lc.emit(code.OpPush, regs[i])
		}
		return
	}

	lc.emit(code.OpMov, code.ECX, code.Imm(live))
	lc.emit(code.OpLea, code.RSI, code.Stack(live-1))
	lc.emit(code.OpLea, code.RDI, code.Stack(dead+live-1))
	lc.emit(code.OpStd)
	lc.emit(code.OpRep, "movsq")
	lc.emit(code.OpCld)
	lc.emit(code.OpAdd, code.RSP, code.Words(dead))
}

func (lc *lambdaCompiler) drop(n int) {
	if n > 0 {
		lc.emit(code.OpAdd, code.RSP, code.Words(n))
	}
}

// leave returns from the function once the value is in rax.
func (lc *lambdaCompiler) leave(bindings int) {
	lc.reorder(bindings, 0)
	lc.emit(code.OpRet)
}

// transfer calls target, or in final position drops the frame and jumps to
// it so that target returns to our caller.
func (lc *lambdaCompiler) transfer(target string, final bool, bindings int) {
	if final {
		lc.reorder(bindings, 0)
		lc.emit(code.OpJmp, target)
		return
	}
	lc.emit(code.OpCall, target)
}

func (lc *lambdaCompiler) applyDynamic(count int, final bool) {
	lc.emit(code.OpMov, code.RCX, code.Imm(count))
	if final {
		lc.compiler.extern("__apply.continue")
		lc.emit(code.OpJmp, code.Continue("__apply"))
		return
	}
	lc.compiler.extern("__apply")
	lc.emit(code.OpCall, "__apply")
}

// emitFinal emits expr in tail position: the code never falls through, it
// returns or jumps to a function that returns to our caller.
func (lc *lambdaCompiler) emitFinal(expr ast.Expr, bindings int) error {
	if ast.IsAtom(expr) {
		return lc.emitAtom(expr, true, 0, bindings)
	}

	list := expr.(*ast.List)
	function := list.Items[0]
	params := list.Items[1:]

	if sym, ok := function.(*ast.Symbol); ok {
		switch sym.Name {
		case "if":
			return lc.emitIf(list, true, 0, bindings)

		case "eval":
			if len(params) != 1 {
				return newError(list, "eval expects exactly one parameter")
			}
			lc.compiler.extern("__eval")
			if err := lc.emitExpr(params[0], 0, 0); err != nil {
				return err
			}
			lc.transfer("__eval", true, bindings)
			return nil

		case "quote":
			if len(params) != 1 {
				return newError(list, "quote expects exactly one parameter")
			}
			return lc.emitValue(params[0], "", true, 0, bindings)
		}
	}

	count := len(params)

	// parameter take-over: leading arguments that already sit in the
	// bottom slots of our frame stay where they are
	if !isInline(function) {
		for bindings > 0 && len(params) > 0 {
			ref, ok := params[0].(*ast.LocalRef)
			if !ok || ref.Depth != bindings {
				break
			}
			bindings--
			params = params[1:]
		}
	}

	offset := 0
	for _, p := range params {
		if err := lc.emitExpr(p, 0, offset); err != nil {
			return err
		}
		lc.emit(code.OpPush, code.RAX)
		offset++
	}

	switch fn := function.(type) {
	case *ast.LocalRef:
		lc.emit(code.OpMov, code.RAX, slot(offset, fn.Depth))
		lc.reorder(bindings, len(params))
		lc.applyDynamic(count, true)
		return nil

	case *ast.List:
		if err := lc.emitExpr(fn, 0, offset); err != nil {
			return err
		}
		lc.reorder(bindings, len(params))
		lc.applyDynamic(count, true)
		return nil

	case *ast.Lambda, *ast.Closure:
		body, slots, err := lc.emitInline(fn, count, offset)
		if err != nil {
			return err
		}
		return lc.emitFinal(body, bindings+slots)
	}

	label, arity, err := lc.callTarget(function, count)
	if err != nil {
		return err
	}
	lc.reorder(bindings, len(params))
	if arity.IsVariadic() {
		lc.emit(code.OpMov, code.RCX, code.Imm(count))
	}
	lc.emit(code.OpJmp, code.Continue(label))
	return nil
}

// emitExpr emits expr in non-final position: the value ends up in rax and
// the bindings slots on top of the stack are dropped afterwards.
func (lc *lambdaCompiler) emitExpr(expr ast.Expr, bindings, offset int) error {
	if ast.IsAtom(expr) {
		if err := lc.emitAtom(expr, false, offset, 0); err != nil {
			return err
		}
		lc.drop(bindings)
		return nil
	}

	list := expr.(*ast.List)
	function := list.Items[0]
	params := list.Items[1:]

	if sym, ok := function.(*ast.Symbol); ok {
		switch sym.Name {
		case "if":
			return lc.emitIf(list, false, offset, bindings)

		case "eval":
			if len(params) != 1 {
				return newError(list, "eval expects exactly one parameter")
			}
			lc.compiler.extern("__eval")
			if err := lc.emitExpr(params[0], 0, offset); err != nil {
				return err
			}
			lc.emit(code.OpCall, "__eval")
			lc.drop(bindings)
			return nil

		case "quote":
			if len(params) != 1 {
				return newError(list, "quote expects exactly one parameter")
			}
			if err := lc.emitValue(params[0], "", false, offset, 0); err != nil {
				return err
			}
			lc.drop(bindings)
			return nil
		}
	}

	count := len(params)

	// everything but an inline body needs a word for the return address
	if !isInline(function) {
		lc.emit(code.OpPush, code.RAX)
		offset++
	}

	for _, p := range params {
		if err := lc.emitExpr(p, 0, offset); err != nil {
			return err
		}
		lc.emit(code.OpPush, code.RAX)
		offset++
	}

	switch fn := function.(type) {
	case *ast.LocalRef:
		lc.emit(code.OpMov, code.RAX, slot(offset, fn.Depth))
		lc.applyDynamic(count, false)
		lc.drop(bindings)
		return nil

	case *ast.List:
		if err := lc.emitExpr(fn, 0, offset); err != nil {
			return err
		}
		lc.applyDynamic(count, false)
		lc.drop(bindings)
		return nil

	case *ast.Lambda, *ast.Closure:
		body, slots, err := lc.emitInline(fn, count, offset)
		if err != nil {
			return err
		}
		return lc.emitExpr(body, bindings+slots, 0)
	}

	label, arity, err := lc.callTarget(function, count)
	if err != nil {
		return err
	}
	if arity.IsVariadic() {
		lc.emit(code.OpMov, code.RCX, code.Imm(count))
	}
	lc.emit(code.OpCall, label)
	lc.drop(bindings)
	return nil
}

// emitInline prepares the frame of a lambda applied in place, its count
// arguments already pushed. A closure template also gets copies of the
// slots it captures pushed on top. It returns the body to emit and the
// number of slots the body owns.
func (lc *lambdaCompiler) emitInline(function ast.Expr, count, offset int) (ast.Expr, int, error) {
	if closure, ok := function.(*ast.Closure); ok && closure.IsCaptured() {
		lambda, err := baker.Resolve(closure)
		if err != nil {
			return nil, 0, err
		}
		function = lambda
	}

	var arity ast.Arity
	var body ast.Expr
	var captures []int

	switch fn := function.(type) {
	case *ast.Lambda:
		arity, body = fn.Arity, fn.Body
	case *ast.Closure:
		arity, body, captures = fn.Arity, fn.Body, fn.Captures
	}

	if arity.IsVariadic() {
		return nil, 0, newError(function, "%s: variadic lambda not allowed in local binding", function)
	}
	if !arity.Matches(count) {
		return nil, 0, newError(function, "%s: expects %d parameter but got %d", function, arity, count)
	}

	for _, depth := range captures {
		lc.emit(code.OpMov, code.RAX, slot(offset, depth))
		lc.emit(code.OpPush, code.RAX)
		offset++
	}

	return body, count + len(captures), nil
}

// callTarget resolves a static call to the label of its code and checks
// the argument count.
func (lc *lambdaCompiler) callTarget(function ast.Expr, count int) (string, ast.Arity, error) {
	var label string
	var arity ast.Arity
	var err error

	switch fn := function.(type) {
	case *ast.Symbol:
		label, arity, err = lc.compiler.compileSymbol(fn.Name)
	case *ast.Builtin:
		label, arity, err = lc.compiler.compileExpression(fn, "")
	default:
		return "", 0, newError(function, "%s: not executable", function)
	}
	if err != nil {
		return "", 0, err
	}

	if !arity.Matches(count) {
		return "", 0, newError(function, "%s: expects %d parameter but got %d", function, arity, count)
	}
	return label, arity, nil
}

func (lc *lambdaCompiler) emitIf(list *ast.List, final bool, offset, bindings int) error {
	if list.Len() != 4 {
		return newError(list, "if expects exactly 3 parameters")
	}
	cond, then, otherwise := list.Items[1], list.Items[2], list.Items[3]

	lc.compiler.extern("__true")
	prefix := ".if_" + lc.unique() + "_"

	if err := lc.emitExpr(cond, 0, offset); err != nil {
		return err
	}
	lc.emit(code.OpCall, "__true")
	lc.emit(code.OpJc, prefix+"false")
	lc.blank()

	if final {
		if err := lc.emitFinal(then, bindings); err != nil {
			return err
		}
		lc.blank()
		lc.defineLabel(prefix + "false")
		return lc.emitFinal(otherwise, bindings)
	}

	if err := lc.emitExpr(then, bindings, offset); err != nil {
		return err
	}
	lc.emit(code.OpJmp, prefix+"end")
	lc.blank()
	lc.defineLabel(prefix + "false")
	if err := lc.emitExpr(otherwise, bindings, offset); err != nil {
		return err
	}
	lc.blank()
	lc.defineLabel(prefix + "end")
	return nil
}

// emitAtom emits an atom in code position: symbols name global values,
// local references read the stack.
func (lc *lambdaCompiler) emitAtom(expr ast.Expr, final bool, offset, bindings int) error {
	switch e := expr.(type) {
	case *ast.Symbol:
		value, err := lc.compiler.lookup(e.Name)
		if err != nil {
			return err
		}
		return lc.emitValue(value, e.Name, final, offset, bindings)

	case *ast.LocalRef:
		lc.emit(code.OpMov, code.RAX, slot(offset, e.Depth))
		if final {
			lc.leave(bindings)
		}
		return nil
	}

	return lc.emitValue(expr, "", final, offset, bindings)
}

// emitValue builds a runtime value for a constant. name labels the code of
// a function value bound to a global symbol.
func (lc *lambdaCompiler) emitValue(value ast.Expr, name string, final bool, offset, bindings int) error {
	switch v := value.(type) {
	case *ast.Integer:
		lc.compiler.extern("__mem_int")
		if final {
			lc.reorder(bindings, 0)
		}
		lc.emit(code.OpMov, code.RAX, code.Imm64(v.Value))
		if final {
			lc.emit(code.OpJmp, "__mem_int")
		} else {
			lc.emit(code.OpCall, "__mem_int")
		}

	case *ast.Str:
		lc.allocate("__mem_string", v.Value, final, bindings)

	case *ast.Symbol:
		lc.allocate("__mem_symbol", v.Name, final, bindings)

	case *ast.True:
		lc.emit(code.OpMov, code.AL, code.TypeTrue)
		lc.emit(code.OpShl, code.RAX, code.ShiftType)
		if final {
			lc.leave(bindings)
		}

	case *ast.List:
		if v.IsEmpty() {
			lc.emit(code.OpXor, code.RAX, code.RAX)
			if final {
				lc.leave(bindings)
			}
			return nil
		}
		return lc.emitList(v, final, offset, bindings)

	case *ast.Lambda, *ast.Closure, *ast.Builtin:
		return lc.materialize(v, name, final, offset, bindings)

	default:
		return newError(value, "can't compile atom: %s", value)
	}

	return nil
}

// allocate builds a string-like value from an interned byte sequence.
func (lc *lambdaCompiler) allocate(primitive, text string, final bool, bindings int) {
	label := lc.compiler.stringLabel(text)
	lc.compiler.extern(primitive)

	if final {
		lc.reorder(bindings, 0)
	}
	lc.emit(code.OpMov, code.RSI, label)
	lc.emit(code.OpMov, code.RBX, code.Imm(len(text)))
	if final {
		lc.emit(code.OpJmp, primitive)
	} else {
		lc.emit(code.OpCall, primitive)
	}
}

// emitList conses quoted list data together from the last item to the first.
func (lc *lambdaCompiler) emitList(l *ast.List, final bool, offset, bindings int) error {
	lc.compiler.extern("__cons")
	lc.emit(code.OpXor, code.RAX, code.RAX)

	for i := l.Len() - 1; i >= 0; i-- {
		lc.emit(code.OpPush, code.RAX)
		if err := lc.emitValue(l.Items[i], "", false, offset+1, 0); err != nil {
			return err
		}
		lc.emit(code.OpPop, code.RBX)

		if i == 0 {
			lc.transfer("__cons", final, bindings)
		} else {
			lc.emit(code.OpCall, "__cons")
		}
	}
	return nil
}

// materialize builds a function value: a pointer to the .continue entry of
// its code plus an arity tag. A closure template additionally gets its
// captured slots attached through a capture descriptor, which has to
// happen while the slots are still on the stack.
func (lc *lambdaCompiler) materialize(value ast.Expr, name string, final bool, offset, bindings int) error {
	var captures []int

	switch v := value.(type) {
	case *ast.Closure:
		if v.IsCaptured() {
			lambda, err := baker.Resolve(v)
			if err != nil {
				return err
			}
			value = lambda
		} else {
			captures = v.Captures
		}
	}

	label, arity, err := lc.compiler.compileExpression(value, name)
	if err != nil {
		return err
	}

	lc.compiler.extern("__mem_lambda")
	lc.emit(code.OpLea, code.RSI, code.Mem(code.Continue(label)))
	switch {
	case arity.IsVariadic():
		lc.emit(code.OpMov, code.RBX, code.LambdaVariadic)
	case arity == 0:
		lc.emit(code.OpXor, code.RBX, code.RBX)
	default:
		lc.emit(code.OpMov, code.RBX, code.Imm(int(arity)))
	}

	if len(captures) == 0 {
		lc.transfer("__mem_lambda", final, bindings)
		return nil
	}

	lc.emit(code.OpCall, "__mem_lambda")
	capture := lc.compiler.captureLabel(captures, offset)
	lc.compiler.extern("__mem_closure")
	lc.emit(code.OpLea, code.RBX, code.Mem(capture))
	lc.emit(code.OpCall, "__mem_closure")
	if final {
		lc.leave(bindings)
	}
	return nil
}
