package evaluator

import (
	"slices"

	"kiln/ast"
	"kiln/baker"
)

// Evaluate evaluates a baked expression at top level.
func (e *Environment) Evaluate(expr ast.Expr) (ast.Expr, error) {
	return e.evaluate(expr, nil, 0)
}

// evaluate runs expr against the binding stack (innermost last). bindings
// counts the values on top of stack that belong to the running function and
// may be dropped by a tail call.
func (e *Environment) evaluate(expr ast.Expr, stack []ast.Expr, bindings int) (ast.Expr, error) {
	for {
		if ast.IsAtom(expr) {
			return e.evalAtom(expr, stack)
		}

		list := expr.(*ast.List)
		function := list.Items[0]
		params := list.Items[1:]

		if sym, ok := function.(*ast.Symbol); ok {
			switch sym.Name {
			case "quote":
				if len(params) != 1 {
					return nil, newError("quote expects exactly one parameter")
				}
				return params[0], nil

			case "if":
				if len(params) != 3 {
					return nil, newError("if expects exactly 3 parameters")
				}
				cond, err := e.evaluate(params[0], stack, 0)
				if err != nil {
					return nil, err
				}
				if ast.IsTrue(cond) {
					expr = params[1]
				} else {
					expr = params[2]
				}
				continue

			case "eval":
				if len(params) != 1 {
					return nil, newError("eval expects exactly one parameter")
				}
				val, err := e.evaluate(params[0], stack, 0)
				if err != nil {
					return nil, err
				}
				expr = val
				continue

			case "lambda":
				return baker.BakeLambda(expr, nil)
			}
		}

		args := make([]ast.Expr, len(params))
		for i, p := range params {
			val, err := e.evaluate(p, stack, 0)
			if err != nil {
				return nil, err
			}
			args[i] = val
		}

		fn, err := e.evaluate(function, stack, 0)
		if err != nil {
			return nil, err
		}

		switch fn := fn.(type) {
		case *ast.Builtin:
			if !fn.Arity.Matches(len(args)) {
				return nil, newError("%s: expects %d parameter, got %d", function, fn.Arity, len(args))
			}
			return fn.Fn(args...)

		case *ast.Lambda:
			if !fn.Arity.Matches(len(args)) {
				return nil, newError("%s: expects %d parameter, got %d", function, fn.Arity, len(args))
			}
			stack, bindings = enter(stack, bindings, function, args)
			expr = fn.Body

		case *ast.Closure:
			if !fn.Arity.Matches(len(args)) {
				return nil, newError("%s: expects %d parameter, got %d", function, fn.Arity, len(args))
			}
			stack, bindings = enter(stack, bindings, function, args)
			stack = append(stack, fn.Values...)
			bindings += len(fn.Values)
			expr = fn.Body

		default:
			return nil, newError("%s: not executable", fn)
		}
	}
}

// enter pushes the arguments of a call. Unless the function is a lambda
// written inline, whose body may still refer to them, the bindings of the
// running function are dropped first.
func enter(stack []ast.Expr, bindings int, function ast.Expr, args []ast.Expr) ([]ast.Expr, int) {
	if _, inline := function.(*ast.Lambda); !inline && bindings > 0 {
		stack = stack[:len(stack)-bindings]
		bindings = 0
	}

	stack = append(slices.Clip(stack), args...)
	return stack, bindings + len(args)
}

func (e *Environment) evalAtom(expr ast.Expr, stack []ast.Expr) (ast.Expr, error) {
	switch expr := expr.(type) {
	case *ast.Symbol:
		if val, ok := e.symbols.Get(expr.Name); ok {
			return val, nil
		}
		return nil, newError("%s: unknown symbol", expr)

	case *ast.LocalRef:
		if expr.Depth < 1 || expr.Depth > len(stack) {
			return nil, newError("%s: reference outside of a stack of %d", expr, len(stack))
		}
		return stack[len(stack)-expr.Depth], nil

	case *ast.Closure:
		if expr.IsCaptured() {
			return expr, nil
		}
		return baker.Capture(expr, stack)
	}

	return expr, nil
}
