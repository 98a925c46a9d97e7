package object

import (
	"io"

	"kiln/ast"
)

type arithmetic func(x, y int64) (int64, error)

// Builtins returns the native function table. print and println write to out.
func Builtins(out io.Writer) []*ast.Builtin {
	return []*ast.Builtin{
		{
			Name:   "head",
			Extern: "builtin_head",
			Arity:  1,
			Fn: func(args ...ast.Expr) (ast.Expr, error) {
				if ast.IsAtom(args[0]) {
					return nil, newError("head: non-empty list expected")
				}
				return ast.Head(args[0])
			},
		},
		{
			Name:   "tail",
			Extern: "builtin_tail",
			Arity:  1,
			Fn: func(args ...ast.Expr) (ast.Expr, error) {
				if ast.IsAtom(args[0]) {
					return nil, newError("tail: non-empty list expected")
				}
				return ast.Tail(args[0])
			},
		},
		{
			Name:   "cons",
			Extern: "builtin_cons",
			Arity:  2,
			Fn: func(args ...ast.Expr) (ast.Expr, error) {
				l, ok := args[1].(*ast.List)
				if !ok {
					return nil, newError("cons: list expected as second parameter")
				}
				items := make([]ast.Expr, 0, l.Len()+1)
				items = append(items, args[0])
				items = append(items, l.Items...)
				return ast.NewList(items...), nil
			},
		},
		{
			Name:   "list",
			Extern: "builtin_list",
			Arity:  ast.Variadic,
			Fn: func(args ...ast.Expr) (ast.Expr, error) {
				items := make([]ast.Expr, len(args))
				copy(items, args)
				return ast.NewList(items...), nil
			},
		},
		{
			Name:   "atom",
			Extern: "builtin_atom",
			Arity:  1,
			Fn: func(args ...ast.Expr) (ast.Expr, error) {
				return Bool(ast.IsAtom(args[0])), nil
			},
		},
		{
			Name:   "eq",
			Extern: "builtin_eq",
			Arity:  2,
			Fn: func(args ...ast.Expr) (ast.Expr, error) {
				return Bool(ast.Equal(args[0], args[1])), nil
			},
		},
		integerBuiltin("+", "builtin_add", func(x, y int64) (int64, error) { return x + y, nil }),
		integerBuiltin("-", "builtin_sub", func(x, y int64) (int64, error) { return x - y, nil }),
		integerBuiltin("*", "builtin_mul", func(x, y int64) (int64, error) { return x * y, nil }),
		integerBuiltin("/", "builtin_div", func(x, y int64) (int64, error) {
			if y == 0 {
				return 0, newError("builtin_div: divide by zero")
			}
			return floorDiv(x, y), nil
		}),
		integerBuiltin("mod", "builtin_mod", func(x, y int64) (int64, error) {
			if y == 0 {
				return 0, newError("builtin_mod: divide by zero")
			}
			return x - y*floorDiv(x, y), nil
		}),
		comparisonBuiltin("lt", "builtin_lt", func(x, y int64) bool { return x < y }),
		comparisonBuiltin("gt", "builtin_gt", func(x, y int64) bool { return x > y }),
		{
			Name:       "print",
			Extern:     "builtin_print",
			Arity:      ast.Variadic,
			SideEffect: true,
			Fn: func(args ...ast.Expr) (ast.Expr, error) {
				for _, a := range args {
					if _, err := io.WriteString(out, Display(a)); err != nil {
						return nil, err
					}
				}
				return ast.Nil(), nil
			},
		},
		{
			Name:       "println",
			Extern:     "builtin_println",
			Arity:      ast.Variadic,
			SideEffect: true,
			Fn: func(args ...ast.Expr) (ast.Expr, error) {
				for _, a := range args {
					if _, err := io.WriteString(out, Display(a)); err != nil {
						return nil, err
					}
				}
				if _, err := io.WriteString(out, "\n"); err != nil {
					return nil, err
				}
				return ast.Nil(), nil
			},
		},
	}
}

// NewGlobalScope returns a scope holding the builtins, with an enclosed
// scope on top for user definitions.
func NewGlobalScope(out io.Writer) *Scope {
	builtins := NewScope()
	for _, b := range Builtins(out) {
		builtins.Set(b.Name, b)
	}
	return NewEnclosedScope(builtins)
}

func integers(extern string, args []ast.Expr) (int64, int64, error) {
	x, ok := args[0].(*ast.Integer)
	if !ok {
		return 0, 0, newError("%s: illegal parameter type", extern)
	}
	y, ok := args[1].(*ast.Integer)
	if !ok {
		return 0, 0, newError("%s: illegal parameter type", extern)
	}
	return x.Value, y.Value, nil
}

func integerBuiltin(name, extern string, fn arithmetic) *ast.Builtin {
	return &ast.Builtin{
		Name:   name,
		Extern: extern,
		Arity:  2,
		Fn: func(args ...ast.Expr) (ast.Expr, error) {
			x, y, err := integers(extern, args)
			if err != nil {
				return nil, err
			}
			result, err := fn(x, y)
			if err != nil {
				return nil, err
			}
			return ast.NewInteger(result), nil
		},
	}
}

func comparisonBuiltin(name, extern string, fn func(x, y int64) bool) *ast.Builtin {
	return &ast.Builtin{
		Name:   name,
		Extern: extern,
		Arity:  2,
		Fn: func(args ...ast.Expr) (ast.Expr, error) {
			x, y, err := integers(extern, args)
			if err != nil {
				return nil, err
			}
			return Bool(fn(x, y)), nil
		},
	}
}

// floorDiv rounds towards negative infinity
func floorDiv(x, y int64) int64 {
	q := x / y
	if (x%y != 0) && ((x < 0) != (y < 0)) {
		q--
	}
	return q
}
