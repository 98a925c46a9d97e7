// Package baker turns surface lambda forms into closure converted values.
// Local variables become stack depths (ast.LocalRef), and lambdas that
// refer to variables of an enclosing lambda become closures that capture
// those variables by value.
package baker

import (
	"slices"

	"kiln/ast"
)

// Scope lists the names bound on the stack, innermost last.
type Scope []string

// Depth returns the stack depth of name, counted from 1 at the innermost
// binding.
func (s Scope) Depth(name string) (int, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == name {
			return len(s) - i, true
		}
	}
	return 0, false
}

// heads that are never looked up in a scope
var specialForms = map[string]bool{
	"quote":  true,
	"if":     true,
	"lambda": true,
	"eval":   true,
}

func isSpecialHead(e ast.Expr) (string, bool) {
	l, ok := e.(*ast.List)
	if !ok || l.IsEmpty() {
		return "", false
	}
	sym, ok := l.Items[0].(*ast.Symbol)
	if !ok || !specialForms[sym.Name] {
		return "", false
	}
	return sym.Name, true
}

type capture struct {
	name  string
	depth int
}

// BakeLambda bakes a (lambda (p1 .. pn) body) form inside scope. The result
// is an *ast.Lambda when the body refers to no variable of scope, else an
// *ast.Closure. In a closure frame the captured values sit on top of the
// parameters.
func BakeLambda(form ast.Expr, scope Scope) (ast.Expr, error) {
	params, body, err := splitLambda(form)
	if err != nil {
		return nil, err
	}

	bound := make(map[string]bool, len(params))
	for _, name := range params {
		if bound[name] {
			return nil, newError(form, DuplicateParameter, "lambda: duplicate parameter %s", name)
		}
		bound[name] = true
	}

	var captures []capture
	for _, name := range freeNames(body, bound) {
		if depth, ok := scope.Depth(name); ok {
			captures = append(captures, capture{name: name, depth: depth})
		}
	}
	slices.SortFunc(captures, func(a, b capture) int {
		return b.depth - a.depth
	})

	frame := make(Scope, 0, len(params)+len(captures))
	frame = append(frame, params...)
	for _, c := range captures {
		frame = append(frame, c.name)
	}

	baked, err := bakeBody(body, frame)
	if err != nil {
		return nil, err
	}

	arity := ast.Arity(len(params))
	if len(captures) == 0 {
		return &ast.Lambda{Arity: arity, Body: baked}, nil
	}

	indices := make([]int, len(captures))
	for i, c := range captures {
		indices[i] = c.depth
	}
	return &ast.Closure{Arity: arity, Body: baked, Captures: indices}, nil
}

// Bake bakes an arbitrary expression inside scope. Lambda forms found in
// expr are baked with BakeLambda.
func Bake(expr ast.Expr, scope Scope) (ast.Expr, error) {
	return bakeBody(expr, scope)
}

func splitLambda(form ast.Expr) ([]string, ast.Expr, error) {
	l, ok := form.(*ast.List)
	if !ok || l.Len() != 3 || !ast.IsHead(l, "lambda") {
		return nil, nil, newError(form, Malformed, "lambda: not a lambda")
	}

	plist, ok := l.Items[1].(*ast.List)
	if !ok {
		return nil, nil, newError(form, Malformed, "lambda: not a lambda")
	}

	params := make([]string, plist.Len())
	for i, p := range plist.Items {
		sym, ok := p.(*ast.Symbol)
		if !ok {
			return nil, nil, newError(form, Malformed, "lambda: not a lambda")
		}
		params[i] = sym.Name
	}

	return params, l.Items[2], nil
}

// freeNames lists, in order of first occurrence, the symbols of expr not
// bound by bound. Free symbols of nested lambdas count, quoted data does not.
func freeNames(expr ast.Expr, bound map[string]bool) []string {
	var names []string
	seen := map[string]bool{}

	var walk func(e ast.Expr, bound map[string]bool)
	walk = func(e ast.Expr, bound map[string]bool) {
		switch e := e.(type) {
		case *ast.Symbol:
			if !bound[e.Name] && !seen[e.Name] {
				seen[e.Name] = true
				names = append(names, e.Name)
			}
		case *ast.List:
			head, special := isSpecialHead(e)
			if !special {
				for _, item := range e.Items {
					walk(item, bound)
				}
				return
			}

			switch head {
			case "quote":
			case "lambda":
				params, body, err := splitLambda(e)
				if err != nil {
					return // reported when the form itself is baked
				}
				inner := make(map[string]bool, len(bound)+len(params))
				for name := range bound {
					inner[name] = true
				}
				for _, name := range params {
					inner[name] = true
				}
				walk(body, inner)
			default:
				for _, item := range e.Items[1:] {
					walk(item, bound)
				}
			}
		}
	}

	walk(expr, bound)
	return names
}

func bakeBody(expr ast.Expr, scope Scope) (ast.Expr, error) {
	switch expr := expr.(type) {
	case *ast.Symbol:
		if depth, ok := scope.Depth(expr.Name); ok {
			return ast.NewLocalRef(depth), nil
		}
		return expr, nil
	case *ast.List:
		return bakeList(expr, scope)
	}
	return expr, nil
}

func bakeList(l *ast.List, scope Scope) (ast.Expr, error) {
	if l.IsEmpty() {
		return l, nil
	}

	head, special := isSpecialHead(l)
	if special {
		switch head {
		case "quote":
			if l.Len() != 2 {
				return nil, newError(l, Malformed, "quote expects exactly one parameter")
			}
			return l, nil
		case "lambda":
			return BakeLambda(l, scope)
		case "if":
			if l.Len() != 4 {
				return nil, newError(l, Malformed, "if expects exactly 3 parameters")
			}
		case "eval":
			if l.Len() != 2 {
				return nil, newError(l, Malformed, "eval expects exactly one parameter")
			}
		}

		items := make([]ast.Expr, l.Len())
		items[0] = l.Items[0]
		for i, item := range l.Items[1:] {
			baked, err := bakeBody(item, scope)
			if err != nil {
				return nil, err
			}
			items[i+1] = baked
		}
		return ast.NewList(items...), nil
	}

	items := make([]ast.Expr, l.Len())
	for i, item := range l.Items {
		baked, err := bakeBody(item, scope)
		if err != nil {
			return nil, err
		}
		items[i] = baked
	}

	if !ast.IsExecutable(items[0]) {
		return nil, newError(items[0], NotExecutable, "%s: not executable", items[0])
	}
	return ast.NewList(items...), nil
}
