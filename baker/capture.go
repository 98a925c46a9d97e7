package baker

import (
	"kiln/ast"
)

// Capture takes the values a closure template refers to from the binding
// stack (innermost last) and returns a new, captured closure.
func Capture(c *ast.Closure, stack []ast.Expr) (*ast.Closure, error) {
	values := make([]ast.Expr, len(c.Captures))
	for j, depth := range c.Captures {
		if depth < 1 || depth > len(stack) {
			return nil, newError(c, Unresolved, "%s: capture $%d outside of a stack of %d", c, depth, len(stack))
		}
		values[j] = stack[len(stack)-depth]
	}

	return &ast.Closure{
		Arity:    c.Arity,
		Body:     c.Body,
		Captures: c.Captures,
		Values:   values,
	}, nil
}

// Resolve substitutes the captured values of c into its body and returns an
// equivalent pure lambda. Nested closure templates that refer to the
// substituted slots are rewritten to refer to the values instead.
func Resolve(c *ast.Closure) (*ast.Lambda, error) {
	if !c.IsCaptured() {
		return nil, newError(c, Unresolved, "%s: closure has not captured its values", c)
	}

	f := &frame{captures: len(c.Captures), values: make(map[int]ast.Expr, len(c.Values))}
	for j, v := range c.Values {
		lit, err := literal(v)
		if err != nil {
			return nil, err
		}
		f.values[j] = lit
	}

	body, err := f.rewrite(c.Body)
	if err != nil {
		return nil, err
	}
	return &ast.Lambda{Arity: c.Arity, Body: body}, nil
}

// frame describes a closure frame whose top captures slots are being
// replaced. Slot j of the capture area has depth captures-j; values maps
// slot numbers to the expression replacing them.
type frame struct {
	captures int
	values   map[int]ast.Expr
}

// remap returns the value replacing depth, or the new depth of the slot
// once the replaced slots are gone.
func (f *frame) remap(depth int) (ast.Expr, int) {
	if depth > f.captures {
		return nil, depth - len(f.values)
	}

	slot := f.captures - depth
	if v, ok := f.values[slot]; ok {
		return v, 0
	}

	newDepth := 1
	for j := slot + 1; j < f.captures; j++ {
		if _, ok := f.values[j]; !ok {
			newDepth++
		}
	}
	return nil, newDepth
}

func (f *frame) rewrite(e ast.Expr) (ast.Expr, error) {
	switch e := e.(type) {
	case *ast.LocalRef:
		v, depth := f.remap(e.Depth)
		if v != nil {
			return v, nil
		}
		return ast.NewLocalRef(depth), nil
	case *ast.List:
		if e.IsEmpty() || ast.IsHead(e, "quote") {
			return e, nil
		}
		items := make([]ast.Expr, e.Len())
		for i, item := range e.Items {
			rewritten, err := f.rewrite(item)
			if err != nil {
				return nil, err
			}
			items[i] = rewritten
		}
		return ast.NewList(items...), nil
	case *ast.Closure:
		if e.IsCaptured() {
			return e, nil
		}
		return f.rewriteTemplate(e)
	}
	return e, nil
}

// rewriteTemplate renumbers the capture list of a nested closure template.
// Captures of replaced slots are dropped from the list and the values are
// substituted into the nested body instead.
func (f *frame) rewriteTemplate(c *ast.Closure) (ast.Expr, error) {
	inner := &frame{captures: len(c.Captures), values: map[int]ast.Expr{}}
	var captures []int

	for j, depth := range c.Captures {
		if v, newDepth := f.remap(depth); v != nil {
			inner.values[j] = v
		} else {
			captures = append(captures, newDepth)
		}
	}

	body := c.Body
	if len(inner.values) > 0 {
		var err error
		if body, err = inner.rewrite(c.Body); err != nil {
			return nil, err
		}
	}

	if len(captures) == 0 {
		return &ast.Lambda{Arity: c.Arity, Body: body}, nil
	}
	return &ast.Closure{Arity: c.Arity, Body: body, Captures: captures}, nil
}

// literal turns a runtime value into an expression evaluating to it.
func literal(v ast.Expr) (ast.Expr, error) {
	switch v := v.(type) {
	case *ast.Symbol:
		return ast.NewList(ast.NewSymbol("quote"), v), nil
	case *ast.List:
		if v.IsEmpty() {
			return v, nil
		}
		data, err := resolveData(v)
		if err != nil {
			return nil, err
		}
		return ast.NewList(ast.NewSymbol("quote"), data), nil
	case *ast.Closure:
		if !v.IsCaptured() {
			return nil, newError(v, Unresolved, "%s: closure template used as a value", v)
		}
		return Resolve(v)
	}
	return v, nil
}

// resolveData replaces captured closures found in list data by lambdas.
func resolveData(l *ast.List) (*ast.List, error) {
	items := make([]ast.Expr, l.Len())
	for i, item := range l.Items {
		switch item := item.(type) {
		case *ast.List:
			data, err := resolveData(item)
			if err != nil {
				return nil, err
			}
			items[i] = data
		case *ast.Closure:
			if !item.IsCaptured() {
				return nil, newError(item, Unresolved, "%s: closure template used as a value", item)
			}
			lambda, err := Resolve(item)
			if err != nil {
				return nil, err
			}
			items[i] = lambda
		default:
			items[i] = item
		}
	}
	return ast.NewList(items...), nil
}
