package ast

import (
	"bytes"
	"strconv"
	"strings"
)

// Arity is the number of parameters a callable expects, or Variadic.
type Arity int

const Variadic Arity = -1

func (a Arity) IsVariadic() bool {
	return a < 0
}

func (a Arity) String() string {
	if a.IsVariadic() {
		return "variadic"
	}
	return strconv.Itoa(int(a))
}

// Matches reports whether a call site supplying n arguments fits a.
func (a Arity) Matches(n int) bool {
	return a.IsVariadic() || int(a) == n
}

type BuiltinFunction func(args ...Expr) (Expr, error)

// Interfaces

type (
	Expr interface {
		String() string
		exprNode()
	}
)

// Surface values
type (
	Integer struct {
		Value int64
	}

	Str struct {
		Value string
	}

	Symbol struct {
		Name string
	}

	True struct{}

	// List is an application, a special form or quoted data. The empty
	// list is the false value and the empty sequence.
	List struct {
		Items []Expr
	}
)

// Baked values
type (
	// LocalRef addresses the value bound Depth positions below the top of
	// the current binding stack. Depth 1 is the innermost binding.
	LocalRef struct {
		Depth int
	}

	Lambda struct {
		Arity Arity
		Body  Expr
	}

	// Closure is a lambda whose body still refers to values of an outer
	// frame. Captures holds the depths of those values relative to the
	// frame the closure is built in, sorted by descending depth. Values is
	// nil for a closure template and holds one value per capture once the
	// closure has been captured.
	Closure struct {
		Arity    Arity
		Body     Expr
		Captures []int
		Values   []Expr
	}

	Builtin struct {
		Name       string
		Extern     string
		Arity      Arity
		SideEffect bool
		Fn         BuiltinFunction
	}
)

func (i *Integer) exprNode()  {}
func (s *Str) exprNode()      {}
func (s *Symbol) exprNode()   {}
func (t *True) exprNode()     {}
func (l *List) exprNode()     {}
func (r *LocalRef) exprNode() {}
func (l *Lambda) exprNode()   {}
func (c *Closure) exprNode()  {}
func (b *Builtin) exprNode()  {}

func NewInteger(v int64) *Integer {
	return &Integer{Value: v}
}

func NewStr(s string) *Str {
	return &Str{Value: s}
}

func NewSymbol(name string) *Symbol {
	return &Symbol{Name: name}
}

func NewList(items ...Expr) *List {
	return &List{Items: items}
}

func NewLocalRef(depth int) *LocalRef {
	return &LocalRef{Depth: depth}
}

// Nil returns a fresh empty list.
func Nil() *List {
	return &List{}
}

func (l *List) Len() int {
	return len(l.Items)
}

func (l *List) IsEmpty() bool {
	return len(l.Items) == 0
}

// IsCaptured reports whether the closure already carries its captured values.
func (c *Closure) IsCaptured() bool {
	return c.Values != nil
}

// Bindings is the size of the frame the closure body runs in.
func (c *Closure) Bindings() int {
	return int(c.Arity) + len(c.Captures)
}

// Stringers

func (i *Integer) String() string {
	return strconv.FormatInt(i.Value, 10)
}

func (s *Str) String() string {
	return `"` + s.Value + `"`
}

func (s *Symbol) String() string {
	return s.Name
}

func (t *True) String() string {
	return "#t"
}

func (l *List) String() string {
	// quoted data prints in its short form
	if len(l.Items) == 2 && IsHead(l, "quote") {
		return "'" + l.Items[1].String()
	}

	elems := make([]string, len(l.Items))
	for i, item := range l.Items {
		elems[i] = item.String()
	}
	return "(" + strings.Join(elems, " ") + ")"
}

func (r *LocalRef) String() string {
	return "$" + strconv.Itoa(r.Depth)
}

func (l *Lambda) String() string {
	return "<lambda/" + l.Arity.String() + " " + l.Body.String() + ">"
}

func (c *Closure) String() string {
	var out bytes.Buffer

	out.WriteString("<closure/")
	out.WriteString(c.Arity.String())
	out.WriteString(" [")
	for i, idx := range c.Captures {
		if i > 0 {
			out.WriteString(" ")
		}
		out.WriteString(strconv.Itoa(idx))
	}
	out.WriteString("]")
	if c.IsCaptured() {
		out.WriteString(" {")
		for i, v := range c.Values {
			if i > 0 {
				out.WriteString(" ")
			}
			out.WriteString(v.String())
		}
		out.WriteString("}")
	}
	out.WriteString(" ")
	out.WriteString(c.Body.String())
	out.WriteString(">")

	return out.String()
}

func (b *Builtin) String() string {
	return "<" + b.Extern + ">"
}
