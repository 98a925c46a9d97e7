package object

import (
	"sort"

	"kiln/ast"
)

func NewScope() *Scope {
	s := make(map[string]ast.Expr)

	return &Scope{store: s, outer: nil}
}

func NewEnclosedScope(outer *Scope) *Scope {
	s := NewScope()
	s.outer = outer

	return s
}

// Scope maps global names to their values. Names set in an enclosed scope
// shadow the outer one.
type Scope struct {
	store map[string]ast.Expr
	outer *Scope
}

func (s *Scope) Get(name string) (ast.Expr, bool) {
	val, ok := s.store[name]
	if !ok && s.outer != nil {
		return s.outer.Get(name)
	}
	return val, ok
}

func (s *Scope) Set(name string, val ast.Expr) ast.Expr {
	s.store[name] = val
	return val
}

// Names lists every visible name in sorted order.
func (s *Scope) Names() []string {
	seen := map[string]bool{}
	for sc := s; sc != nil; sc = sc.outer {
		for name := range sc.store {
			seen[name] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
