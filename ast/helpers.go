package ast

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrNotList   = errors.New("not a list")
	ErrEmptyList = errors.New("empty list")
)

// IsAtom reports whether e is anything but a non-empty list.
func IsAtom(e Expr) bool {
	if l, ok := e.(*List); ok {
		return l.IsEmpty()
	}
	return true
}

// IsExecutable reports whether e may appear in operator position.
func IsExecutable(e Expr) bool {
	switch e := e.(type) {
	case *Symbol, *LocalRef, *Lambda, *Closure, *Builtin:
		return true
	case *List:
		return !e.IsEmpty() && IsExecutable(e.Items[0])
	default:
		return false
	}
}

// IsTrue implements truthiness: the empty list and the integer 0 are false.
func IsTrue(e Expr) bool {
	switch e := e.(type) {
	case *List:
		return !e.IsEmpty()
	case *Integer:
		return e.Value != 0
	default:
		return true
	}
}

// IsHead reports whether e is a list whose first item is the symbol name.
func IsHead(e Expr, name string) bool {
	l, ok := e.(*List)
	if !ok || l.IsEmpty() {
		return false
	}
	sym, ok := l.Items[0].(*Symbol)
	return ok && sym.Name == name
}

func Head(e Expr) (Expr, error) {
	l, ok := e.(*List)
	if !ok {
		return nil, fmt.Errorf("head of %s: %w", e, ErrNotList)
	}
	if l.IsEmpty() {
		return nil, fmt.Errorf("head: %w", ErrEmptyList)
	}
	return l.Items[0], nil
}

func Tail(e Expr) (*List, error) {
	l, ok := e.(*List)
	if !ok {
		return nil, fmt.Errorf("tail of %s: %w", e, ErrNotList)
	}
	if l.IsEmpty() {
		return nil, fmt.Errorf("tail: %w", ErrEmptyList)
	}
	return NewList(l.Items[1:]...), nil
}

// Equal compares two expressions structurally.
func Equal(a, b Expr) bool {
	switch a := a.(type) {
	case *Integer:
		b, ok := b.(*Integer)
		return ok && a.Value == b.Value
	case *Str:
		b, ok := b.(*Str)
		return ok && a.Value == b.Value
	case *Symbol:
		b, ok := b.(*Symbol)
		return ok && a.Name == b.Name
	case *True:
		_, ok := b.(*True)
		return ok
	case *LocalRef:
		b, ok := b.(*LocalRef)
		return ok && a.Depth == b.Depth
	case *List:
		b, ok := b.(*List)
		return ok && equalAll(a.Items, b.Items)
	case *Lambda:
		b, ok := b.(*Lambda)
		return ok && a.Arity == b.Arity && Equal(a.Body, b.Body)
	case *Closure:
		b, ok := b.(*Closure)
		if !ok || a.Arity != b.Arity || a.IsCaptured() != b.IsCaptured() {
			return false
		}
		if len(a.Captures) != len(b.Captures) {
			return false
		}
		for i := range a.Captures {
			if a.Captures[i] != b.Captures[i] {
				return false
			}
		}
		return equalAll(a.Values, b.Values) && Equal(a.Body, b.Body)
	case *Builtin:
		b, ok := b.(*Builtin)
		return ok && a.Extern == b.Extern
	}
	return false
}

func equalAll(a, b []Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Key returns a canonical serialization of e. Two expressions have the same
// key exactly when they are Equal, so it can be used to key caches.
func Key(e Expr) string {
	var sb strings.Builder
	writeKey(&sb, e)
	return sb.String()
}

func writeKey(sb *strings.Builder, e Expr) {
	switch e := e.(type) {
	case *Integer:
		sb.WriteString("i")
		sb.WriteString(strconv.FormatInt(e.Value, 10))
	case *Str:
		sb.WriteString("s")
		sb.WriteString(strconv.Quote(e.Value))
	case *Symbol:
		sb.WriteString("y")
		sb.WriteString(strconv.Quote(e.Name))
	case *True:
		sb.WriteString("t")
	case *LocalRef:
		sb.WriteString("r")
		sb.WriteString(strconv.Itoa(e.Depth))
	case *List:
		sb.WriteString("(")
		for _, item := range e.Items {
			writeKey(sb, item)
			sb.WriteString(" ")
		}
		sb.WriteString(")")
	case *Lambda:
		sb.WriteString("L")
		sb.WriteString(e.Arity.String())
		sb.WriteString("{")
		writeKey(sb, e.Body)
		sb.WriteString("}")
	case *Closure:
		sb.WriteString("C")
		sb.WriteString(e.Arity.String())
		sb.WriteString("[")
		for _, idx := range e.Captures {
			sb.WriteString(strconv.Itoa(idx))
			sb.WriteString(" ")
		}
		sb.WriteString("]")
		if e.IsCaptured() {
			sb.WriteString("<")
			for _, v := range e.Values {
				writeKey(sb, v)
				sb.WriteString(" ")
			}
			sb.WriteString(">")
		}
		sb.WriteString("{")
		writeKey(sb, e.Body)
		sb.WriteString("}")
	case *Builtin:
		sb.WriteString("B")
		sb.WriteString(strconv.Quote(e.Extern))
	}
}
