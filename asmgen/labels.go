package asmgen

import (
	"fmt"
	"strconv"
	"strings"
)

func isIdentChar(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// runtimePrefix starts the names of the runtime's builtin entry points.
const runtimePrefix = "builtin_"

// mangle turns a symbol name into a NASM label. Characters outside
// [A-Za-z0-9_] are hex escaped as _xHH. An underscore is escaped as well
// where it could be read as the start of an escape, where it would make
// the label look like a generated (__lambda_...) or runtime label, or where
// it ends the builtin_ prefix. The $ prefix keeps NASM from reading the
// label as an instruction or register name.
func mangle(name string) string {
	var sb strings.Builder
	sb.WriteByte('$')

	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '_' && (i == 0 || i+1 < len(name) && name[i+1] == 'x' ||
			i == len(runtimePrefix)-1 && strings.HasPrefix(name, runtimePrefix)):
			fmt.Fprintf(&sb, "_x%02x", c)
		case isIdentChar(c) && !(i == 0 && '0' <= c && c <= '9'):
			sb.WriteByte(c)
		default:
			fmt.Fprintf(&sb, "_x%02x", c)
		}
	}

	return sb.String()
}

// isGlobal reports whether label is exported from the object file. Only
// labels named after symbols are.
func isGlobal(label string) bool {
	return strings.HasPrefix(label, "$")
}

// dbOperands renders s as the operand list of a db directive.
func dbOperands(s string) string {
	if s == "" {
		return "0"
	}

	var parts []string
	var run strings.Builder
	flush := func() {
		if run.Len() > 0 {
			parts = append(parts, `"`+run.String()+`"`)
			run.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x20 && c < 0x7f && c != '"' {
			run.WriteByte(c)
			continue
		}
		flush()
		parts = append(parts, strconv.Itoa(int(c)))
	}
	flush()

	return strings.Join(parts, ", ")
}

// captureTable renders the frame offsets of a capture descriptor as seen
// from inside the __mem_closure call, innermost first.
func captureTable(captures []int, offset int) string {
	parts := make([]string, len(captures))
	for i := range captures {
		depth := captures[len(captures)-1-i]
		parts[i] = strconv.Itoa(8 * (depth + offset))
	}
	return strings.Join(parts, ", ")
}
