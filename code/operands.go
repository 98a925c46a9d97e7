package code

import (
	"fmt"
	"strconv"
)

// Registers
const (
	RAX = "rax"
	RBX = "rbx"
	RCX = "rcx"
	RSI = "rsi"
	RDI = "rdi"
	RSP = "rsp"
	ECX = "ecx"
	AL  = "al"
)

// Constants defined by the runtime include file.
const (
	TypeTrue       = "TYPE_TRUE"
	ShiftType      = "SHIFT_TYPE"
	LambdaVariadic = "LAMBDA_VARIADIC"
)

// ReorderRegisters are the scratch registers a tail call may park its
// arguments in while the dead frame below them is dropped.
var ReorderRegisters = []string{
	"rbx", "rcx", "rdx", "rsi", "rdi", "r8",
	"r9", "r10", "r11", "r12", "r13", "r14",
}

// Stack addresses the stack slot n words above rsp.
func Stack(n int) string {
	return fmt.Sprintf("[rsp + 8*%d]", n)
}

// Words is an immediate counting n stack words.
func Words(n int) string {
	return fmt.Sprintf("8*%d", n)
}

func Imm(n int) string {
	return strconv.Itoa(n)
}

func Imm64(n int64) string {
	return strconv.FormatInt(n, 10)
}

// Mem addresses label.
func Mem(label string) string {
	return "[" + label + "]"
}

// Continue names the tail call entry of label.
func Continue(label string) string {
	return label + ".continue"
}
