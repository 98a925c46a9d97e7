// Package code models the x86-64 NASM instructions the code generator
// emits and renders them as assembly text.
package code

import (
	"bytes"
	"fmt"
	"strings"
)

type Opcode byte

const (
	OpLabel Opcode = iota
	OpGlobal
	OpPush
	OpPop
	OpMov
	OpLea
	OpXor
	OpShl
	OpAdd
	OpCall
	OpJmp
	OpJc
	OpRet
	OpStd
	OpCld
	OpRep
	OpBlank
)

type (
	Definition struct {
		Name     string
		Operands int
	}
)

var definitions = map[Opcode]*Definition{
	OpLabel:  {"label", 1},
	OpGlobal: {"global", 1},
	OpPush:   {"push", 1},
	OpPop:    {"pop", 1},
	OpMov:    {"mov", 2},
	OpLea:    {"lea", 2},
	OpXor:    {"xor", 2},
	OpShl:    {"shl", 2},
	OpAdd:    {"add", 2},
	OpCall:   {"call", 1},
	OpJmp:    {"jmp", 1},
	OpJc:     {"jc", 1},
	OpRet:    {"ret", 0},
	OpStd:    {"std", 0},
	OpCld:    {"cld", 0},
	OpRep:    {"rep", 1}, // prefixed instruction
	OpBlank:  {"", 0},
}

func Lookup(op Opcode) (*Definition, error) {
	def, ok := definitions[op]
	if !ok {
		return nil, fmt.Errorf("opcode %d undefined", op)
	}

	return def, nil
}

type Instruction struct {
	Op       Opcode
	Operands []string
}

type Instructions []Instruction

func Make(op Opcode, operands ...string) Instruction {
	return Instruction{Op: op, Operands: operands}
}

// Label makes a label definition line.
func Label(name string) Instruction {
	return Make(OpLabel, name)
}

func (ins Instruction) String() string {
	def, err := Lookup(ins.Op)
	if err != nil {
		return fmt.Sprintf("Error: %s", err)
	}
	if len(ins.Operands) != def.Operands {
		return fmt.Sprintf("Error: operand len %d does not match defined %d for %s", len(ins.Operands), def.Operands, def.Name)
	}

	switch ins.Op {
	case OpLabel:
		return ins.Operands[0] + ":"
	case OpBlank:
		return ""
	}

	if def.Operands == 0 {
		return "\t" + def.Name
	}
	return "\t" + def.Name + "\t" + strings.Join(ins.Operands, ", ")
}

func (ins Instructions) String() string {
	var out bytes.Buffer

	for _, in := range ins {
		out.WriteString(in.String())
		out.WriteString("\n")
	}

	return out.String()
}
