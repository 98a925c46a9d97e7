// Package evaluator is the reference tree walking interpreter. It runs the
// top level instructions (set, defun, symbols) that define the global
// symbol table the code generator compiles from.
package evaluator

import (
	"fmt"
	"io"
	"os"

	"kiln/ast"
	"kiln/baker"
	"kiln/object"
	"kiln/parser"
)

type Environment struct {
	symbols *object.Scope
}

// New returns an environment holding the builtins. print and println write
// to out.
func New(out io.Writer) *Environment {
	return &Environment{symbols: object.NewGlobalScope(out)}
}

func (e *Environment) Symbols() *object.Scope {
	return e.symbols
}

// InterpretLine parses and interprets one interactive line.
func (e *Environment) InterpretLine(line string) (ast.Expr, error) {
	item, err := parser.ParseLine(line)
	if err != nil {
		return nil, err
	}
	return e.Interpret(item, true)
}

// ImportSource interprets every top level item of source.
func (e *Environment) ImportSource(source string) error {
	items, err := parser.ParseSource(source)
	if err != nil {
		return err
	}

	for _, item := range items {
		if _, err := e.Interpret(item, false); err != nil {
			return err
		}
	}
	return nil
}

func (e *Environment) ImportFile(path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := e.ImportSource(string(source)); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Interpret runs a top level instruction. Outside interactive mode only
// set, defun and symbols are allowed.
func (e *Environment) Interpret(instruction ast.Expr, interactive bool) (ast.Expr, error) {
	if list, ok := instruction.(*ast.List); ok && !list.IsEmpty() {
		if cmd, ok := list.Items[0].(*ast.Symbol); ok {
			params := list.Items[1:]

			switch cmd.Name {
			case "set":
				return e.interpretSet(params)
			case "defun":
				return e.interpretDefun(params)
			case "symbols":
				names := e.symbols.Names()
				symbols := make([]ast.Expr, len(names))
				for i, name := range names {
					symbols[i] = ast.NewSymbol(name)
				}
				return ast.NewList(symbols...), nil
			}
		}
	}

	if interactive {
		baked, err := baker.Bake(instruction, nil)
		if err != nil {
			return nil, err
		}
		return e.Evaluate(baked)
	}

	return nil, newError("illegal instruction: %s", instruction)
}

func (e *Environment) interpretSet(params []ast.Expr) (ast.Expr, error) {
	if len(params) != 2 {
		return nil, newError("set expects exactly two parameter")
	}
	sym, ok := params[0].(*ast.Symbol)
	if !ok {
		return nil, newError("set expects symbol as first parameter")
	}

	baked, err := baker.Bake(params[1], nil)
	if err != nil {
		return nil, err
	}
	value, err := e.Evaluate(baked)
	if err != nil {
		return nil, err
	}

	e.symbols.Set(sym.Name, value)
	return value, nil
}

func (e *Environment) interpretDefun(params []ast.Expr) (ast.Expr, error) {
	if len(params) != 3 {
		return nil, newError("defun expects three parameter")
	}
	sym, ok := params[0].(*ast.Symbol)
	if !ok {
		return nil, newError("defun expects symbol as first parameter")
	}
	if _, ok := params[1].(*ast.List); !ok {
		return nil, newError("defun expects list of symbols as second parameter")
	}

	form := ast.NewList(ast.NewSymbol("lambda"), params[1], params[2])
	value, err := baker.BakeLambda(form, nil)
	if err != nil {
		return nil, err
	}

	e.symbols.Set(sym.Name, value)
	return value, nil
}
