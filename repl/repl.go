// Package repl reads items from the user, interprets them and prints the
// results. Items may span lines; :asm shows the code a symbol compiles to.
package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"kiln/asmgen"
	"kiln/ast"
	"kiln/evaluator"
	"kiln/lexer"
	"kiln/parser"

	"github.com/fatih/color"
	"github.com/mitchellh/go-homedir"
	"github.com/peterh/liner"
	"golang.org/x/term"
)

const (
	PROMPT       = ">> "
	CONTINUATION = ".. "

	historyFile = "~/.kiln_history"
)

var errorColor = color.New(color.FgRed)

type REPL struct {
	env     *evaluator.Environment
	out     io.Writer
	pending strings.Builder
}

func New(env *evaluator.Environment, out io.Writer) *REPL {
	return &REPL{env: env, out: out}
}

// Prompt is the prompt for the next line: a continuation while an item is
// still open.
func (r *REPL) Prompt() string {
	if r.pending.Len() > 0 {
		return CONTINUATION
	}
	return PROMPT
}

// Start runs the loop on in until end of input or :quit. A terminal gets
// line editing and history.
func (r *REPL) Start(in io.Reader) error {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return r.startLiner()
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.out, r.Prompt())
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		if !r.Feed(scanner.Text()) {
			return nil
		}
	}
}

func (r *REPL) startLiner() error {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	history, err := homedir.Expand(historyFile)
	if err == nil {
		if f, err := os.Open(history); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(history); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	for {
		line, err := ln.Prompt(r.Prompt())
		if errors.Is(err, liner.ErrPromptAborted) {
			r.pending.Reset()
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(r.out)
			return nil
		}
		if err != nil {
			return err
		}

		if strings.TrimSpace(line) != "" {
			ln.AppendHistory(line)
		}
		if !r.Feed(line) {
			return nil
		}
	}
}

// Feed handles one line of input. It returns false once the user asked to
// quit.
func (r *REPL) Feed(line string) bool {
	if r.pending.Len() == 0 {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			return true
		}
		if strings.HasPrefix(trimmed, ":") {
			return r.command(strings.Fields(trimmed))
		}
	} else {
		r.pending.WriteByte('\n')
	}
	r.pending.WriteString(line)

	p := parser.New(lexer.New(r.pending.String()))
	item := p.ParseItem()
	if p.Incomplete() {
		return true
	}
	r.pending.Reset()

	if err := p.Err(); err != nil {
		r.printError(err)
		return true
	}

	result, err := r.env.Interpret(item, true)
	if err != nil {
		r.printError(err)
		return true
	}
	if !r.sideEffect(item) {
		fmt.Fprintln(r.out, result)
	}
	return true
}

// sideEffect reports whether item calls a builtin run for what it does,
// like print, whose result is not echoed.
func (r *REPL) sideEffect(item ast.Expr) bool {
	head, err := ast.Head(item)
	if err != nil {
		return false
	}
	sym, ok := head.(*ast.Symbol)
	if !ok {
		return false
	}
	value, _ := r.env.Symbols().Get(sym.Name)
	builtin, ok := value.(*ast.Builtin)
	return ok && builtin.SideEffect
}

func (r *REPL) command(fields []string) bool {
	switch fields[0] {
	case ":quit", ":q":
		return false

	case ":asm":
		if len(fields) < 2 {
			r.printError(errors.New(":asm expects at least one symbol"))
			return true
		}
		asm, err := asmgen.Assemble(r.env.Symbols(), fields[1:]...)
		if err != nil {
			r.printError(err)
			return true
		}
		io.WriteString(r.out, asm)

	case ":help":
		io.WriteString(r.out, ":asm sym...  show the assembly for symbols\n:quit        leave\n")

	default:
		r.printError(fmt.Errorf("unknown command %s", fields[0]))
	}
	return true
}

func (r *REPL) printError(err error) {
	errorColor.Fprintln(r.out, "\t"+err.Error())
}
