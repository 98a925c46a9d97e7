// Package asmgen compiles baked lambdas into x86-64 NASM assembly that
// links against the kiln runtime.
package asmgen

import (
	"bytes"
	"fmt"
	"maps"
	"slices"

	"kiln/ast"
	"kiln/baker"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

// SymbolTable is the read only view of the global symbols the compiler
// resolves free names against.
type SymbolTable interface {
	Get(name string) (ast.Expr, bool)
}

type Option func(*Compiler)

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Compiler) {
		c.logger = logger
	}
}

type compiled struct {
	label string
	arity ast.Arity
}

type dataEntry struct {
	label string
	value string
}

// Compiler holds the emission context of one compilation run: the label
// counter, the caches deduplicating lambda bodies, strings and capture
// descriptors, and the set of runtime symbols referenced.
type Compiler struct {
	symbols SymbolTable
	logger  zerolog.Logger

	counter  int
	externs  map[string]bool
	labels   map[string]bool
	lambdas  []*lambdaCompiler
	cache    map[string]compiled
	strings  []dataEntry
	strCache map[string]string
	captures []dataEntry
	capCache map[string]string
}

func New(symbols SymbolTable, opts ...Option) *Compiler {
	c := &Compiler{symbols: symbols, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	c.reset()
	return c
}

func (c *Compiler) reset() {
	c.counter = 0
	c.externs = make(map[string]bool)
	c.labels = make(map[string]bool)
	c.lambdas = nil
	c.cache = make(map[string]compiled)
	c.strings = nil
	c.strCache = make(map[string]string)
	c.captures = nil
	c.capCache = make(map[string]string)
}

type checkpoint struct {
	counter  int
	externs  map[string]bool
	labels   map[string]bool
	lambdas  int
	cache    map[string]compiled
	strings  int
	strCache map[string]string
	captures int
	capCache map[string]string
}

func (c *Compiler) checkpoint() checkpoint {
	return checkpoint{
		counter:  c.counter,
		externs:  maps.Clone(c.externs),
		labels:   maps.Clone(c.labels),
		lambdas:  len(c.lambdas),
		cache:    maps.Clone(c.cache),
		strings:  len(c.strings),
		strCache: maps.Clone(c.strCache),
		captures: len(c.captures),
		capCache: maps.Clone(c.capCache),
	}
}

func (c *Compiler) rollback(cp checkpoint) {
	c.counter = cp.counter
	c.externs = cp.externs
	c.labels = cp.labels
	c.lambdas = c.lambdas[:cp.lambdas]
	c.cache = cp.cache
	c.strings = c.strings[:cp.strings]
	c.strCache = cp.strCache
	c.captures = c.captures[:cp.captures]
	c.capCache = cp.capCache
}

// Compile resets the emission context and compiles every target symbol
// together with everything it references. A target that fails leaves no
// trace in the output; the failures of all targets are returned together.
func (c *Compiler) Compile(targets ...string) error {
	c.reset()

	var result *multierror.Error
	for _, target := range targets {
		cp := c.checkpoint()
		if err := c.compileTarget(target); err != nil {
			c.rollback(cp)
			c.logger.Debug().Str("target", target).Err(err).Msg("target failed")

			if e, ok := err.(*Error); ok {
				e.Target = target
			}
			result = multierror.Append(result, err)
			continue
		}
		c.logger.Debug().Str("target", target).Int("lambdas", len(c.lambdas)).Msg("target compiled")
	}

	if result != nil {
		result.ErrorFormat = joinErrors
	}
	return result.ErrorOrNil()
}

// Assemble compiles the targets and returns the assembly text, or no text
// at all if any target failed.
func (c *Compiler) Assemble(targets ...string) (string, error) {
	if err := c.Compile(targets...); err != nil {
		return "", err
	}
	return c.Assembly(), nil
}

// Assemble compiles targets from symbols with a fresh compiler.
func Assemble(symbols SymbolTable, targets ...string) (string, error) {
	return New(symbols).Assemble(targets...)
}

func (c *Compiler) compileTarget(target string) error {
	value, err := c.lookup(target)
	if err != nil {
		return err
	}

	label := mangle(target)
	if c.labels[label] {
		return nil
	}

	switch value.(type) {
	case *ast.Lambda, *ast.Closure:
	default:
		return newError(value, "%s: not a lambda", target)
	}

	key, arity, err := cacheKey(value)
	if err != nil {
		return err
	}
	if _, ok := c.cache[key]; !ok {
		c.cache[key] = compiled{label: label, arity: arity}
	}
	return c.compileLambda(value, label)
}

// lookup returns the value of a global symbol, resolving captured closures
// into plain lambdas.
func (c *Compiler) lookup(name string) (ast.Expr, error) {
	value, ok := c.symbols.Get(name)
	if !ok {
		return nil, newError(ast.NewSymbol(name), "undefined symbol: %s", name)
	}

	if closure, ok := value.(*ast.Closure); ok && closure.IsCaptured() {
		lambda, err := baker.Resolve(closure)
		if err != nil {
			return nil, err
		}
		return lambda, nil
	}
	return value, nil
}

// compileSymbol returns the label and arity of the function a global
// symbol is bound to.
func (c *Compiler) compileSymbol(name string) (string, ast.Arity, error) {
	value, err := c.lookup(name)
	if err != nil {
		return "", 0, err
	}
	return c.compileExpression(value, name)
}

// compileExpression returns the label of the code for a function value,
// compiling it on first use. Anonymous functions get a __lambda label.
func (c *Compiler) compileExpression(expr ast.Expr, name string) (string, ast.Arity, error) {
	switch expr := expr.(type) {
	case *ast.Lambda, *ast.Closure:
		key, arity, err := cacheKey(expr)
		if err != nil {
			return "", 0, err
		}
		if entry, ok := c.cache[key]; ok {
			return entry.label, entry.arity, nil
		}

		label := "__lambda_" + c.unique()
		if name != "" {
			label = mangle(name)
		}
		c.cache[key] = compiled{label: label, arity: arity}

		if err := c.compileLambda(expr, label); err != nil {
			return "", 0, err
		}
		return label, arity, nil

	case *ast.Builtin:
		c.extern(expr.Extern)
		c.extern(expr.Extern + ".continue")
		return expr.Extern, expr.Arity, nil
	}

	return "", 0, newError(expr, "%s: not executable", expr)
}

func (c *Compiler) compileLambda(expr ast.Expr, label string) error {
	lc := &lambdaCompiler{compiler: c, label: label}
	c.labels[label] = true
	c.lambdas = append(c.lambdas, lc)

	if err := lc.compile(expr); err != nil {
		return err
	}
	c.logger.Trace().Str("label", label).Int("instructions", len(lc.instructions)).Msg("lambda compiled")
	return nil
}

// cacheKey identifies a compiled body by its arity, the size of its frame
// and its structure.
func cacheKey(expr ast.Expr) (string, ast.Arity, error) {
	switch expr := expr.(type) {
	case *ast.Lambda:
		return fmt.Sprintf("%d:%d:%s", expr.Arity, expr.Arity, ast.Key(expr.Body)), expr.Arity, nil
	case *ast.Closure:
		if expr.IsCaptured() {
			return "", 0, newError(expr, "%s: captured closure has no code of its own", expr)
		}
		return fmt.Sprintf("%d:%d:%s", expr.Arity, expr.Bindings(), ast.Key(expr.Body)), expr.Arity, nil
	}
	return "", 0, newError(expr, "%s: not a lambda", expr)
}

func (c *Compiler) unique() string {
	result := fmt.Sprintf("%06d", c.counter)
	c.counter++
	return result
}

func (c *Compiler) extern(name string) {
	c.externs[name] = true
}

func (c *Compiler) stringLabel(s string) string {
	if label, ok := c.strCache[s]; ok {
		return label
	}

	label := "__string_" + c.unique()
	c.strCache[s] = label
	c.strings = append(c.strings, dataEntry{label: label, value: s})
	return label
}

func (c *Compiler) captureLabel(captures []int, offset int) string {
	table := captureTable(captures, offset)
	if label, ok := c.capCache[table]; ok {
		return label
	}

	label := "__capture_" + c.unique()
	c.capCache[table] = label
	c.captures = append(c.captures, dataEntry{label: label, value: table})
	return label
}

// Assembly renders the result of the last Compile.
func (c *Compiler) Assembly() string {
	var out bytes.Buffer

	externs := slices.Sorted(maps.Keys(c.externs))
	for _, name := range externs {
		fmt.Fprintf(&out, "extern\t%s\n", name)
	}
	out.WriteString("\n")

	out.WriteString("section .text\n\n")
	for _, lc := range c.lambdas {
		out.WriteString(lc.instructions.String())
		out.WriteString("\n")
	}

	if len(c.strings) > 0 || len(c.captures) > 0 {
		out.WriteString("section .data\n\n")

		for _, s := range c.strings {
			fmt.Fprintf(&out, "%s\tdb %s\n", s.label, dbOperands(s.value))
		}
		for _, capture := range c.captures {
			fmt.Fprintf(&out, "%s\tdw %s, 0\n", capture.label, capture.value)
		}
	}

	return out.String()
}
