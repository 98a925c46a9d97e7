package asmgen

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"kiln/evaluator"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCompiler(t *testing.T, source string, opts ...Option) *Compiler {
	t.Helper()
	env := evaluator.New(&bytes.Buffer{})
	require.NoError(t, env.ImportSource(source))
	return New(env.Symbols(), opts...)
}

func runCompilerTest(t *testing.T, source, target, expected string) {
	t.Helper()
	asm, err := newCompiler(t, source).Assemble(target)
	require.NoError(t, err)

	if asm != expected {
		t.Fatalf("wrong assembly.\nexpected=\n%s\ngot=\n%s", expected, asm)
	}
}

func TestAdd1(t *testing.T) {
	source := `(defun add1 (x) (+ x 1))`
	expected := `extern	__mem_int
extern	builtin_add
extern	builtin_add.continue

section .text

	global	$add1
	global	$add1.continue
$add1:
	pop	rax
	mov	[rsp + 8*1], rax
.continue:
	mov	rax, 1
	call	__mem_int
	push	rax
	jmp	builtin_add.continue

`

	runCompilerTest(t, source, "add1", expected)
}

func TestTailSelfCall(t *testing.T) {
	source := `(defun loop (n acc) (if (eq n 0) acc (loop (- n 1) (+ acc 1))))`
	expected := `extern	__mem_int
extern	__true
extern	builtin_add
extern	builtin_add.continue
extern	builtin_eq
extern	builtin_eq.continue
extern	builtin_sub
extern	builtin_sub.continue

section .text

	global	$loop
	global	$loop.continue
$loop:
	pop	rax
	mov	[rsp + 8*2], rax
.continue:
	push	rax
	mov	rax, [rsp + 8*2]
	push	rax
	mov	rax, 0
	call	__mem_int
	push	rax
	call	builtin_eq
	call	__true
	jc	.if_000000_false

	mov	rax, [rsp + 8*0]
	add	rsp, 8*2
	ret

.if_000000_false:
	push	rax
	mov	rax, [rsp + 8*2]
	push	rax
	mov	rax, 1
	call	__mem_int
	push	rax
	call	builtin_sub
	push	rax
	push	rax
	mov	rax, [rsp + 8*2]
	push	rax
	mov	rax, 1
	call	__mem_int
	push	rax
	call	builtin_add
	push	rax
	pop	rbx
	pop	rcx
	add	rsp, 8*2
	push	rcx
	push	rbx
	jmp	$loop.continue

`

	runCompilerTest(t, source, "loop", expected)

	asm, err := newCompiler(t, source).Assemble("loop")
	require.NoError(t, err)
	assert.NotContains(t, asm, "call\t$loop")
}

func TestParameterTakeOver(t *testing.T) {
	source := `
(defun spin (a b) (spin a b))
(defun walk (l n) (if (eq n 0) l (walk l (- n 1))))
(defun walk_swapped (n l) (if (eq n 0) l (walk_swapped (- n 1) l)))
`
	expected := `
section .text

	global	$spin
	global	$spin.continue
$spin:
	pop	rax
	mov	[rsp + 8*2], rax
.continue:
	jmp	$spin.continue

`
	runCompilerTest(t, source, "spin", expected)

	asm, err := newCompiler(t, source).Assemble("walk")
	require.NoError(t, err)
	assert.Contains(t, asm, "\tcall\tbuiltin_sub\n\tpush\trax\n\tpop\trbx\n\tadd\trsp, 8*1\n\tpush\trbx\n\tjmp\t$walk.continue\n")

	asm, err = newCompiler(t, source).Assemble("walk_swapped")
	require.NoError(t, err)
	assert.Contains(t, asm, "\tpop\trbx\n\tpop\trcx\n\tadd\trsp, 8*2\n\tpush\trcx\n\tpush\trbx\n\tjmp\t$walk_swapped.continue\n")
}

func TestClosureMaterialization(t *testing.T) {
	source := `(defun make_adder (n) (lambda (x) (+ x n)))`
	expected := `extern	__mem_closure
extern	__mem_lambda
extern	builtin_add
extern	builtin_add.continue

section .text

	global	$make_adder
	global	$make_adder.continue
$make_adder:
	pop	rax
	mov	[rsp + 8*1], rax
.continue:
	lea	rsi, [__lambda_000000.continue]
	mov	rbx, 1
	call	__mem_lambda
	lea	rbx, [__capture_000001]
	call	__mem_closure
	add	rsp, 8*1
	ret

__lambda_000000:
	pop	rax
	mov	[rsp + 8*2], rax
.continue:
	mov	rax, [rsp + 8*0]
	push	rax
	pop	rbx
	add	rsp, 8*1
	push	rbx
	jmp	builtin_add.continue

section .data

__capture_000001	dw 8, 0
`

	runCompilerTest(t, source, "make_adder", expected)
}

func TestCaptureOffsets(t *testing.T) {
	source := `(defun both (n) (list (lambda (x) (+ x n)) (lambda (y) (+ n y))))`

	asm, err := newCompiler(t, source).Assemble("both")
	require.NoError(t, err)
	assert.Contains(t, asm, "\tdw 8, 0\n")
	assert.Contains(t, asm, "\tdw 16, 0\n")
	assert.Contains(t, asm, "\tmov\trcx, 2\n\tjmp\tbuiltin_list.continue\n")
}

func TestDeduplication(t *testing.T) {
	source := `
(defun adder_a (n) (lambda (x) (+ x n)))
(defun adder_b (n) (lambda (x) (- x n)))
(defun twins () (list (lambda (x) (+ x 1)) (lambda (y) (+ y 1))))
(defun greet () (println "hi" "hi"))
`
	asm, err := newCompiler(t, source).Assemble("adder_a", "adder_b", "twins", "greet")
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(asm, "\tdw "), "capture descriptors are shared")
	assert.Equal(t, 1, strings.Count(asm, "\tdb "), "strings are shared")
	assert.Equal(t, 3, strings.Count(asm, "\n__lambda_"), "identical bodies are shared")
	assert.Contains(t, asm, "\tmov\trcx, 2\n\tjmp\tbuiltin_println.continue\n")
}

func TestInlineLambda(t *testing.T) {
	source := `
(defun inl (x) ((lambda (y) (+ y 1)) x))
(defun inl_closure (x) ((lambda (y) (+ x y)) 2))
(defun bad (x) ((lambda (y z) y) x))
`
	asm, err := newCompiler(t, source).Assemble("inl")
	require.NoError(t, err)
	assert.NotContains(t, asm, "__lambda_")
	assert.NotContains(t, asm, "__mem_lambda")
	assert.Contains(t, asm, ".continue:\n\tmov\trax, [rsp + 8*0]\n\tpush\trax\n\tmov\trax, [rsp + 8*0]\n\tpush\trax\n")
	assert.Contains(t, asm, "\tadd\trsp, 8*2\n\tpush\trcx\n\tpush\trbx\n\tjmp\tbuiltin_add.continue\n")

	// the captured x is copied on top of the argument
	asm, err = newCompiler(t, source).Assemble("inl_closure")
	require.NoError(t, err)
	assert.Contains(t, asm, "\tcall\t__mem_int\n\tpush\trax\n\tmov\trax, [rsp + 8*1]\n\tpush\trax\n")
	assert.NotContains(t, asm, "__mem_closure")

	_, err = newCompiler(t, source).Assemble("bad")
	assert.EqualError(t, err, "<lambda/2 $2>: expects 2 parameter but got 1")
}

func TestQuotedData(t *testing.T) {
	source := `(defun data () '(1 foo "s"))`

	asm, err := newCompiler(t, source).Assemble("data")
	require.NoError(t, err)
	assert.Contains(t, asm, "\txor\trax, rax\n\tpush\trax\n\tmov\trsi, __string_000000\n\tmov\trbx, 1\n\tcall\t__mem_string\n\tpop\trbx\n\tcall\t__cons\n")
	assert.Contains(t, asm, "\tmov\trbx, 3\n\tcall\t__mem_symbol\n")
	assert.Contains(t, asm, "\tpop\trbx\n\tjmp\t__cons\n")
	assert.Contains(t, asm, "__string_000001\tdb \"foo\"\n")
}

func TestEvalAndDynamicCalls(t *testing.T) {
	source := `
(defun ev (x) (eval x))
(defun app (f x) (f x))
(defun app_nested (f x) (add1 (f x)))
(defun add1 (x) (+ x 1))
`
	asm, err := newCompiler(t, source).Assemble("ev")
	require.NoError(t, err)
	assert.Contains(t, asm, ".continue:\n\tmov\trax, [rsp + 8*0]\n\tadd\trsp, 8*1\n\tjmp\t__eval\n")

	asm, err = newCompiler(t, source).Assemble("app")
	require.NoError(t, err)
	assert.Contains(t, asm, "\tmov\trax, [rsp + 8*2]\n\tpop\trbx\n\tadd\trsp, 8*2\n\tpush\trbx\n\tmov\trcx, 1\n\tjmp\t__apply.continue\n")
	assert.Contains(t, asm, "extern\t__apply.continue\n")

	asm, err = newCompiler(t, source).Assemble("app_nested")
	require.NoError(t, err)
	assert.Contains(t, asm, "\tmov\trcx, 1\n\tcall\t__apply\n")
	assert.Contains(t, asm, "\tjmp\t$add1.continue\n")
	assert.Contains(t, asm, "\n\tglobal\t$add1\n")
}

func TestCompileErrors(t *testing.T) {
	source := `
(defun f (a b) (+ a b))
(defun g (x) (f x))
(defun h (x) (foo x))
(set five 5)
`
	tests := []struct {
		target   string
		expected string
	}{
		{"g", "f: expects 2 parameter but got 1"},
		{"h", "undefined symbol: foo"},
		{"missing", "undefined symbol: missing"},
		{"five", "five: not a lambda"},
		{"head", "head: not a lambda"},
	}

	for _, tt := range tests {
		asm, err := newCompiler(t, source).Assemble(tt.target)
		assert.EqualError(t, err, tt.expected)
		assert.Empty(t, asm, "no artifact for %s", tt.target)
	}
}

func TestFailedTargetIsRolledBack(t *testing.T) {
	source := `
(defun good (x) (+ x 1))
(defun bad (x) (list "leak" (nothere x)))
(defun also_good () "s")
`
	var logs bytes.Buffer
	c := newCompiler(t, source, WithLogger(zerolog.New(&logs)))

	err := c.Compile("good", "bad", "also_good")
	require.EqualError(t, err, "undefined symbol: nothere")

	var compileErr *Error
	require.True(t, errors.As(err, &compileErr))
	assert.Equal(t, "bad", compileErr.Target)

	asm := c.Assembly()
	assert.Contains(t, asm, "\n$good:\n")
	assert.Contains(t, asm, "\n$also_good:\n")
	assert.NotContains(t, asm, "bad")
	assert.NotContains(t, asm, "leak")
	assert.Contains(t, asm, "__string_000000\tdb \"s\"\n")
	assert.Contains(t, logs.String(), "target failed")

	asm, err = c.Assemble("good", "bad")
	assert.Error(t, err)
	assert.Empty(t, asm)
}

func TestCompileResetsBetweenRuns(t *testing.T) {
	c := newCompiler(t, `(defun s1 () "one") (defun s2 () "two")`)

	first, err := c.Assemble("s1")
	require.NoError(t, err)
	second, err := c.Assemble("s2")
	require.NoError(t, err)

	assert.Contains(t, first, "__string_000000\tdb \"one\"")
	assert.Contains(t, second, "__string_000000\tdb \"two\"")
	assert.NotContains(t, second, "s1")
}

func TestReorder(t *testing.T) {
	tests := []struct {
		dead, live int
		expected   string
	}{
		{0, 5, ""},
		{3, 0, "\tadd\trsp, 8*3\n"},
		{1, 2, "\tpop\trbx\n\tpop\trcx\n\tadd\trsp, 8*1\n\tpush\trcx\n\tpush\trbx\n"},
		{2, 13, "\tmov\tecx, 13\n\tlea\trsi, [rsp + 8*12]\n\tlea\trdi, [rsp + 8*14]\n\tstd\n\trep\tmovsq\n\tcld\n\tadd\trsp, 8*2\n"},
	}

	for _, tt := range tests {
		lc := &lambdaCompiler{}
		lc.reorder(tt.dead, tt.live)
		if lc.instructions.String() != tt.expected {
			t.Errorf("reorder(%d, %d) wrong. expected=%q, got=%q", tt.dead, tt.live, tt.expected, lc.instructions.String())
		}
	}
}

func TestLabels(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"add1", "$add1"},
		{"make_adder", "$make_adder"},
		{"make-adder", "$make_x2dadder"},
		{"+", "$_x2b"},
		{"ok?", "$ok_x3f"},
		{"1st", "$_x31st"},
		{"loop", "$loop"},
		{"pause", "$pause"},
		{"str", "$str"},
		{"jnz", "$jnz"},
		{"xmm0", "$xmm0"},
		{"r15d", "$r15d"},
		{"a+", "$a_x2b"},
		{"a_x2b", "$a_x5fx2b"},
		{"_private", "$_x5fprivate"},
		{"__lambda_000000", "$_x5f_lambda_000000"},
		{"builtin_add", "$builtin_x5fadd"},
		{"builtin", "$builtin"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, mangle(tt.name), "mangle(%q)", tt.name)
	}

	assert.True(t, isGlobal("$loop"))
	assert.True(t, isGlobal("$_x2b"))
	assert.False(t, isGlobal("__lambda_000000"))
	assert.Equal(t, `"a", 34, "b", 10`, dbOperands("a\"b\n"))
	assert.Equal(t, "0", dbOperands(""))
	assert.Equal(t, "16, 24, 32", captureTable([]int{3, 2, 1}, 1))
}

func TestDistinctNamesGetDistinctLabels(t *testing.T) {
	source := `
(defun a+ () 1)
(defun a_x2b () 2)
(defun call_both () (list (a+) (a_x2b)))
`
	asm, err := newCompiler(t, source).Assemble("a+", "a_x2b", "call_both")
	require.NoError(t, err)

	assert.Contains(t, asm, "\n$a_x2b:\n\tpop\trax\n\tmov\t[rsp + 8*0], rax\n.continue:\n\tmov\trax, 1\n")
	assert.Contains(t, asm, "\n$a_x5fx2b:\n\tpop\trax\n\tmov\t[rsp + 8*0], rax\n.continue:\n\tmov\trax, 2\n")
	assert.Contains(t, asm, "\tcall\t$a_x2b\n")
	assert.Contains(t, asm, "\tcall\t$a_x5fx2b\n")
}
