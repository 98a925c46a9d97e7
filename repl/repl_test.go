package repl

import (
	"bytes"
	"strings"
	"testing"

	"kiln/evaluator"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, input string) string {
	t.Helper()
	color.NoColor = true

	var out bytes.Buffer
	r := New(evaluator.New(&out), &out)
	require.NoError(t, r.Start(strings.NewReader(input)))
	return out.String()
}

func TestSession(t *testing.T) {
	input := `(defun add1 (x) (+ x 1))
(add1 41)
(list 1
  2
  "three")
(println "hi")
`
	expected := `>> <lambda/1 (+ $1 1)>
>> 42
>> .. .. (1 2 "three")
>> hi
>> 
`
	assert.Equal(t, expected, run(t, input))
}

func TestSideEffectResultsAreNotEchoed(t *testing.T) {
	assert.Equal(t, ">> a>> 1\n>> (#t)\n>> \n", run(t, "(print \"a\")\n(head '(1))\n(list (atom 1))\n"))
}

func TestErrors(t *testing.T) {
	out := run(t, "(foo)\n(1 2\n)\n)\n(add1 1)\n")

	assert.Contains(t, out, "\tfoo: unknown symbol\n")
	assert.Contains(t, out, "\tline 1: illegal syntax: )\n")
	assert.Contains(t, out, "\t1: not executable\n")
}

func TestCommands(t *testing.T) {
	out := run(t, "(defun add1 (x) (+ x 1))\n:asm add1\n:asm nothere\n:asm\n:what\n:quit\n(add1 1)\n")

	assert.Contains(t, out, "\tglobal\t$add1\n")
	assert.Contains(t, out, "\tjmp\tbuiltin_add.continue\n")
	assert.Contains(t, out, "\tundefined symbol: nothere\n")
	assert.Contains(t, out, "\t:asm expects at least one symbol\n")
	assert.Contains(t, out, "\tunknown command :what\n")
	assert.NotContains(t, out, "\n>> 2\n", "input after :quit is ignored")
}

func TestPrompt(t *testing.T) {
	r := New(evaluator.New(&bytes.Buffer{}), &bytes.Buffer{})

	assert.Equal(t, PROMPT, r.Prompt())
	assert.True(t, r.Feed("(+ 1"))
	assert.Equal(t, CONTINUATION, r.Prompt())
	assert.True(t, r.Feed("2)"))
	assert.Equal(t, PROMPT, r.Prompt())
	assert.False(t, r.Feed(":quit"))
}
