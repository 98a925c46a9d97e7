package parser

import (
	"testing"

	"kiln/ast"
	"kiln/lexer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseItem(t *testing.T) {
	tests := []struct {
		source   string
		expected string
	}{
		{"42", "42"},
		{"-7", "-7"},
		{"foo", "foo"},
		{`"hello world"`, `"hello world"`},
		{"#t", "#t"},
		{"#NiL", "()"},
		{"()", "()"},
		{"'x", "'x"},
		{"'(1 2)", "'(1 2)"},
		{"(+ 1 (* 2 3))", "(+ 1 (* 2 3))"},
		{"(defun add1 (x) (+ x 1)) ; trailing comment", "(defun add1 (x) (+ x 1))"},
		{"(lambda (x)\n  (if (lt x 0) (- 0 x) x))", "(lambda (x) (if (lt x 0) (- 0 x) x))"},
	}

	for _, tt := range tests {
		p := New(lexer.New(tt.source))
		item := p.ParseItem()
		checkParserErrors(t, p)

		if item.String() != tt.expected {
			t.Fatalf("item.String() wrong. expected=%q, got=%q", tt.expected, item.String())
		}
	}
}

func TestParseQuoteForm(t *testing.T) {
	item, err := ParseLine("'foo")
	require.NoError(t, err)

	list, ok := item.(*ast.List)
	require.True(t, ok)
	require.Equal(t, 2, list.Len())
	assert.True(t, ast.IsHead(list, "quote"))
	assert.Equal(t, "foo", list.Items[1].String())
}

func TestParseFile(t *testing.T) {
	source := `
; add one
(defun add1 (x) (+ x 1))

(set five 5)
(add1 five)
`
	items, err := ParseSource(source)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "(set five 5)", items[1].String())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		source     string
		expected   string
		incomplete bool
	}{
		{"(+ 1 2", "line 1: illegal end of data", true},
		{"'", "line 1: illegal end of data", true},
		{`(print "abc`, "line 1: illegal end of data", true},
		{")", "line 1: illegal syntax: )", false},
		{"#x", "line 1: illegal character: #x", false},
		{"1 2", "line 1: illegal syntax: 2 after item", false},
		{"(a\n  ])", "line 2: illegal character: ]", false},
	}

	for _, tt := range tests {
		p := New(lexer.New(tt.source))
		p.ParseItem()

		errors := p.Errors()
		require.Len(t, errors, 1, "source %q", tt.source)
		assert.Equal(t, tt.expected, errors[0])
		assert.Equal(t, tt.incomplete, p.Incomplete(), "source %q", tt.source)
		assert.EqualError(t, p.Err(), tt.expected)
	}
}

func TestParseSourceStopsAtFirstError(t *testing.T) {
	_, err := ParseSource("(set a 1)\n(set b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2: illegal end of data")
}

func checkParserErrors(t *testing.T, p *Parser) {
	errors := p.Errors()
	if len(errors) == 0 {
		return
	}
	for _, msg := range errors {
		t.Errorf("parser error: %q", msg)
	}
	t.FailNow()
}
