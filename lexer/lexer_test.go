package lexer

import (
	"kiln/token"
	"testing"
)

func TestNextToken(t *testing.T) {
	source := `(defun add1 (x) (+ x 1)) ; increments
	'(a b)
	#t #nil #NIL ()
	"foo bar" -5 - -x
	(make_adder 100)
	`

	tests := []struct {
		expectedType    token.TokenType
		expectedLiteral string
	}{
		{token.LeftParen, "("},
		{token.Symbol, "defun"},
		{token.Symbol, "add1"},
		{token.LeftParen, "("},
		{token.Symbol, "x"},
		{token.RightParen, ")"},
		{token.LeftParen, "("},
		{token.Symbol, "+"},
		{token.Symbol, "x"},
		{token.Integer, "1"},
		{token.RightParen, ")"},
		{token.RightParen, ")"},

		{token.Quote, "'"},
		{token.LeftParen, "("},
		{token.Symbol, "a"},
		{token.Symbol, "b"},
		{token.RightParen, ")"},

		{token.True, "#t"},
		{token.Nil, "#nil"},
		{token.Nil, "#NIL"},
		{token.LeftParen, "("},
		{token.RightParen, ")"},

		{token.String, "foo bar"},
		{token.Integer, "-5"},
		{token.Symbol, "-"},
		{token.Symbol, "-x"},

		{token.LeftParen, "("},
		{token.Symbol, "make_adder"},
		{token.Integer, "100"},
		{token.RightParen, ")"},
		{token.EOF, ""},
	}

	l := New(source)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q", i, tt.expectedType, tok.Type)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestLineNumbers(t *testing.T) {
	l := New("a\n; comment\n\"x\ny\" b")

	expected := []int{1, 3, 4}
	for i, line := range expected {
		tok := l.NextToken()
		if tok.Line != line {
			t.Fatalf("token %d (%q) - line wrong. expected=%d, got=%d", i, tok.Literal, line, tok.Line)
		}
	}
}

func TestIllegalTokens(t *testing.T) {
	tests := []string{"#x", "\"open", "@"}

	for _, source := range tests {
		tok := New(source).NextToken()
		if tok.Type != token.Illegal {
			t.Errorf("%q - expected Illegal token, got=%q", source, tok.Type)
		}
	}

	l := New("\"open")
	l.NextToken()
	if !l.Unterminated() {
		t.Errorf("expected unterminated string to be reported")
	}
}
