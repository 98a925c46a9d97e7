package token

type TokenType string

const (
	// Literals
	Symbol  TokenType = "Symbol"
	Integer TokenType = "Integer"
	String  TokenType = "String"
	True    TokenType = "True"
	Nil     TokenType = "Nil"

	// Grouping
	LeftParen  TokenType = "LeftParen"
	RightParen TokenType = "RightParen"
	Quote      TokenType = "Quote"

	EOF     TokenType = "EOF" // End of File
	Illegal TokenType = "Illegal"
)

type Token struct {
	Literal string
	Type    TokenType
	Line    int
}

func MakeToken(Type TokenType, char byte) Token {
	return Token{Type: Type, Literal: string(char)}
}
