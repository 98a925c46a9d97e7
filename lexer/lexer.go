package lexer

import (
	"kiln/token"
)

const (
	leftParen  = '('
	rightParen = ')'
	quote      = '\''
	dquote     = '"'
	hash       = '#'
	semi       = ';'
	minus      = '-'
)

type Lexer struct {
	source       string
	position     int
	readPosition int
	char         byte
	line         int

	unterminated bool
}

func New(source string) *Lexer {
	lexer := &Lexer{source: source, line: 1}
	lexer.readChar() // set up lexer
	return lexer
}

// Unterminated reports whether the source ended inside a string literal.
func (l *Lexer) Unterminated() bool {
	return l.unterminated
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.source) {
		l.char = 0
	} else {
		l.char = l.source[l.readPosition]
	}

	l.position = l.readPosition
	l.readPosition += 1
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.source) {
		return 0
	}
	return l.source[l.readPosition]
}

func (l *Lexer) readSymbol() string {
	position := l.position

	l.readChar() // first char was already checked by the caller
	for isSymbolChar(l.char) {
		l.readChar()
	}
	return l.source[position:l.position]
}

func (l *Lexer) readNumber() string {
	position := l.position
	if l.char == minus {
		l.readChar()
	}
	for isDigit(l.char) {
		l.readChar()
	}
	return l.source[position:l.position]
}

func (l *Lexer) readString() string {
	position := l.position + 1 // advance past "

	for {
		l.readChar()
		if l.char == '\n' {
			l.line++
		}
		if l.char == dquote || l.char == 0 {
			break
		}
	}
	if l.char == 0 {
		l.unterminated = true
	}
	return l.source[position:l.position]
}

func (l *Lexer) readHash() (token.TokenType, string) {
	position := l.position
	l.readChar() // advance past #
	for isSymbolChar(l.char) {
		l.readChar()
	}
	literal := l.source[position:l.position]

	switch literal {
	case "#t", "#T":
		return token.True, literal
	}
	if len(literal) == 4 && (literal[1] == 'n' || literal[1] == 'N') &&
		(literal[2] == 'i' || literal[2] == 'I') &&
		(literal[3] == 'l' || literal[3] == 'L') {
		return token.Nil, literal
	}
	return token.Illegal, literal
}

// skips whitespace and ; comments up to the end of the line
func (l *Lexer) skipWhitespace() {
	for {
		switch l.char {
		case ' ', '\t', '\r':
			l.readChar()
		case '\n':
			l.line++
			l.readChar()
		case semi:
			for l.char != '\n' && l.char != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *Lexer) NextToken() token.Token {
	var tok token.Token
	l.skipWhitespace()
	line := l.line

	switch l.char {
	case leftParen:
		tok = token.MakeToken(token.LeftParen, l.char)
	case rightParen:
		tok = token.MakeToken(token.RightParen, l.char)
	case quote:
		tok = token.MakeToken(token.Quote, l.char)
	case dquote:
		tok.Literal = l.readString()
		tok.Type = token.String
		if l.unterminated {
			tok.Type = token.Illegal
		}
	case hash:
		tok.Type, tok.Literal = l.readHash()
		tok.Line = line
		return tok
	case 0:
		tok.Literal = ""
		tok.Type = token.EOF

	default:
		if isDigit(l.char) || (l.char == minus && isDigit(l.peekChar())) {
			tok.Literal = l.readNumber()
			tok.Type = token.Integer
			tok.Line = line
			return tok // the number reader already advanced past the last digit
		} else if isSymbolStart(l.char) {
			tok.Literal = l.readSymbol()
			tok.Type = token.Symbol
			tok.Line = line
			return tok
		}
		tok = token.MakeToken(token.Illegal, l.char)
	}

	tok.Line = line
	l.readChar()
	return tok
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isSymbolStart(c byte) bool {
	if isLetter(c) {
		return true
	}
	switch c {
	case '+', '-', '*', '/', '_', '=', '<', '>', '!', '?':
		return true
	}
	return false
}

func isSymbolChar(c byte) bool {
	return isSymbolStart(c) || isDigit(c)
}
