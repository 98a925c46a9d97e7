package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"kiln/ast"
	"kiln/lexer"
	"kiln/token"

	"github.com/hashicorp/go-multierror"
)

type Parser struct {
	lexer *lexer.Lexer

	currToken token.Token
	peekToken token.Token

	errors     []string
	incomplete bool
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{lexer: l, errors: make([]string, 0)}

	// peekToken and currToken are initialized to the zero value of token.Token, so we advance twice
	p.nextToken() // set peek
	p.nextToken() // set curr and peek

	return p
}

func (p *Parser) Errors() []string {
	return p.errors
}

// Err folds all collected errors into one, or returns nil.
func (p *Parser) Err() error {
	var result *multierror.Error
	for _, msg := range p.errors {
		result = multierror.Append(result, errors.New(msg))
	}
	if result != nil {
		result.ErrorFormat = JoinErrors
	}
	return result.ErrorOrNil()
}

// Incomplete reports whether the input ended in the middle of an item, so
// more input could still complete it.
func (p *Parser) Incomplete() bool {
	return p.incomplete
}

// JoinErrors renders a list of errors on a single line.
func JoinErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (p *Parser) nextToken() {
	p.currToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

func (p *Parser) currTokenIs(t token.TokenType) bool {
	return p.currToken.Type == t
}

func (p *Parser) errorf(format string, args ...any) {
	msg := fmt.Sprintf("line %d: ", p.currToken.Line) + fmt.Sprintf(format, args...)
	p.errors = append(p.errors, msg)
}

func (p *Parser) endOfData() {
	p.incomplete = true
	p.errorf("illegal end of data")
}

// ParseItem parses exactly one item, as typed on a single REPL line.
func (p *Parser) ParseItem() ast.Expr {
	item := p.parseItem()
	if item == nil {
		return nil
	}

	p.nextToken()
	if !p.currTokenIs(token.EOF) {
		p.errorf("illegal syntax: %s after item", p.currToken.Literal)
		return nil
	}
	return item
}

// ParseFile parses a sequence of items up to the end of input.
func (p *Parser) ParseFile() []ast.Expr {
	items := []ast.Expr{}

	for !p.currTokenIs(token.EOF) {
		item := p.parseItem()
		if item == nil {
			return items
		}
		items = append(items, item)
		p.nextToken()
	}

	return items
}

func (p *Parser) parseItem() ast.Expr {
	switch p.currToken.Type {
	case token.Symbol:
		return ast.NewSymbol(p.currToken.Literal)
	case token.Integer:
		return p.parseInteger()
	case token.String:
		return ast.NewStr(p.currToken.Literal)
	case token.True:
		return &ast.True{}
	case token.Nil:
		return ast.Nil()
	case token.Quote:
		p.nextToken()
		item := p.parseItem()
		if item == nil {
			return nil
		}
		return ast.NewList(ast.NewSymbol("quote"), item)
	case token.LeftParen:
		return p.parseList()
	case token.EOF:
		p.endOfData()
		return nil
	case token.Illegal:
		if p.lexer.Unterminated() {
			p.endOfData()
			return nil
		}
		p.errorf("illegal character: %s", p.currToken.Literal)
		return nil
	}

	p.errorf("illegal syntax: %s", p.currToken.Literal)
	return nil
}

func (p *Parser) parseInteger() ast.Expr {
	value, err := strconv.ParseInt(p.currToken.Literal, 10, 64)
	if err != nil {
		p.errorf("could not parse %q as integer", p.currToken.Literal)
		return nil
	}
	return ast.NewInteger(value)
}

func (p *Parser) parseList() ast.Expr {
	items := []ast.Expr{}

	p.nextToken() // eat (
	for !p.currTokenIs(token.RightParen) {
		item := p.parseItem()
		if item == nil {
			return nil
		}
		items = append(items, item)
		p.nextToken()
	}

	return ast.NewList(items...)
}

// ParseLine parses a single item from source.
func ParseLine(source string) (ast.Expr, error) {
	p := New(lexer.New(source))
	item := p.ParseItem()
	if err := p.Err(); err != nil {
		return nil, err
	}
	return item, nil
}

// ParseSource parses every item of a source file.
func ParseSource(source string) ([]ast.Expr, error) {
	p := New(lexer.New(source))
	items := p.ParseFile()
	if err := p.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
