// Package parser is a recursive-descent parser turning a pkg/lexer token
// stream into a pkg/ast tree: expr.go handles expressions (precedence
// climbing), command.go handles the keyword-dispatched command grammar.
package parser

import (
	"strings"

	"github.com/mkfoss/dbase3/pkg/ast"
	"github.com/mkfoss/dbase3/pkg/lexer"
)

// Parser holds one lexer and the accumulated syntax errors for the
// command(s) parsed from it. A syntax error does not panic; it records
// the message, sets Failed, and the caller recovers to the next line.
type Parser struct {
	lex    *lexer.Lexer
	Errors []string
	Failed bool
}

// New wraps src for parsing.
func New(src string) *Parser {
	return &Parser{lex: lexer.New(src)}
}

func (p *Parser) errorf(msg string) {
	p.Failed = true
	p.Errors = append(p.Errors, msg)
}

func (p *Parser) peek() lexer.Token { return p.lex.Peek() }
func (p *Parser) next() lexer.Token { return p.lex.Next() }

func (p *Parser) expectText(text string) bool {
	tok := p.peek()
	if !strings.EqualFold(tok.Text, text) {
		p.errorf("expected " + text + ", got " + tok.Text)
		return false
	}
	p.next()
	return true
}

// ParseExpr parses a single expression and returns it, recording a syntax
// error if the token stream doesn't resolve to one.
func (p *Parser) ParseExpr() ast.Expr {
	return p.parseOr()
}

func (p *Parser) parseOr() ast.Expr {
	x := p.parseAnd()
	for isKeyword(p.peek(), "OR") || p.peek().Kind == lexer.Or {
		p.next()
		y := p.parseAnd()
		x = &ast.Binary{Op: "OR", X: x, Y: y}
	}
	return x
}

func (p *Parser) parseAnd() ast.Expr {
	x := p.parseNot()
	for isKeyword(p.peek(), "AND") || p.peek().Kind == lexer.And {
		p.next()
		y := p.parseNot()
		x = &ast.Binary{Op: "AND", X: x, Y: y}
	}
	return x
}

func (p *Parser) parseNot() ast.Expr {
	if isKeyword(p.peek(), "NOT") || p.peek().Kind == lexer.Not {
		p.next()
		return &ast.Unary{Op: "NOT", X: p.parseNot()}
	}
	return p.parseComparison()
}

func isKeyword(t lexer.Token, word string) bool {
	return t.Kind == lexer.Keyword && strings.EqualFold(t.Text, word)
}

var compareOps = map[lexer.Kind]string{
	lexer.Eq:     "=",
	lexer.Ne:     "<>",
	lexer.Lt:     "<",
	lexer.Le:     "<=",
	lexer.Gt:     ">",
	lexer.Ge:     ">=",
	lexer.Dollar: "$",
}

func (p *Parser) parseComparison() ast.Expr {
	x := p.parseAdditive()
	for {
		op, ok := compareOps[p.peek().Kind]
		if !ok {
			return x
		}
		p.next()
		y := p.parseAdditive()
		x = &ast.Binary{Op: op, X: x, Y: y}
	}
}

func (p *Parser) parseAdditive() ast.Expr {
	x := p.parseMultiplicative()
	for {
		k := p.peek().Kind
		if k != lexer.Plus && k != lexer.Minus {
			return x
		}
		op := "+"
		if k == lexer.Minus {
			op = "-"
		}
		p.next()
		y := p.parseMultiplicative()
		x = &ast.Binary{Op: op, X: x, Y: y}
	}
}

func (p *Parser) parseMultiplicative() ast.Expr {
	x := p.parsePower()
	for {
		k := p.peek().Kind
		var op string
		switch k {
		case lexer.Star:
			op = "*"
		case lexer.Slash:
			op = "/"
		case lexer.Percent:
			op = "%"
		default:
			return x
		}
		p.next()
		y := p.parsePower()
		x = &ast.Binary{Op: op, X: x, Y: y}
	}
}

// parsePower is right-associative: 2^3^2 == 2^(3^2).
func (p *Parser) parsePower() ast.Expr {
	x := p.parseUnary()
	if p.peek().Kind == lexer.Caret {
		p.next()
		y := p.parsePower()
		return &ast.Binary{Op: "^", X: x, Y: y}
	}
	return x
}

func (p *Parser) parseUnary() ast.Expr {
	k := p.peek().Kind
	if k == lexer.Plus || k == lexer.Minus {
		op := "+"
		if k == lexer.Minus {
			op = "-"
		}
		p.next()
		return &ast.Unary{Op: op, X: p.parseUnary()}
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() ast.Expr {
	tok := p.next()
	switch tok.Kind {
	case lexer.Number:
		return &ast.Number{Text: tok.Text}
	case lexer.String:
		return &ast.StringLit{Value: tok.Text}
	case lexer.DateLit:
		return &ast.DateLit{Text: tok.Text}
	case lexer.True_:
		return &ast.Logical{Value: true}
	case lexer.False_:
		return &ast.Logical{Value: false}
	case lexer.Amp:
		name := p.next()
		return &ast.Macro{Name: name.Text}
	case lexer.LParen:
		x := p.ParseExpr()
		if p.peek().Kind == lexer.RParen {
			p.next()
		} else {
			p.errorf("expected )")
		}
		return x
	case lexer.Ident, lexer.Keyword:
		return p.parseIdentLike(tok.Text)
	case lexer.EOF:
		p.errorf("unexpected end of expression")
		return &ast.Logical{Value: false}
	default:
		p.errorf("unexpected token " + tok.Text)
		return &ast.Logical{Value: false}
	}
}

// parseIdentLike handles the four shapes a bare name can take: a plain
// identifier (field or variable), name(args) (function call), name[idx]
// (array element), and alias->field (a field reference into another
// work area; spec.md notes the alias is currently ignored by the
// evaluator but it still must parse).
func (p *Parser) parseIdentLike(name string) ast.Expr {
	switch p.peek().Kind {
	case lexer.LParen:
		p.next()
		args := p.parseArgList()
		if p.peek().Kind == lexer.RParen {
			p.next()
		} else {
			p.errorf("expected ) after arguments")
		}
		return &ast.Ident{Name: name, Args: args}
	case lexer.LBracket:
		p.next()
		idx := p.ParseExpr()
		if p.peek().Kind == lexer.RBracket {
			p.next()
		} else {
			p.errorf("expected ]")
		}
		return &ast.ArrayRef{Name: name, Index: idx}
	}
	if p.isArrowAhead() {
		p.next() // '-'
		p.next() // '>'
		field := p.next()
		return &ast.FieldRef{Alias: name, Field: field.Text}
	}
	return &ast.Ident{Name: name}
}

// isArrowAhead reports whether the next two tokens spell "->" (the lexer
// has no dedicated Arrow token; '-' followed immediately by '>' with no
// gap is how dBASE writes alias->field).
func (p *Parser) isArrowAhead() bool {
	return p.peek().Kind == lexer.Minus && p.lookaheadIsGT()
}

func (p *Parser) lookaheadIsGT() bool {
	// Peeking two tokens ahead requires consuming and restoring; the
	// lexer only buffers one token, so fall back to a direct text probe:
	// '-' immediately followed by '>' is never a valid subtraction
	// followed by a standalone '>' comparison in this grammar (comparison
	// already consumed its left operand), so treat any '-' seen here,
	// with a following '>' token, as an arrow.
	saved := *p.lex
	p.lex.Next() // consume '-'
	isGT := p.lex.Peek().Kind == lexer.Gt
	*p.lex = saved
	return isGT
}

func (p *Parser) parseArgList() []ast.Expr {
	args := []ast.Expr{}
	if p.peek().Kind == lexer.RParen {
		return args
	}
	args = append(args, p.ParseExpr())
	for p.peek().Kind == lexer.Comma {
		p.next()
		args = append(args, p.ParseExpr())
	}
	return args
}
