package parser

import (
	"github.com/mkfoss/dbase3/pkg/ast"
	"github.com/mkfoss/dbase3/pkg/lexer"
)

// ParseLine parses a single command from src, reporting syntax errors
// via the returned Parser's Errors/Failed fields rather than panicking
// (spec.md §4.4).
func ParseLine(src string) (ast.Command, *Parser) {
	p := New(src)
	cmd := p.ParseCommand()
	return cmd, p
}

// ParseProgram parses every command in src in order, so multi-line
// blocks (IF/ENDIF, DO WHILE/ENDDO) spanning script lines parse as one
// command. Syntax errors accumulate on the returned Parser; parsing
// continues with the next command, per spec.md §4.4's recovery rule.
func ParseProgram(src string) ([]ast.Command, *Parser) {
	p := New(src)
	var cmds []ast.Command
	for p.peek().Kind != lexer.EOF {
		cmd := p.ParseCommand()
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return cmds, p
}

// ParseExpression parses src as a standalone expression (used by the
// evaluator's macro expansion and by callers like SEEK that already know
// they want an Expr, not a Command). Unlike ParseExpr used mid-command,
// this requires the entire input to be consumed: trailing tokens (e.g. a
// macro substituting plain text like "John Doe" rather than an
// expression) mark the parse Failed so the caller can fall back.
func ParseExpression(src string) (ast.Expr, *Parser) {
	p := New(src)
	expr := p.ParseExpr()
	if p.peek().Kind != lexer.EOF {
		p.errorf("unexpected trailing input")
	}
	return expr, p
}
