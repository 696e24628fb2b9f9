package parser

import (
	"strconv"
	"strings"

	"github.com/mkfoss/dbase3/pkg/ast"
	"github.com/mkfoss/dbase3/pkg/lexer"
)

// ParseCommand parses one full command line/statement. On syntax error it
// sets p.Failed and returns nil or a partly built command; callers check
// p.Failed (cmd/dbase3 reports the error and goes on with the next line
// rather than aborting the whole script).
func (p *Parser) ParseCommand() ast.Command {
	tok := p.peek()
	if tok.Kind == lexer.EOF {
		return nil
	}
	switch {
	case tok.Text == "?" || tok.Text == "??":
		return p.parsePrint()
	case tok.Kind == lexer.At:
		return p.parseSayGet()
	}
	word := strings.ToUpper(tok.Text)
	switch word {
	case "USE":
		return p.parseUse()
	case "CLOSE":
		return p.parseClose()
	case "CREATE":
		return p.parseCreate()
	case "LIST":
		return p.parseList()
	case "DISPLAY":
		return p.parseDisplay()
	case "GO", "GOTO":
		return p.parseGo()
	case "SKIP":
		return p.parseSkip()
	case "LOCATE":
		return p.parseLocate()
	case "CONTINUE":
		p.next()
		return &ast.Continue{}
	case "APPEND":
		return p.parseAppend()
	case "DELETE":
		return &ast.Delete{Scope: p.parseScopeTail(p.consumeKeyword())}
	case "RECALL":
		return &ast.Recall{Scope: p.parseScopeTail(p.consumeKeyword())}
	case "PACK":
		p.next()
		return &ast.Pack{}
	case "ZAP":
		p.next()
		return &ast.Zap{}
	case "REPLACE":
		return p.parseReplace()
	case "STORE":
		return p.parseStore()
	case "SET":
		return p.parseSet()
	case "SELECT":
		p.next()
		return &ast.Select{Alias: p.next().Text}
	case "PUBLIC":
		return p.parseScopeDecl(ast.DeclPublic)
	case "PRIVATE":
		return p.parseScopeDecl(ast.DeclPrivate)
	case "LOCAL":
		return p.parseScopeDecl(ast.DeclLocal)
	case "RELEASE":
		return p.parseRelease()
	case "DECLARE":
		return p.parseDeclare()
	case "CLEAR":
		p.next()
		return &ast.Clear{}
	case "QUIT":
		p.next()
		return &ast.Quit{}
	case "CANCEL":
		p.next()
		return &ast.Cancel{}
	case "RETURN":
		p.next()
		if p.peek().Kind == lexer.EOF {
			return &ast.Return{}
		}
		return &ast.Return{Value: p.ParseExpr()}
	case "INDEX":
		return p.parseIndexOn()
	case "REINDEX":
		p.next()
		return &ast.Reindex{}
	case "SEEK":
		p.next()
		return &ast.Seek{Key: p.ParseExpr()}
	case "FIND":
		p.next()
		return &ast.Find{Literal: p.next().Text}
	case "COUNT":
		return p.parseCount()
	case "SUM":
		return p.parseSumAvg(false)
	case "AVERAGE":
		return p.parseSumAvg(true)
	case "WAIT":
		return p.parseWait()
	case "ACCEPT":
		return p.parsePrompted(func(msg, to string) ast.Command { return &ast.Accept{Message: msg, To: to} })
	case "INPUT":
		return p.parsePrompted(func(msg, to string) ast.Command { return &ast.Input{Message: msg, To: to} })
	case "HELP":
		p.next()
		return &ast.Help{}
	case "IF":
		return p.parseIf()
	case "DO":
		return p.parseDoWhile()
	case "READ":
		p.next()
		return &ast.Read{}
	}
	p.errorf("unrecognized command " + tok.Text)
	p.next()
	return nil
}

func (p *Parser) consumeKeyword() lexer.Token { return p.next() }

// parseScopeTail parses the common ALL/NEXT n/RECORD n/REST + FOR/WHILE
// suffix, in any order, terminating at end-of-line (spec.md §4.6).
func (p *Parser) parseScopeTail(_ lexer.Token) ast.Scope {
	var s ast.Scope
	for {
		tok := p.peek()
		word := strings.ToUpper(tok.Text)
		switch word {
		case "ALL":
			p.next()
			s.Kind = ast.ScopeAll
		case "REST":
			p.next()
			s.Kind = ast.ScopeRest
		case "NEXT":
			p.next()
			s.Kind = ast.ScopeNext
			s.Count = p.parseIntLiteral()
		case "RECORD":
			p.next()
			s.Kind = ast.ScopeRecord
			s.Count = p.parseIntLiteral()
		case "FOR":
			p.next()
			s.For = p.ParseExpr()
		case "WHILE":
			p.next()
			s.While = p.ParseExpr()
		default:
			return s
		}
	}
}

func (p *Parser) parseIntLiteral() int {
	tok := p.next()
	n, err := strconv.Atoi(tok.Text)
	if err != nil {
		p.errorf("expected number, got " + tok.Text)
	}
	return n
}

func (p *Parser) parseUse() ast.Command {
	p.next()
	path := p.next().Text
	cmd := &ast.Use{Path: path}
	for {
		word := strings.ToUpper(p.peek().Text)
		switch word {
		case "ALIAS":
			p.next()
			cmd.Alias = p.next().Text
		case "EXCLUSIVE":
			p.next()
		default:
			return cmd
		}
	}
}

func (p *Parser) parseClose() ast.Command {
	p.next()
	word := strings.ToUpper(p.peek().Text)
	switch word {
	case "DATABASES", "INDEXES", "ALL":
		p.next()
		return &ast.Close{What: word}
	}
	return &ast.Close{}
}

// parseCreate parses CREATE path [(]NAME C(20), AGE N(3,0), ACTIVE L(1)[)],
// the optional TABLE keyword and enclosing parens both accepted so scripts
// can write either dBASE-terse or SQL-flavored field lists.
func (p *Parser) parseCreate() ast.Command {
	p.next()
	if strings.EqualFold(p.peek().Text, "TABLE") {
		p.next()
	}
	path := p.next().Text
	cmd := &ast.CreateTable{Path: path}

	wrapped := p.peek().Kind == lexer.LParen
	if wrapped {
		p.next()
	}
	for p.peek().Kind != lexer.EOF && p.peek().Kind != lexer.RParen {
		name := strings.ToUpper(p.next().Text)
		typeText := strings.ToUpper(p.next().Text)
		if typeText == "" {
			p.errorf("expected field type after " + name)
			break
		}
		spec := ast.FieldSpec{Name: name, Type: typeText[0]}
		if p.peek().Kind == lexer.LParen {
			p.next()
			spec.Length = p.parseIntLiteral()
			if p.peek().Kind == lexer.Comma {
				p.next()
				spec.Decimals = p.parseIntLiteral()
			}
			if p.peek().Kind == lexer.RParen {
				p.next()
			}
		}
		cmd.Fields = append(cmd.Fields, spec)
		if p.peek().Kind == lexer.Comma {
			p.next()
			continue
		}
		break
	}
	if wrapped && p.peek().Kind == lexer.RParen {
		p.next()
	}
	return cmd
}

func (p *Parser) parseFieldExprList() []ast.Expr {
	var out []ast.Expr
	if p.peek().Kind == lexer.EOF || isKeyword(p.peek(), "FOR") || isKeyword(p.peek(), "WHILE") {
		return out
	}
	out = append(out, p.ParseExpr())
	for p.peek().Kind == lexer.Comma {
		p.next()
		out = append(out, p.ParseExpr())
	}
	return out
}

func (p *Parser) parseList() ast.Command {
	p.next()
	cmd := &ast.List{}
	if strings.EqualFold(p.peek().Text, "OFF") {
		p.next()
		cmd.Off = true
	}
	cmd.Fields = p.parseFieldExprList()
	cmd.Scope = p.parseScopeTail(lexer.Token{})
	return cmd
}

func (p *Parser) parseDisplay() ast.Command {
	p.next()
	cmd := &ast.Display{}
	cmd.Fields = p.parseFieldExprList()
	cmd.Scope = p.parseScopeTail(lexer.Token{})
	return cmd
}

func (p *Parser) parseGo() ast.Command {
	p.next()
	word := strings.ToUpper(p.peek().Text)
	switch word {
	case "TOP":
		p.next()
		return &ast.Go{Top: true}
	case "BOTTOM":
		p.next()
		return &ast.Go{Bottom: true}
	}
	return &ast.Go{Record: p.ParseExpr()}
}

func (p *Parser) parseSkip() ast.Command {
	p.next()
	if p.peek().Kind == lexer.EOF {
		return &ast.Skip{}
	}
	return &ast.Skip{Count: p.ParseExpr()}
}

func (p *Parser) parseLocate() ast.Command {
	p.next()
	if strings.EqualFold(p.peek().Text, "FOR") {
		p.next()
	}
	s := ast.Scope{For: p.ParseExpr()}
	tail := p.parseScopeTail(lexer.Token{})
	if tail.Kind != ast.ScopeNone {
		s.Kind = tail.Kind
		s.Count = tail.Count
	}
	if tail.While != nil {
		s.While = tail.While
	}
	return &ast.LocateFor{Scope: s}
}

func (p *Parser) parseAppend() ast.Command {
	p.next()
	if strings.EqualFold(p.peek().Text, "BLANK") {
		p.next()
		return &ast.AppendBlank{}
	}
	if strings.EqualFold(p.peek().Text, "FROM") {
		p.next()
		return &ast.AppendFrom{Path: p.next().Text}
	}
	return &ast.AppendBlank{}
}

func (p *Parser) parseReplace() ast.Command {
	p.next()
	cmd := &ast.Replace{}
	for {
		field := p.next().Text
		if !strings.EqualFold(p.peek().Text, "WITH") {
			p.errorf("expected WITH after " + field)
			return cmd
		}
		p.next()
		val := p.ParseExpr()
		cmd.Sets = append(cmd.Sets, ast.ReplaceSet{Field: field, With: val})
		if p.peek().Kind == lexer.Comma {
			p.next()
			continue
		}
		break
	}
	cmd.Scope = p.parseScopeTail(lexer.Token{})
	return cmd
}

func (p *Parser) parseStore() ast.Command {
	p.next()
	val := p.ParseExpr()
	if !strings.EqualFold(p.peek().Text, "TO") {
		p.errorf("expected TO in STORE")
		return &ast.Store{Value: val}
	}
	p.next()
	cmd := &ast.Store{Value: val, To: []string{p.next().Text}}
	for p.peek().Kind == lexer.Comma {
		p.next()
		cmd.To = append(cmd.To, p.next().Text)
	}
	return cmd
}

func (p *Parser) parseSet() ast.Command {
	p.next()
	word := strings.ToUpper(p.peek().Text)
	switch word {
	case "INDEX":
		p.next()
		if strings.EqualFold(p.peek().Text, "TO") {
			p.next()
		}
		cmd := &ast.SetIndexTo{}
		if p.peek().Kind == lexer.EOF {
			return cmd
		}
		cmd.Paths = append(cmd.Paths, p.next().Text)
		for p.peek().Kind == lexer.Comma {
			p.next()
			cmd.Paths = append(cmd.Paths, p.next().Text)
		}
		return cmd
	case "ORDER":
		p.next()
		if strings.EqualFold(p.peek().Text, "TO") {
			p.next()
		}
		return &ast.SetOrderTo{Order: p.ParseExpr()}
	}
	option := p.next().Text
	cmd := &ast.Set{Option: strings.ToUpper(option)}
	switch strings.ToUpper(p.peek().Text) {
	case "ON":
		p.next()
		cmd.On, cmd.HasOn = true, true
	case "OFF":
		p.next()
		cmd.On, cmd.HasOn = false, true
	case "TO":
		p.next()
		cmd.Value = p.ParseExpr()
	}
	return cmd
}

func (p *Parser) parseScopeDecl(kind ast.ScopeDeclKind) ast.Command {
	p.next()
	cmd := &ast.Scoping{Kind: kind}
	cmd.Names = append(cmd.Names, p.next().Text)
	for p.peek().Kind == lexer.Comma {
		p.next()
		cmd.Names = append(cmd.Names, p.next().Text)
	}
	return cmd
}

func (p *Parser) parseRelease() ast.Command {
	p.next()
	if strings.EqualFold(p.peek().Text, "ALL") {
		p.next()
		return &ast.Release{All: true}
	}
	cmd := &ast.Release{}
	cmd.Names = append(cmd.Names, p.next().Text)
	for p.peek().Kind == lexer.Comma {
		p.next()
		cmd.Names = append(cmd.Names, p.next().Text)
	}
	return cmd
}

func (p *Parser) parseDeclare() ast.Command {
	p.next()
	name := p.next().Text
	cmd := &ast.Declare{Name: name}
	if p.peek().Kind == lexer.LBracket {
		p.next()
		cmd.Size = p.ParseExpr()
		if p.peek().Kind == lexer.RBracket {
			p.next()
		}
	}
	return cmd
}

func (p *Parser) parseIndexOn() ast.Command {
	p.next()
	if strings.EqualFold(p.peek().Text, "ON") {
		p.next()
	}
	key := p.ParseExpr()
	if !strings.EqualFold(p.peek().Text, "TO") {
		p.errorf("expected TO in INDEX ON")
	} else {
		p.next()
	}
	path := p.next().Text
	cmd := &ast.IndexOn{KeyExpr: key, To: path}
	for {
		switch strings.ToUpper(p.peek().Text) {
		case "UNIQUE":
			p.next()
			cmd.Unique = true
		case "DESCENDING":
			p.next()
			cmd.Descending = true
		default:
			return cmd
		}
	}
}

func (p *Parser) parseCount() ast.Command {
	p.next()
	cmd := &ast.Count{}
	if strings.EqualFold(p.peek().Text, "TO") {
		p.next()
		cmd.To = p.next().Text
		cmd.Scope = p.parseScopeTail(lexer.Token{})
		return cmd
	}
	cmd.Scope = p.parseScopeTail(lexer.Token{})
	if strings.EqualFold(p.peek().Text, "TO") {
		p.next()
		cmd.To = p.next().Text
	}
	return cmd
}

func (p *Parser) parseSumAvg(isAvg bool) ast.Command {
	p.next()
	exprs := p.parseFieldExprList()
	var to []string
	if strings.EqualFold(p.peek().Text, "TO") {
		p.next()
		to = append(to, p.next().Text)
		for p.peek().Kind == lexer.Comma {
			p.next()
			to = append(to, p.next().Text)
		}
	}
	scope := p.parseScopeTail(lexer.Token{})
	if isAvg {
		return &ast.Average{Scope: scope, Exprs: exprs, To: to}
	}
	return &ast.Sum{Scope: scope, Exprs: exprs, To: to}
}

func (p *Parser) parseWait() ast.Command {
	p.next()
	cmd := &ast.Wait{}
	if p.peek().Kind == lexer.String {
		cmd.Message = p.next().Text
	}
	if strings.EqualFold(p.peek().Text, "TO") {
		p.next()
		cmd.To = p.next().Text
	}
	return cmd
}

func (p *Parser) parsePrompted(build func(msg, to string) ast.Command) ast.Command {
	p.next()
	var msg string
	if p.peek().Kind == lexer.String {
		msg = p.next().Text
	}
	var to string
	if strings.EqualFold(p.peek().Text, "TO") {
		p.next()
		to = p.next().Text
	}
	return build(msg, to)
}

func (p *Parser) parsePrint() ast.Command {
	tok := p.next()
	cmd := &ast.Print{NewLine: tok.Text == "?"}
	cmd.Exprs = p.parseFieldExprList()
	return cmd
}

// parseDoWhile parses "DO WHILE cond ... ENDDO".
func (p *Parser) parseDoWhile() ast.Command {
	p.next() // DO
	if !strings.EqualFold(p.peek().Text, "WHILE") {
		p.errorf("expected WHILE after DO")
		return nil
	}
	p.next()
	cond := p.ParseExpr()
	cmd := &ast.DoWhile{Cond: cond}
	for !isKeyword(p.peek(), "ENDDO") && p.peek().Kind != lexer.EOF {
		c := p.ParseCommand()
		if c != nil {
			cmd.Body = append(cmd.Body, c)
		}
	}
	if isKeyword(p.peek(), "ENDDO") {
		p.next()
	}
	return cmd
}

// parseSayGet parses "@ row,col SAY expr [GET var]" (spec.md §6).
func (p *Parser) parseSayGet() ast.Command {
	p.next() // @
	row := p.ParseExpr()
	if p.peek().Kind == lexer.Comma {
		p.next()
	}
	col := p.ParseExpr()
	cmd := &ast.SayGet{Row: row, Col: col}
	if strings.EqualFold(p.peek().Text, "SAY") {
		p.next()
		cmd.Say = p.ParseExpr()
	}
	if strings.EqualFold(p.peek().Text, "GET") {
		p.next()
		cmd.Get = p.next().Text
	}
	return cmd
}

func (p *Parser) parseIf() ast.Command {
	p.next()
	cond := p.ParseExpr()
	cmd := &ast.IfStmt{Cond: cond}
	for !isKeyword(p.peek(), "ELSE") && !isKeyword(p.peek(), "ENDIF") && p.peek().Kind != lexer.EOF {
		c := p.ParseCommand()
		if c != nil {
			cmd.Then = append(cmd.Then, c)
		}
	}
	if isKeyword(p.peek(), "ELSE") {
		p.next()
		for !isKeyword(p.peek(), "ENDIF") && p.peek().Kind != lexer.EOF {
			c := p.ParseCommand()
			if c != nil {
				cmd.Else = append(cmd.Else, c)
			}
		}
	}
	if isKeyword(p.peek(), "ENDIF") {
		p.next()
	}
	return cmd
}
