package parser

import (
	"github.com/funvibe/jot/internal/ast"
	"github.com/funvibe/jot/internal/diagnostics"
	"github.com/funvibe/jot/internal/token"
)

var assignOperators = map[token.TokenType]string{
	token.ASSIGN:          "",
	token.PLUS_ASSIGN:     "+",
	token.MINUS_ASSIGN:    "-",
	token.ASTERISK_ASSIGN: "*",
	token.SLASH_ASSIGN:    "/",
	token.PERCENT_ASSIGN:  "%",
}

// parseBlockStatement expects curToken on '{' and leaves it on '}'.
func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.curToken}
	p.nextToken()

	for !p.curTokenIs(token.RBRACE) {
		if p.curTokenIs(token.EOF) {
			p.fail(diagnostics.ErrP001, p.curToken, "expected '}' to close block opened at line %d", block.Token.Line)
			return nil
		}
		stmt := p.parseStatement()
		if p.failed {
			return nil
		}
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}
	block.EndToken = p.curToken
	return block
}

// parseStatement leaves curToken on the statement's last token (';' or '}').
// It returns nil for an empty statement.
func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.SEMICOLON:
		return nil
	case token.LBRACE:
		if b := p.parseBlockStatement(); b != nil {
			return b
		}
		return nil
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.FOR:
		return p.parseForStatement()
	case token.BREAK:
		stmt := &ast.BreakStatement{Token: p.curToken}
		if !p.expectPeek(token.SEMICOLON) {
			return nil
		}
		return stmt
	case token.CONTINUE:
		stmt := &ast.ContinueStatement{Token: p.curToken}
		if !p.expectPeek(token.SEMICOLON) {
			return nil
		}
		return stmt
	case token.RETURN:
		return p.parseReturnStatement()
	case token.THROW:
		stmt := &ast.ThrowStatement{Token: p.curToken}
		p.nextToken()
		stmt.Value = p.parseExpression(LOWEST)
		if stmt.Value == nil || !p.expectPeek(token.SEMICOLON) {
			return nil
		}
		return stmt
	case token.MODIFIER:
		// `final int x = 1;`
		p.nextToken()
		return p.parseStatement()
	}

	stmt := p.parseSimpleStatement()
	if stmt == nil || !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	return stmt
}

// isDeclarationStart reports whether the tokens at curToken form `Type name`.
func (p *Parser) isDeclarationStart() bool {
	if !p.curTokenIs(token.IDENT) {
		return false
	}
	// Walk IDENT (. IDENT)* ([ ])* and expect an IDENT after it.
	i := -1 // index relative to peekToken; -1 is curToken
	at := func(n int) token.Token {
		if n < 0 {
			return p.curToken
		}
		return p.tokenAt(n)
	}
	for at(i+1).Type == token.DOT && at(i+2).Type == token.IDENT {
		i += 2
	}
	for at(i+1).Type == token.LBRACKET && at(i+2).Type == token.RBRACKET {
		i += 2
	}
	return at(i+1).Type == token.IDENT
}

// parseSimpleStatement parses a declaration, assignment, increment or call
// without its terminating ';'.
func (p *Parser) parseSimpleStatement() ast.Statement {
	if p.isDeclarationStart() {
		return p.parseVarStatement()
	}

	start := p.curToken
	expr := p.parseExpression(LOWEST)
	if expr == nil {
		return nil
	}

	if op, ok := assignOperators[p.peekToken.Type]; ok {
		if !isAssignable(expr) {
			p.fail(diagnostics.ErrP003, p.peekToken, "invalid assignment target")
			return nil
		}
		p.nextToken()
		stmt := &ast.AssignStatement{Token: p.curToken, Target: expr, Operator: op}
		p.nextToken()
		stmt.Value = p.parseExpression(LOWEST)
		if stmt.Value == nil {
			return nil
		}
		return stmt
	}

	if p.peekTokenIs(token.INCREMENT) || p.peekTokenIs(token.DECREMENT) {
		if !isAssignable(expr) {
			p.fail(diagnostics.ErrP003, p.peekToken, "invalid increment target")
			return nil
		}
		p.nextToken()
		op := "+"
		if p.curTokenIs(token.DECREMENT) {
			op = "-"
		}
		return &ast.IncDecStatement{Token: p.curToken, Target: expr, Operator: op}
	}

	switch expr.(type) {
	case *ast.CallExpression, *ast.NewObjectExpression:
		return &ast.ExpressionStatement{Token: start, Expression: expr}
	}
	p.fail(diagnostics.ErrP003, start, "not a statement")
	return nil
}

func isAssignable(expr ast.Expression) bool {
	switch expr.(type) {
	case *ast.Identifier, *ast.MemberExpression, *ast.IndexExpression:
		return true
	}
	return false
}

// parseVarStatement leaves curToken on the last token of the initializer (or the name).
func (p *Parser) parseVarStatement() ast.Statement {
	stmt := &ast.VarStatement{Token: p.curToken}
	stmt.Type = p.parseType()
	if stmt.Type == nil || !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Name = p.curToken.Lexeme

	if p.peekTokenIs(token.ASSIGN) {
		p.nextToken()
		p.nextToken()
		stmt.Value = p.parseExpression(LOWEST)
		if stmt.Value == nil {
			return nil
		}
	} else if stmt.Type.Name == "var" && stmt.Type.Dims == 0 {
		p.fail(diagnostics.ErrP001, stmt.Token, "cannot infer type for local variable %s without initializer", stmt.Name)
		return nil
	}
	return stmt
}

func (p *Parser) parseReturnStatement() ast.Statement {
	stmt := &ast.ReturnStatement{Token: p.curToken}
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		return stmt
	}
	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	if stmt.Value == nil || !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	return stmt
}

// parseBody parses a loop or branch body, which may be a single statement.
func (p *Parser) parseBody() ast.Statement {
	p.nextToken()
	stmt := p.parseStatement()
	if p.failed {
		return nil
	}
	if stmt == nil {
		return &ast.BlockStatement{Token: p.curToken, EndToken: p.curToken}
	}
	return stmt
}

func (p *Parser) parseCondition() ast.Expression {
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	if cond == nil || !p.expectPeek(token.RPAREN) {
		return nil
	}
	return cond
}

func (p *Parser) parseIfStatement() ast.Statement {
	stmt := &ast.IfStatement{Token: p.curToken}
	if stmt.Condition = p.parseCondition(); stmt.Condition == nil {
		return nil
	}
	if stmt.Consequence = p.parseBody(); stmt.Consequence == nil {
		return nil
	}
	if p.peekTokenIs(token.ELSE) {
		p.nextToken()
		if stmt.Alternative = p.parseBody(); stmt.Alternative == nil {
			return nil
		}
	}
	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	stmt := &ast.WhileStatement{Token: p.curToken}
	if stmt.Condition = p.parseCondition(); stmt.Condition == nil {
		return nil
	}
	if stmt.Body = p.parseBody(); stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseForStatement() ast.Statement {
	stmt := &ast.ForStatement{Token: p.curToken}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}

	p.nextToken()
	if !p.curTokenIs(token.SEMICOLON) {
		if stmt.Init = p.parseSimpleStatement(); stmt.Init == nil {
			return nil
		}
		if !p.expectPeek(token.SEMICOLON) {
			return nil
		}
	}

	p.nextToken()
	if !p.curTokenIs(token.SEMICOLON) {
		if stmt.Condition = p.parseExpression(LOWEST); stmt.Condition == nil {
			return nil
		}
		if !p.expectPeek(token.SEMICOLON) {
			return nil
		}
	}

	p.nextToken()
	if !p.curTokenIs(token.RPAREN) {
		if stmt.Update = p.parseSimpleStatement(); stmt.Update == nil {
			return nil
		}
		if _, isDecl := stmt.Update.(*ast.VarStatement); isDecl {
			p.fail(diagnostics.ErrP003, stmt.Update.GetToken(), "declaration not allowed in for update")
			return nil
		}
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
	}

	if stmt.Body = p.parseBody(); stmt.Body == nil {
		return nil
	}
	return stmt
}
