package parser

import (
	"github.com/funvibe/jot/internal/ast"
	"github.com/funvibe/jot/internal/diagnostics"
	"github.com/funvibe/jot/internal/token"
)

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.fail(diagnostics.ErrP002, p.curToken, "unexpected %s in expression", describeToken(p.curToken))
		return nil
	}
	leftExp := prefix()
	if leftExp == nil {
		return nil
	}

	for !p.peekTokenIs(token.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
		if leftExp == nil {
			return nil
		}
	}
	return leftExp
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	value, ok := p.curToken.Literal.(int64)
	if !ok {
		p.fail(diagnostics.ErrP004, p.curToken, "invalid integer literal %s", p.curToken.Lexeme)
		return nil
	}
	return &ast.IntegerLiteral{Token: p.curToken, Value: value}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	value, _ := p.curToken.Literal.(string)
	return &ast.StringLiteral{Token: p.curToken, Value: value}
}

func (p *Parser) parseBoolean() ast.Expression {
	return &ast.BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parseNull() ast.Expression {
	return &ast.NullLiteral{Token: p.curToken}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expr := &ast.PrefixExpression{Token: p.curToken, Operator: p.curToken.Lexeme}
	p.nextToken()
	expr.Right = p.parseExpression(PREFIX)
	if expr.Right == nil {
		return nil
	}
	return expr
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expr := &ast.InfixExpression{Token: p.curToken, Operator: p.curToken.Lexeme, Left: left}
	precedence := p.curPrecedence()
	p.nextToken()
	expr.Right = p.parseExpression(precedence)
	if expr.Right == nil {
		return nil
	}
	return expr
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if exp == nil || !p.expectPeek(token.RPAREN) {
		return nil
	}
	return exp
}

func (p *Parser) parseCallExpression(function ast.Expression) ast.Expression {
	switch function.(type) {
	case *ast.Identifier, *ast.MemberExpression:
	default:
		p.fail(diagnostics.ErrP001, p.curToken, "expression is not callable")
		return nil
	}
	call := &ast.CallExpression{Token: p.curToken, Function: function}
	call.Arguments = p.parseExpressionList(token.RPAREN)
	if call.Arguments == nil {
		return nil
	}
	return call
}

// parseExpressionList expects curToken on the opening delimiter and leaves it on end.
func (p *Parser) parseExpressionList(end token.TokenType) []ast.Expression {
	list := []ast.Expression{}
	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}
	p.nextToken()
	for {
		arg := p.parseExpression(LOWEST)
		if arg == nil {
			return nil
		}
		list = append(list, arg)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
		p.nextToken()
	}
	if !p.expectPeek(end) {
		return nil
	}
	return list
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	expr := &ast.IndexExpression{Token: p.curToken, Left: left}
	p.nextToken()
	expr.Index = p.parseExpression(LOWEST)
	if expr.Index == nil || !p.expectPeek(token.RBRACKET) {
		return nil
	}
	return expr
}

func (p *Parser) parseMemberExpression(object ast.Expression) ast.Expression {
	expr := &ast.MemberExpression{Token: p.curToken, Object: object}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	expr.Member = p.curToken.Lexeme
	return expr
}

func (p *Parser) parseMethodRef(left ast.Expression) ast.Expression {
	ref := &ast.MethodRefExpression{Token: p.curToken}
	ref.Class = qualifiedNameOf(left)
	if ref.Class == nil {
		p.fail(diagnostics.ErrP001, p.curToken, "method reference requires a class name")
		return nil
	}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	ref.Method = p.curToken.Lexeme
	return ref
}

// qualifiedNameOf converts an identifier chain a.b.C into a qualified name.
func qualifiedNameOf(expr ast.Expression) *ast.QualifiedName {
	switch e := expr.(type) {
	case *ast.Identifier:
		return &ast.QualifiedName{Token: e.Token, Parts: []string{e.Value}}
	case *ast.MemberExpression:
		inner := qualifiedNameOf(e.Object)
		if inner == nil {
			return nil
		}
		inner.Parts = append(inner.Parts, e.Member)
		return inner
	}
	return nil
}

// parseNewExpression handles `new T[size]` and `new C(args)`.
func (p *Parser) parseNewExpression() ast.Expression {
	newTok := p.curToken
	p.nextToken()
	name := p.parseQualifiedName()
	if name == nil {
		return nil
	}

	switch {
	case p.peekTokenIs(token.LBRACKET):
		p.nextToken()
		expr := &ast.NewArrayExpression{Token: newTok, Elem: &ast.TypeRef{Token: name.Token, Name: name.String()}}
		p.nextToken()
		expr.Size = p.parseExpression(LOWEST)
		if expr.Size == nil || !p.expectPeek(token.RBRACKET) {
			return nil
		}
		for p.peekTokenIs(token.LBRACKET) && p.tokenAt(1).Type == token.RBRACKET {
			p.nextToken()
			p.nextToken()
			expr.Elem.Dims++
		}
		return expr
	case p.peekTokenIs(token.LPAREN):
		p.nextToken()
		expr := &ast.NewObjectExpression{Token: newTok, Class: name}
		expr.Arguments = p.parseExpressionList(token.RPAREN)
		if expr.Arguments == nil {
			return nil
		}
		return expr
	}
	p.fail(diagnostics.ErrP001, p.peekToken, "expected '[' or '(' after new %s", name.String())
	return nil
}
