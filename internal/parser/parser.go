package parser

import (
	"fmt"

	"github.com/funvibe/jot/internal/ast"
	"github.com/funvibe/jot/internal/diagnostics"
	"github.com/funvibe/jot/internal/pipeline"
	"github.com/funvibe/jot/internal/token"
)

const (
	_ int = iota
	LOWEST
	OR          // ||
	AND         // &&
	EQUALS      // == !=
	LESSGREATER // < > <= >=
	SUM         // + -
	PRODUCT     // * / %
	PREFIX      // -x !x
	POSTFIX     // f(x) a[i] a.b C::m
)

var precedences = map[token.TokenType]int{
	token.OR:          OR,
	token.AND:         AND,
	token.EQ:          EQUALS,
	token.NOT_EQ:      EQUALS,
	token.LT:          LESSGREATER,
	token.GT:          LESSGREATER,
	token.LTE:         LESSGREATER,
	token.GTE:         LESSGREATER,
	token.PLUS:        SUM,
	token.MINUS:       SUM,
	token.ASTERISK:    PRODUCT,
	token.SLASH:       PRODUCT,
	token.PERCENT:     PRODUCT,
	token.LPAREN:      POSTFIX,
	token.LBRACKET:    POSTFIX,
	token.DOT:         POSTFIX,
	token.COLON_COLON: POSTFIX,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

type Parser struct {
	ctx    *pipeline.PipelineContext
	tokens []token.Token
	pos    int

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn

	failed bool
}

// New creates a parser over a token slice that ends with EOF.
func New(tokens []token.Token, ctx *pipeline.PipelineContext) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != token.EOF {
		tokens = append(tokens, token.Token{Type: token.EOF})
	}
	p := &Parser{ctx: ctx, tokens: tokens, pos: -1}

	p.prefixParseFns = map[token.TokenType]prefixParseFn{
		token.IDENT:  p.parseIdentifier,
		token.INT:    p.parseIntegerLiteral,
		token.STRING: p.parseStringLiteral,
		token.TRUE:   p.parseBoolean,
		token.FALSE:  p.parseBoolean,
		token.NULL:   p.parseNull,
		token.BANG:   p.parsePrefixExpression,
		token.MINUS:  p.parsePrefixExpression,
		token.LPAREN: p.parseGroupedExpression,
		token.NEW:    p.parseNewExpression,
	}
	p.infixParseFns = map[token.TokenType]infixParseFn{
		token.LPAREN:      p.parseCallExpression,
		token.LBRACKET:    p.parseIndexExpression,
		token.DOT:         p.parseMemberExpression,
		token.COLON_COLON: p.parseMethodRef,
	}
	for _, tt := range []token.TokenType{
		token.OR, token.AND, token.EQ, token.NOT_EQ, token.LT, token.GT, token.LTE, token.GTE,
		token.PLUS, token.MINUS, token.ASTERISK, token.SLASH, token.PERCENT,
	} {
		p.infixParseFns[tt] = p.parseInfixExpression
	}

	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	if p.pos+1 < len(p.tokens) {
		p.pos++
	}
	p.peekToken = p.tokens[p.pos]
}

// tokenAt looks n tokens past peekToken (n=0 is peekToken).
func (p *Parser) tokenAt(n int) token.Token {
	i := p.pos + n
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}

func (p *Parser) curTokenIs(t token.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.TokenType) bool { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) fail(code diagnostics.ErrorCode, tok token.Token, format string, args ...interface{}) {
	if p.failed {
		return
	}
	p.failed = true
	p.ctx.Fail(diagnostics.NewError(code, tok, fmt.Sprintf(format, args...)))
}

func (p *Parser) peekError(t token.TokenType) {
	p.fail(diagnostics.ErrP001, p.peekToken, "expected %s, got %s", describe(t), describeToken(p.peekToken))
}

func describe(t token.TokenType) string {
	switch t {
	case token.IDENT:
		return "identifier"
	case token.EOF:
		return "end of file"
	}
	return "'" + string(t) + "'"
}

func describeToken(tok token.Token) string {
	if tok.Type == token.EOF {
		return "end of file"
	}
	return "'" + tok.Lexeme + "'"
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

// ParseCompilationUnit parses a whole source file.
func (p *Parser) ParseCompilationUnit() *ast.CompilationUnit {
	unit := &ast.CompilationUnit{File: p.ctx.FilePath, Comments: p.ctx.Comments}

	if p.curTokenIs(token.PACKAGE) {
		p.nextToken()
		unit.Package = p.parseQualifiedName()
		if unit.Package == nil || !p.expectPeek(token.SEMICOLON) {
			return unit
		}
		p.nextToken()
	}

	for p.curTokenIs(token.IMPORT) {
		imp := &ast.ImportDecl{Token: p.curToken}
		p.nextToken()
		imp.Name = p.parseQualifiedName()
		if imp.Name == nil || !p.expectPeek(token.SEMICOLON) {
			return unit
		}
		unit.Imports = append(unit.Imports, imp)
		p.nextToken()
	}

	for !p.curTokenIs(token.EOF) && !p.failed {
		class := p.parseClassDecl()
		if class == nil {
			return unit
		}
		unit.Classes = append(unit.Classes, class)
		p.nextToken()
	}

	return unit
}

// parseQualifiedName expects curToken to be the first identifier and leaves it on the last.
func (p *Parser) parseQualifiedName() *ast.QualifiedName {
	if !p.curTokenIs(token.IDENT) {
		p.fail(diagnostics.ErrP001, p.curToken, "expected identifier, got %s", describeToken(p.curToken))
		return nil
	}
	qn := &ast.QualifiedName{Token: p.curToken, Parts: []string{p.curToken.Lexeme}}
	for p.peekTokenIs(token.DOT) {
		p.nextToken()
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		qn.Parts = append(qn.Parts, p.curToken.Lexeme)
	}
	return qn
}

func (p *Parser) parseModifiers() (mods []string, static bool) {
	for p.curTokenIs(token.MODIFIER) || p.curTokenIs(token.STATIC) {
		if p.curTokenIs(token.STATIC) {
			static = true
		}
		mods = append(mods, p.curToken.Lexeme)
		p.nextToken()
	}
	return mods, static
}

func (p *Parser) parseClassDecl() *ast.ClassDecl {
	mods, static := p.parseModifiers()
	if static {
		p.fail(diagnostics.ErrP001, p.curToken, "top-level classes cannot be static")
		return nil
	}
	if !p.curTokenIs(token.CLASS) {
		p.fail(diagnostics.ErrP001, p.curToken, "expected class declaration, got %s", describeToken(p.curToken))
		return nil
	}
	class := &ast.ClassDecl{Token: p.curToken, Modifiers: mods}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	class.Name = p.curToken.Lexeme
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	p.nextToken()

	for !p.curTokenIs(token.RBRACE) {
		if p.curTokenIs(token.EOF) {
			p.fail(diagnostics.ErrP001, p.curToken, "expected '}' to close class %s", class.Name)
			return nil
		}
		member := p.parseMember()
		if member == nil {
			return nil
		}
		class.Members = append(class.Members, member)
		p.nextToken()
	}
	class.EndToken = p.curToken
	return class
}

func (p *Parser) parseMember() ast.Member {
	start := p.curToken
	mods, static := p.parseModifiers()
	typ := p.parseType()
	if typ == nil {
		return nil
	}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	name := p.curToken.Lexeme

	if p.peekTokenIs(token.LPAREN) {
		method := &ast.MethodDecl{Token: start, Modifiers: mods, Static: static, ReturnType: typ, Name: name}
		p.nextToken()
		method.Params = p.parseParams()
		if method.Params == nil && p.failed {
			return nil
		}
		if !p.expectPeek(token.LBRACE) {
			return nil
		}
		method.Body = p.parseBlockStatement()
		if method.Body == nil {
			return nil
		}
		return method
	}

	field := &ast.FieldDecl{Token: start, Modifiers: mods, Static: static, Type: typ, Name: name}
	if p.peekTokenIs(token.ASSIGN) {
		p.nextToken()
		p.nextToken()
		field.Value = p.parseExpression(LOWEST)
		if field.Value == nil {
			return nil
		}
	}
	if !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	return field
}

// parseType expects curToken at the type name and leaves it on the last token of the type.
func (p *Parser) parseType() *ast.TypeRef {
	qn := p.parseQualifiedName()
	if qn == nil {
		return nil
	}
	t := &ast.TypeRef{Token: qn.Token, Name: qn.String()}
	for p.peekTokenIs(token.LBRACKET) && p.tokenAt(1).Type == token.RBRACKET {
		p.nextToken()
		p.nextToken()
		t.Dims++
	}
	return t
}

// parseParams expects curToken on '(' and leaves it on ')'.
func (p *Parser) parseParams() []*ast.Param {
	params := []*ast.Param{}
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return params
	}
	p.nextToken()
	for {
		for p.curTokenIs(token.MODIFIER) {
			p.nextToken()
		}
		param := &ast.Param{Token: p.curToken}
		param.Type = p.parseType()
		if param.Type == nil || !p.expectPeek(token.IDENT) {
			return nil
		}
		param.Name = p.curToken.Lexeme
		params = append(params, param)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
		p.nextToken()
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return params
}
