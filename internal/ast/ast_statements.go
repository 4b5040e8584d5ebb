package ast

import "github.com/funvibe/jot/internal/token"

type BlockStatement struct {
	Token      token.Token
	Statements []Statement
	EndToken   token.Token
}

func (b *BlockStatement) GetToken() token.Token { return b.Token }
func (b *BlockStatement) statementNode()        {}

// VarStatement declares a local: `int x = 1;` or `var x = f();`.
type VarStatement struct {
	Token token.Token
	Type  *TypeRef
	Name  string
	Value Expression

	Slot int // set by the analyzer
}

func (v *VarStatement) GetToken() token.Token { return v.Token }
func (v *VarStatement) statementNode()        {}

type ExpressionStatement struct {
	Token      token.Token
	Expression Expression
}

func (e *ExpressionStatement) GetToken() token.Token { return e.Token }
func (e *ExpressionStatement) statementNode()        {}

// AssignStatement covers `=` and the compound operators; Operator is "" for plain assignment.
type AssignStatement struct {
	Token    token.Token
	Target   Expression
	Operator string
	Value    Expression
}

func (a *AssignStatement) GetToken() token.Token { return a.Token }
func (a *AssignStatement) statementNode()        {}

// IncDecStatement is a postfix `x++` or `x--`.
type IncDecStatement struct {
	Token    token.Token
	Target   Expression
	Operator string
}

func (s *IncDecStatement) GetToken() token.Token { return s.Token }
func (s *IncDecStatement) statementNode()        {}

type IfStatement struct {
	Token       token.Token
	Condition   Expression
	Consequence Statement
	Alternative Statement
}

func (i *IfStatement) GetToken() token.Token { return i.Token }
func (i *IfStatement) statementNode()        {}

type WhileStatement struct {
	Token     token.Token
	Condition Expression
	Body      Statement
}

func (w *WhileStatement) GetToken() token.Token { return w.Token }
func (w *WhileStatement) statementNode()        {}

type ForStatement struct {
	Token     token.Token
	Init      Statement
	Condition Expression
	Update    Statement
	Body      Statement
}

func (f *ForStatement) GetToken() token.Token { return f.Token }
func (f *ForStatement) statementNode()        {}

type BreakStatement struct{ Token token.Token }

func (b *BreakStatement) GetToken() token.Token { return b.Token }
func (b *BreakStatement) statementNode()        {}

type ContinueStatement struct{ Token token.Token }

func (c *ContinueStatement) GetToken() token.Token { return c.Token }
func (c *ContinueStatement) statementNode()        {}

type ReturnStatement struct {
	Token token.Token
	Value Expression
}

func (r *ReturnStatement) GetToken() token.Token { return r.Token }
func (r *ReturnStatement) statementNode()        {}

type ThrowStatement struct {
	Token token.Token
	Value Expression
}

func (t *ThrowStatement) GetToken() token.Token { return t.Token }
func (t *ThrowStatement) statementNode()        {}
