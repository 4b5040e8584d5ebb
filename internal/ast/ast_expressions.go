package ast

import "github.com/funvibe/jot/internal/token"

// RefKind classifies what a name, member access or call refers to.
type RefKind int

const (
	RefUnresolved RefKind = iota
	RefLocal
	RefStaticField
	RefClass
	RefPackage
	RefNativeObject // System.out, System.err, System.in
	RefArrayLength
	RefStaticCall
	RefNativeCall
	RefVirtualCall
)

// Resolution is attached to expressions by the analyzer and read by code generation.
type Resolution struct {
	Kind   RefKind
	Slot   int    // RefLocal
	Class  string // fully-qualified class for fields, calls and class refs
	Member string // field or method name
	Native string // intrinsic name, e.g. "System.out.println"
}

type Identifier struct {
	Token    token.Token
	Value    string
	Resolved *Resolution
}

func (i *Identifier) GetToken() token.Token { return i.Token }
func (i *Identifier) expressionNode()       {}

type IntegerLiteral struct {
	Token token.Token
	Value int64
}

func (il *IntegerLiteral) GetToken() token.Token { return il.Token }
func (il *IntegerLiteral) expressionNode()       {}

type StringLiteral struct {
	Token token.Token
	Value string
}

func (sl *StringLiteral) GetToken() token.Token { return sl.Token }
func (sl *StringLiteral) expressionNode()       {}

type BooleanLiteral struct {
	Token token.Token
	Value bool
}

func (b *BooleanLiteral) GetToken() token.Token { return b.Token }
func (b *BooleanLiteral) expressionNode()       {}

type NullLiteral struct{ Token token.Token }

func (n *NullLiteral) GetToken() token.Token { return n.Token }
func (n *NullLiteral) expressionNode()       {}

type PrefixExpression struct {
	Token    token.Token
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) GetToken() token.Token { return pe.Token }
func (pe *PrefixExpression) expressionNode()       {}

type InfixExpression struct {
	Token    token.Token
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) GetToken() token.Token { return ie.Token }
func (ie *InfixExpression) expressionNode()       {}

// MemberExpression is `Object.Member` without a call.
type MemberExpression struct {
	Token    token.Token
	Object   Expression
	Member   string
	Resolved *Resolution
}

func (me *MemberExpression) GetToken() token.Token { return me.Token }
func (me *MemberExpression) expressionNode()       {}

type CallExpression struct {
	Token     token.Token
	Function  Expression // *Identifier or *MemberExpression
	Arguments []Expression
	Resolved  *Resolution
}

func (ce *CallExpression) GetToken() token.Token { return ce.Token }
func (ce *CallExpression) expressionNode()       {}

type IndexExpression struct {
	Token token.Token
	Left  Expression
	Index Expression
}

func (ie *IndexExpression) GetToken() token.Token { return ie.Token }
func (ie *IndexExpression) expressionNode()       {}

// NewArrayExpression is `new T[size]`; Elem has one dimension fewer than the result.
type NewArrayExpression struct {
	Token token.Token
	Elem  *TypeRef
	Size  Expression
}

func (na *NewArrayExpression) GetToken() token.Token { return na.Token }
func (na *NewArrayExpression) expressionNode()       {}

// NewObjectExpression is `new C(args)`; only throwable classes are constructible.
type NewObjectExpression struct {
	Token     token.Token
	Class     *QualifiedName
	Arguments []Expression
}

func (no *NewObjectExpression) GetToken() token.Token { return no.Token }
func (no *NewObjectExpression) expressionNode()       {}

// MethodRefExpression is `C::m`.
type MethodRefExpression struct {
	Token    token.Token
	Class    *QualifiedName
	Method   string
	Resolved *Resolution
}

func (mr *MethodRefExpression) GetToken() token.Token { return mr.Token }
func (mr *MethodRefExpression) expressionNode()       {}
