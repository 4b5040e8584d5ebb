package ast

import (
	"strings"

	"github.com/funvibe/jot/internal/token"
)

// Node is implemented by every syntax tree node.
type Node interface {
	GetToken() token.Token
}

type Statement interface {
	Node
	statementNode()
}

type Expression interface {
	Node
	expressionNode()
}

// Member is a class body declaration: *FieldDecl or *MethodDecl.
type Member interface {
	Node
	memberNode()
	MemberName() string
}

// CompilationUnit is one parsed source file.
type CompilationUnit struct {
	File     string
	Package  *QualifiedName
	Imports  []*ImportDecl
	Classes  []*ClassDecl
	Comments []token.Token
}

func (cu *CompilationUnit) GetToken() token.Token {
	if cu.Package != nil {
		return cu.Package.Token
	}
	if len(cu.Classes) > 0 {
		return cu.Classes[0].Token
	}
	return token.Token{Line: 1, Column: 1}
}

// PackageName returns the dotted package, or "" for the default package.
func (cu *CompilationUnit) PackageName() string {
	if cu.Package == nil {
		return ""
	}
	return cu.Package.String()
}

// QualifiedName is a dotted name such as a.b.C.
type QualifiedName struct {
	Token token.Token
	Parts []string
}

func (q *QualifiedName) GetToken() token.Token { return q.Token }
func (q *QualifiedName) String() string        { return strings.Join(q.Parts, ".") }

// Last returns the simple (final) segment.
func (q *QualifiedName) Last() string { return q.Parts[len(q.Parts)-1] }

type ImportDecl struct {
	Token token.Token
	Name  *QualifiedName
}

func (i *ImportDecl) GetToken() token.Token { return i.Token }

type ClassDecl struct {
	Token     token.Token
	Modifiers []string
	Name      string
	Members   []Member
	EndToken  token.Token
}

func (c *ClassDecl) GetToken() token.Token { return c.Token }

func (c *ClassDecl) Fields() []*FieldDecl {
	var out []*FieldDecl
	for _, m := range c.Members {
		if f, ok := m.(*FieldDecl); ok {
			out = append(out, f)
		}
	}
	return out
}

func (c *ClassDecl) Methods() []*MethodDecl {
	var out []*MethodDecl
	for _, m := range c.Members {
		if md, ok := m.(*MethodDecl); ok {
			out = append(out, md)
		}
	}
	return out
}

// TypeRef names a type: a primitive, String, var, a class, with array dimensions.
type TypeRef struct {
	Token token.Token
	Name  string
	Dims  int
}

func (t *TypeRef) GetToken() token.Token { return t.Token }

// String renders the type as a descriptor, e.g. "String[]".
func (t *TypeRef) String() string {
	return t.Name + strings.Repeat("[]", t.Dims)
}

func (t *TypeRef) IsVoid() bool { return t.Name == "void" && t.Dims == 0 }

type FieldDecl struct {
	Token     token.Token
	Modifiers []string
	Static    bool
	Type      *TypeRef
	Name      string
	Value     Expression
}

func (f *FieldDecl) GetToken() token.Token { return f.Token }
func (f *FieldDecl) memberNode()           {}
func (f *FieldDecl) MemberName() string    { return f.Name }

type Param struct {
	Token token.Token
	Type  *TypeRef
	Name  string
}

type MethodDecl struct {
	Token      token.Token
	Modifiers  []string
	Static     bool
	ReturnType *TypeRef
	Name       string
	Params     []*Param
	Body       *BlockStatement

	// LocalCount is set by the analyzer: parameters plus every declared local.
	LocalCount int
}

func (m *MethodDecl) GetToken() token.Token { return m.Token }
func (m *MethodDecl) memberNode()           {}
func (m *MethodDecl) MemberName() string    { return m.Name }

// Descriptor renders parameter types, e.g. "(String[])void".
func (m *MethodDecl) Descriptor() string {
	parts := make([]string, len(m.Params))
	for i, p := range m.Params {
		parts[i] = p.Type.String()
	}
	return "(" + strings.Join(parts, ",") + ")" + m.ReturnType.String()
}
