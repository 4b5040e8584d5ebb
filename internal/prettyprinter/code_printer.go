// Package prettyprinter reprints Jot source in canonical layout.
package prettyprinter

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/funvibe/jot/internal/ast"
	"github.com/funvibe/jot/internal/lexer"
	"github.com/funvibe/jot/internal/parser"
	"github.com/funvibe/jot/internal/pipeline"
	"github.com/funvibe/jot/internal/token"
)

// Operator precedence (higher = binds tighter)
var operatorPrecedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3,
	"!=": 3,
	"<":  4,
	">":  4,
	"<=": 4,
	">=": 4,
	"+":  5,
	"-":  5,
	"*":  6,
	"/":  6,
	"%":  6,
}

const (
	prefixPrecedence  = 7
	postfixPrecedence = 8
)

func getPrecedence(op string) int {
	if p, ok := operatorPrecedence[op]; ok {
		return p
	}
	return postfixPrecedence
}

// Format parses src and returns it reprinted with four-space indentation.
// Comments are kept next to the code that follows them. Source that does
// not parse is returned unchanged together with the parse error.
func Format(src string) (string, error) {
	ctx := pipeline.NewPipelineContext(src)
	out := pipeline.New(&lexer.LexerProcessor{}, &parser.ParserProcessor{}).Run(ctx)
	if len(out.Errors) > 0 {
		return src, out.Errors[0]
	}
	p := NewCodePrinter(out.Comments)
	p.PrintUnit(out.AstRoot)
	return p.String(), nil
}

type CodePrinter struct {
	buf      bytes.Buffer
	indent   int
	comments []token.Token
	next     int // first comment not yet printed
}

func NewCodePrinter(comments []token.Token) *CodePrinter {
	return &CodePrinter{comments: comments}
}

func (p *CodePrinter) String() string {
	return p.buf.String()
}

func (p *CodePrinter) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.buf.WriteString("    ")
	}
}

func (p *CodePrinter) write(s string) {
	p.buf.WriteString(s)
}

func (p *CodePrinter) writeln() {
	p.buf.WriteString("\n")
}

// commentsBefore prints, each on its own line, the pending comments that
// start above line.
func (p *CodePrinter) commentsBefore(line int) {
	for p.next < len(p.comments) && p.comments[p.next].Line < line {
		p.writeIndent()
		p.write(p.comments[p.next].Lexeme)
		p.writeln()
		p.next++
	}
}

// trailingComments appends the pending comments that sit on line.
func (p *CodePrinter) trailingComments(line int) {
	for p.next < len(p.comments) && p.comments[p.next].Line == line {
		p.write(" " + p.comments[p.next].Lexeme)
		p.next++
	}
}

func (p *CodePrinter) PrintUnit(unit *ast.CompilationUnit) {
	section := false
	if unit.Package != nil {
		p.commentsBefore(unit.Package.Token.Line)
		p.write("package " + unit.Package.String() + ";")
		p.trailingComments(unit.Package.Token.Line)
		p.writeln()
		section = true
	}
	for i, imp := range unit.Imports {
		if i == 0 && section {
			p.writeln()
		}
		p.commentsBefore(imp.Token.Line)
		p.write("import " + imp.Name.String() + ";")
		p.trailingComments(imp.Token.Line)
		p.writeln()
		section = true
	}
	for _, class := range unit.Classes {
		if section {
			p.writeln()
		}
		p.printClass(class)
		section = true
	}
	p.commentsBefore(math.MaxInt)
}

func (p *CodePrinter) printClass(class *ast.ClassDecl) {
	p.commentsBefore(class.Token.Line)
	p.writeIndent()
	p.write(modifiers(class.Modifiers) + "class " + class.Name + " {")
	p.trailingComments(class.Token.Line)
	p.writeln()

	p.indent++
	var prev ast.Member
	for _, m := range class.Members {
		if prev != nil && (isMethod(prev) || isMethod(m)) {
			p.writeln()
		}
		switch m := m.(type) {
		case *ast.FieldDecl:
			p.printField(m)
		case *ast.MethodDecl:
			p.printMethod(m)
		}
		prev = m
	}
	p.commentsBefore(class.EndToken.Line)
	p.indent--

	p.writeIndent()
	p.write("}")
	p.trailingComments(class.EndToken.Line)
	p.writeln()
}

func isMethod(m ast.Member) bool {
	_, ok := m.(*ast.MethodDecl)
	return ok
}

func modifiers(mods []string) string {
	if len(mods) == 0 {
		return ""
	}
	return strings.Join(mods, " ") + " "
}

func (p *CodePrinter) printField(f *ast.FieldDecl) {
	p.commentsBefore(f.Token.Line)
	p.writeIndent()
	p.write(modifiers(f.Modifiers) + f.Type.String() + " " + f.Name)
	if f.Value != nil {
		p.write(" = " + p.expr(f.Value))
	}
	p.write(";")
	p.trailingComments(f.Token.Line)
	p.writeln()
}

func (p *CodePrinter) printMethod(m *ast.MethodDecl) {
	p.commentsBefore(m.Token.Line)
	p.writeIndent()
	params := make([]string, len(m.Params))
	for i, param := range m.Params {
		params[i] = param.Type.String() + " " + param.Name
	}
	p.write(modifiers(m.Modifiers) + m.ReturnType.String() + " " + m.Name + "(" + strings.Join(params, ", ") + ") ")
	p.printBlock(m.Body)
	p.writeln()
}

// printBlock writes "{ ... }" starting at the current column and leaves the
// output right after the closing brace.
func (p *CodePrinter) printBlock(b *ast.BlockStatement) {
	p.write("{")
	p.trailingComments(b.Token.Line)
	p.writeln()
	p.indent++
	for _, stmt := range b.Statements {
		p.printStatement(stmt)
	}
	p.commentsBefore(b.EndToken.Line)
	p.indent--
	p.writeIndent()
	p.write("}")
}

func startLine(stmt ast.Statement) int {
	switch s := stmt.(type) {
	case *ast.AssignStatement:
		return s.Target.GetToken().Line
	case *ast.IncDecStatement:
		return s.Target.GetToken().Line
	}
	return stmt.GetToken().Line
}

func (p *CodePrinter) printStatement(stmt ast.Statement) {
	line := startLine(stmt)
	p.commentsBefore(line)
	p.writeIndent()
	switch s := stmt.(type) {
	case *ast.BlockStatement:
		p.printBlock(s)
		p.trailingComments(s.EndToken.Line)
	case *ast.IfStatement:
		p.printIf(s)
	case *ast.WhileStatement:
		p.write("while (" + p.expr(s.Condition) + ") ")
		p.printBody(s.Body)
	case *ast.ForStatement:
		p.write("for (" + p.simple(s.Init) + "; ")
		if s.Condition != nil {
			p.write(p.expr(s.Condition))
		}
		p.write("; " + p.simple(s.Update) + ") ")
		p.printBody(s.Body)
	default:
		p.write(p.simple(stmt) + ";")
		p.trailingComments(line)
	}
	p.writeln()
}

func (p *CodePrinter) printIf(s *ast.IfStatement) {
	p.write("if (" + p.expr(s.Condition) + ") ")
	p.printBody(s.Consequence)
	if s.Alternative == nil {
		return
	}
	p.write(" else ")
	if elseIf, ok := s.Alternative.(*ast.IfStatement); ok {
		p.commentsBefore(elseIf.Token.Line)
		p.printIf(elseIf)
		return
	}
	p.printBody(s.Alternative)
}

// printBody prints a branch or loop body, always as a braced block.
func (p *CodePrinter) printBody(body ast.Statement) {
	if b, ok := body.(*ast.BlockStatement); ok {
		p.printBlock(b)
		return
	}
	p.write("{")
	p.writeln()
	p.indent++
	p.printStatement(body)
	p.indent--
	p.writeIndent()
	p.write("}")
}

// simple renders a statement that fits on one line, without its ';'.
func (p *CodePrinter) simple(stmt ast.Statement) string {
	switch s := stmt.(type) {
	case nil:
		return ""
	case *ast.VarStatement:
		out := s.Type.String() + " " + s.Name
		if s.Value != nil {
			out += " = " + p.expr(s.Value)
		}
		return out
	case *ast.AssignStatement:
		return p.expr(s.Target) + " " + s.Operator + "= " + p.expr(s.Value)
	case *ast.IncDecStatement:
		return p.expr(s.Target) + s.Operator + s.Operator
	case *ast.ExpressionStatement:
		return p.expr(s.Expression)
	case *ast.BreakStatement:
		return "break"
	case *ast.ContinueStatement:
		return "continue"
	case *ast.ReturnStatement:
		if s.Value == nil {
			return "return"
		}
		return "return " + p.expr(s.Value)
	case *ast.ThrowStatement:
		return "throw " + p.expr(s.Value)
	}
	return ""
}

func (p *CodePrinter) expr(e ast.Expression) string {
	switch e := e.(type) {
	case *ast.Identifier:
		return e.Value
	case *ast.IntegerLiteral:
		if e.Token.Lexeme != "" {
			return e.Token.Lexeme
		}
		return strconv.FormatInt(e.Value, 10)
	case *ast.StringLiteral:
		if strings.HasPrefix(e.Token.Lexeme, `"`) {
			return e.Token.Lexeme
		}
		return strconv.Quote(e.Value)
	case *ast.BooleanLiteral:
		return strconv.FormatBool(e.Value)
	case *ast.NullLiteral:
		return "null"
	case *ast.PrefixExpression:
		operand := p.operand(e.Right, prefixPrecedence)
		if strings.HasPrefix(operand, "-") {
			// "--x" would lex as a decrement.
			operand = "(" + operand + ")"
		}
		return e.Operator + operand
	case *ast.InfixExpression:
		prec := getPrecedence(e.Operator)
		// Left-associative: an equal-precedence right operand needs parentheses.
		return p.operand(e.Left, prec) + " " + e.Operator + " " + p.operand(e.Right, prec+1)
	case *ast.MemberExpression:
		return p.operand(e.Object, postfixPrecedence) + "." + e.Member
	case *ast.CallExpression:
		return p.operand(e.Function, postfixPrecedence) + "(" + p.list(e.Arguments) + ")"
	case *ast.IndexExpression:
		return p.operand(e.Left, postfixPrecedence) + "[" + p.expr(e.Index) + "]"
	case *ast.NewArrayExpression:
		return "new " + e.Elem.Name + "[" + p.expr(e.Size) + "]" + strings.Repeat("[]", e.Elem.Dims)
	case *ast.NewObjectExpression:
		return "new " + e.Class.String() + "(" + p.list(e.Arguments) + ")"
	case *ast.MethodRefExpression:
		return e.Class.String() + "::" + e.Method
	}
	return ""
}

// operand renders e, parenthesised when it binds looser than min.
func (p *CodePrinter) operand(e ast.Expression, min int) string {
	prec := postfixPrecedence
	switch e := e.(type) {
	case *ast.InfixExpression:
		prec = getPrecedence(e.Operator)
	case *ast.PrefixExpression:
		prec = prefixPrecedence
	case *ast.NewArrayExpression, *ast.NewObjectExpression:
		if min >= postfixPrecedence {
			prec = prefixPrecedence
		}
	}
	if prec < min {
		return "(" + p.expr(e) + ")"
	}
	return p.expr(e)
}

func (p *CodePrinter) list(args []ast.Expression) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = p.expr(a)
	}
	return strings.Join(parts, ", ")
}
