package vm

import (
	"fmt"

	"github.com/funvibe/jot/internal/ast"
)

func (c *Compiler) compileStatement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case nil:
		return nil

	case *ast.BlockStatement:
		for _, inner := range s.Statements {
			if err := c.compileStatement(inner); err != nil {
				return err
			}
		}
		return nil

	case *ast.VarStatement:
		line := s.Token.Line
		if s.Value != nil {
			if err := c.compileExpression(s.Value); err != nil {
				return err
			}
		} else if err := c.emitZero(s.Type.String(), line); err != nil {
			return err
		}
		c.emit(OP_SET_LOCAL, line)
		c.chunk.Write(byte(s.Slot), line)
		return nil

	case *ast.ExpressionStatement:
		if err := c.compileExpression(s.Expression); err != nil {
			return err
		}
		c.emit(OP_POP, s.Token.Line)
		return nil

	case *ast.AssignStatement:
		return c.compileAssign(s.Target, s.Operator, s.Value, s.Token.Line)

	case *ast.IncDecStatement:
		one := &ast.IntegerLiteral{Token: s.Token, Value: 1}
		return c.compileAssign(s.Target, s.Operator, one, s.Token.Line)

	case *ast.IfStatement:
		return c.compileIf(s)

	case *ast.WhileStatement:
		return c.compileWhile(s)

	case *ast.ForStatement:
		return c.compileFor(s)

	case *ast.BreakStatement:
		return c.compileBreak(s)

	case *ast.ContinueStatement:
		return c.compileContinue(s)

	case *ast.ReturnStatement:
		if s.Value == nil {
			c.emit(OP_RETURN_VOID, s.Token.Line)
			return nil
		}
		if err := c.compileExpression(s.Value); err != nil {
			return err
		}
		c.emit(OP_RETURN, s.Token.Line)
		return nil

	case *ast.ThrowStatement:
		if err := c.compileExpression(s.Value); err != nil {
			return err
		}
		c.emit(OP_THROW, s.Token.Line)
		return nil
	}
	return fmt.Errorf("unsupported statement %T", stmt)
}

func (c *Compiler) emitZero(typeName string, line int) error {
	switch typeName {
	case "int":
		return c.emitU16(OP_CONST, c.constant(Constant{Kind: ConstInt}), line)
	case "boolean":
		c.emit(OP_FALSE, line)
	default:
		c.emit(OP_NULL, line)
	}
	return nil
}

var compoundOps = map[string]Opcode{
	"+": OP_ADD,
	"-": OP_SUB,
	"*": OP_MUL,
	"/": OP_DIV,
	"%": OP_MOD,
}

// compileAssign handles `target = value` and the compound forms; operator is
// "" for plain assignment.
func (c *Compiler) compileAssign(target ast.Expression, operator string, value ast.Expression, line int) error {
	combine := func() error {
		if err := c.compileExpression(value); err != nil {
			return err
		}
		if operator != "" {
			op, ok := compoundOps[operator]
			if !ok {
				return fmt.Errorf("unknown compound operator %q", operator)
			}
			c.emit(op, line)
		}
		return nil
	}

	if idx, ok := target.(*ast.IndexExpression); ok {
		if err := c.compileExpression(idx.Left); err != nil {
			return err
		}
		if err := c.compileExpression(idx.Index); err != nil {
			return err
		}
		if operator != "" {
			c.emit(OP_DUP2, line)
			c.emit(OP_GET_INDEX, line)
		}
		if err := combine(); err != nil {
			return err
		}
		c.emit(OP_SET_INDEX, line)
		return nil
	}

	res := resolutionOf(target)
	if res == nil {
		return fmt.Errorf("line %d: unresolved assignment target", line)
	}
	switch res.Kind {
	case ast.RefLocal:
		if operator != "" {
			c.emit(OP_GET_LOCAL, line)
			c.chunk.Write(byte(res.Slot), line)
		}
		if err := combine(); err != nil {
			return err
		}
		c.emit(OP_SET_LOCAL, line)
		c.chunk.Write(byte(res.Slot), line)
		return nil

	case ast.RefStaticField:
		ref := c.fieldRef(res.Class, res.Member)
		if operator != "" {
			if err := c.emitU16(OP_GET_STATIC, ref, line); err != nil {
				return err
			}
		}
		if err := combine(); err != nil {
			return err
		}
		return c.emitU16(OP_SET_STATIC, ref, line)
	}
	return fmt.Errorf("line %d: invalid assignment target", line)
}

func resolutionOf(expr ast.Expression) *ast.Resolution {
	switch e := expr.(type) {
	case *ast.Identifier:
		return e.Resolved
	case *ast.MemberExpression:
		return e.Resolved
	}
	return nil
}

func (c *Compiler) compileIf(s *ast.IfStatement) error {
	line := s.Token.Line
	if err := c.compileExpression(s.Condition); err != nil {
		return err
	}
	elseJump := c.emitJump(OP_JUMP_IF_FALSE, line)
	if err := c.compileStatement(s.Consequence); err != nil {
		return err
	}
	if s.Alternative == nil {
		return c.patchJump(elseJump)
	}
	endJump := c.emitJump(OP_JUMP, line)
	if err := c.patchJump(elseJump); err != nil {
		return err
	}
	if err := c.compileStatement(s.Alternative); err != nil {
		return err
	}
	return c.patchJump(endJump)
}
