package vm

import (
	"fmt"

	"github.com/funvibe/jot/internal/ast"
)

var binaryOps = map[string]Opcode{
	"+":  OP_ADD,
	"-":  OP_SUB,
	"*":  OP_MUL,
	"/":  OP_DIV,
	"%":  OP_MOD,
	"==": OP_EQ,
	"!=": OP_NE,
	"<":  OP_LT,
	"<=": OP_LE,
	">":  OP_GT,
	">=": OP_GE,
}

func (c *Compiler) compileExpression(expr ast.Expression) error {
	line := expr.GetToken().Line

	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		return c.emitU16(OP_CONST, c.constant(Constant{Kind: ConstInt, Int: e.Value}), line)
	case *ast.StringLiteral:
		return c.emitU16(OP_CONST, c.constant(Constant{Kind: ConstString, Str: e.Value}), line)
	case *ast.BooleanLiteral:
		if e.Value {
			c.emit(OP_TRUE, line)
		} else {
			c.emit(OP_FALSE, line)
		}
		return nil
	case *ast.NullLiteral:
		c.emit(OP_NULL, line)
		return nil

	case *ast.Identifier:
		return c.compileLoad(e.Resolved, nil, line)
	case *ast.MemberExpression:
		return c.compileLoad(e.Resolved, e.Object, line)

	case *ast.PrefixExpression:
		if err := c.compileExpression(e.Right); err != nil {
			return err
		}
		switch e.Operator {
		case "-":
			c.emit(OP_NEG, line)
		case "!":
			c.emit(OP_NOT, line)
		default:
			return fmt.Errorf("line %d: unknown prefix operator %s", line, e.Operator)
		}
		return nil

	case *ast.InfixExpression:
		return c.compileInfix(e)

	case *ast.IndexExpression:
		if err := c.compileExpression(e.Left); err != nil {
			return err
		}
		if err := c.compileExpression(e.Index); err != nil {
			return err
		}
		c.emit(OP_GET_INDEX, line)
		return nil

	case *ast.CallExpression:
		return c.compileCall(e)

	case *ast.NewArrayExpression:
		if err := c.compileExpression(e.Size); err != nil {
			return err
		}
		return c.emitU16(OP_NEW_ARRAY, c.constant(Constant{Kind: ConstName, Str: e.Elem.String()}), line)

	case *ast.NewObjectExpression:
		for _, arg := range e.Arguments {
			if err := c.compileExpression(arg); err != nil {
				return err
			}
		}
		return c.emitCall(OP_NEW_OBJECT, c.constant(Constant{Kind: ConstName, Str: e.Class.String()}), len(e.Arguments), line)

	case *ast.MethodRefExpression:
		if e.Resolved == nil {
			return fmt.Errorf("line %d: unresolved method reference", line)
		}
		return c.emitU16(OP_METHOD_REF, c.methodRef(e.Resolved.Class, e.Resolved.Member), line)
	}
	return fmt.Errorf("line %d: unsupported expression %T", line, expr)
}

// compileLoad pushes the value of a resolved name or member access.
func (c *Compiler) compileLoad(res *ast.Resolution, object ast.Expression, line int) error {
	if res == nil {
		return fmt.Errorf("line %d: unresolved name", line)
	}
	switch res.Kind {
	case ast.RefLocal:
		c.emit(OP_GET_LOCAL, line)
		c.chunk.Write(byte(res.Slot), line)
		return nil
	case ast.RefStaticField:
		return c.emitU16(OP_GET_STATIC, c.fieldRef(res.Class, res.Member), line)
	case ast.RefArrayLength:
		if err := c.compileExpression(object); err != nil {
			return err
		}
		c.emit(OP_ARRAY_LENGTH, line)
		return nil
	}
	return fmt.Errorf("line %d: name does not denote a value", line)
}

func (c *Compiler) compileInfix(e *ast.InfixExpression) error {
	line := e.Token.Line

	switch e.Operator {
	case "&&":
		if err := c.compileExpression(e.Left); err != nil {
			return err
		}
		c.emit(OP_DUP, line)
		endJump := c.emitJump(OP_JUMP_IF_FALSE, line)
		c.emit(OP_POP, line)
		if err := c.compileExpression(e.Right); err != nil {
			return err
		}
		return c.patchJump(endJump)

	case "||":
		if err := c.compileExpression(e.Left); err != nil {
			return err
		}
		c.emit(OP_DUP, line)
		rightJump := c.emitJump(OP_JUMP_IF_FALSE, line)
		endJump := c.emitJump(OP_JUMP, line)
		if err := c.patchJump(rightJump); err != nil {
			return err
		}
		c.emit(OP_POP, line)
		if err := c.compileExpression(e.Right); err != nil {
			return err
		}
		return c.patchJump(endJump)
	}

	op, ok := binaryOps[e.Operator]
	if !ok {
		return fmt.Errorf("line %d: unknown operator %s", line, e.Operator)
	}
	if err := c.compileExpression(e.Left); err != nil {
		return err
	}
	if err := c.compileExpression(e.Right); err != nil {
		return err
	}
	c.emit(op, line)
	return nil
}

func (c *Compiler) compileCall(call *ast.CallExpression) error {
	line := call.Token.Line
	res := call.Resolved
	if res == nil {
		return fmt.Errorf("line %d: unresolved call", line)
	}

	if res.Kind == ast.RefVirtualCall {
		member, ok := call.Function.(*ast.MemberExpression)
		if !ok {
			return fmt.Errorf("line %d: virtual call without receiver", line)
		}
		if err := c.compileExpression(member.Object); err != nil {
			return err
		}
	}
	for _, arg := range call.Arguments {
		if err := c.compileExpression(arg); err != nil {
			return err
		}
	}
	argc := len(call.Arguments)

	switch res.Kind {
	case ast.RefStaticCall:
		return c.emitCall(OP_INVOKE_STATIC, c.methodRef(res.Class, res.Member), argc, line)
	case ast.RefNativeCall:
		return c.emitCall(OP_INVOKE_NATIVE, c.constant(Constant{Kind: ConstNative, Str: res.Native}), argc, line)
	case ast.RefVirtualCall:
		return c.emitCall(OP_INVOKE_VIRTUAL, c.constant(Constant{Kind: ConstName, Str: res.Member}), argc, line)
	}
	return fmt.Errorf("line %d: invalid call target", line)
}
