package analyzer

import (
	"github.com/funvibe/jot/internal/ast"
	"github.com/funvibe/jot/internal/diagnostics"
)

func (w *walker) walkStatement(stmt ast.Statement) *diagnostics.DiagnosticError {
	switch s := stmt.(type) {
	case nil:
		return nil

	case *ast.BlockStatement:
		w.pushScope()
		defer w.popScope()
		for _, inner := range s.Statements {
			if err := w.walkStatement(inner); err != nil {
				return err
			}
		}
		return nil

	case *ast.VarStatement:
		if s.Type.Name != "var" || s.Type.Dims > 0 {
			if err := w.checkType(s.Type, false); err != nil {
				return err
			}
		}
		if s.Value != nil {
			if err := w.walkExpression(s.Value); err != nil {
				return err
			}
		}
		slot, err := w.declareLocal(s.Name, s.Token)
		if err != nil {
			return err
		}
		s.Slot = slot
		return nil

	case *ast.ExpressionStatement:
		return w.walkExpression(s.Expression)

	case *ast.AssignStatement:
		if err := w.walkTarget(s.Target); err != nil {
			return err
		}
		return w.walkExpression(s.Value)

	case *ast.IncDecStatement:
		return w.walkTarget(s.Target)

	case *ast.IfStatement:
		if err := w.walkExpression(s.Condition); err != nil {
			return err
		}
		if err := w.walkNested(s.Consequence); err != nil {
			return err
		}
		return w.walkNested(s.Alternative)

	case *ast.WhileStatement:
		if err := w.walkExpression(s.Condition); err != nil {
			return err
		}
		return w.walkLoopBody(s.Body)

	case *ast.ForStatement:
		w.pushScope()
		defer w.popScope()
		if err := w.walkStatement(s.Init); err != nil {
			return err
		}
		if s.Condition != nil {
			if err := w.walkExpression(s.Condition); err != nil {
				return err
			}
		}
		if err := w.walkStatement(s.Update); err != nil {
			return err
		}
		return w.walkLoopBody(s.Body)

	case *ast.BreakStatement:
		if w.loopDepth == 0 {
			return diagnostics.NewError(diagnostics.ErrA004, s.Token, "break outside switch or loop")
		}
		return nil

	case *ast.ContinueStatement:
		if w.loopDepth == 0 {
			return diagnostics.NewError(diagnostics.ErrA004, s.Token, "continue outside of loop")
		}
		return nil

	case *ast.ReturnStatement:
		void := w.method.ReturnType.IsVoid()
		if s.Value == nil {
			if !void {
				return diagnostics.NewError(diagnostics.ErrA005, s.Token, "missing return value")
			}
			return nil
		}
		if void {
			return diagnostics.NewError(diagnostics.ErrA005, s.Token, "incompatible types: unexpected return value")
		}
		return w.walkExpression(s.Value)

	case *ast.ThrowStatement:
		return w.walkExpression(s.Value)
	}

	return diagnostics.NewErrorf(diagnostics.ErrA005, stmt.GetToken(), "unsupported statement %T", stmt)
}

// walkNested walks a branch body in its own scope.
func (w *walker) walkNested(stmt ast.Statement) *diagnostics.DiagnosticError {
	if _, isVar := stmt.(*ast.VarStatement); isVar {
		return diagnostics.NewError(diagnostics.ErrA005, stmt.GetToken(), "variable declaration not allowed here")
	}
	w.pushScope()
	defer w.popScope()
	return w.walkStatement(stmt)
}

func (w *walker) walkLoopBody(body ast.Statement) *diagnostics.DiagnosticError {
	w.loopDepth++
	defer func() { w.loopDepth-- }()
	return w.walkNested(body)
}

// walkTarget resolves the left side of an assignment.
func (w *walker) walkTarget(target ast.Expression) *diagnostics.DiagnosticError {
	if err := w.walkExpression(target); err != nil {
		return err
	}
	if me, ok := target.(*ast.MemberExpression); ok && me.Resolved.Kind == ast.RefArrayLength {
		return diagnostics.NewError(diagnostics.ErrA005, me.Token, "cannot assign a value to final variable length")
	}
	return nil
}
