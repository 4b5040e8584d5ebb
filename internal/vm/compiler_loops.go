package vm

import (
	"fmt"

	"github.com/funvibe/jot/internal/ast"
)

func (c *Compiler) compileWhile(s *ast.WhileStatement) error {
	line := s.Token.Line
	loopStart := c.chunk.Len()
	c.loopStack = append(c.loopStack, LoopContext{loopStart: loopStart})

	if err := c.compileExpression(s.Condition); err != nil {
		return err
	}
	exitJump := c.emitJump(OP_JUMP_IF_FALSE, line)
	if err := c.compileStatement(s.Body); err != nil {
		return err
	}
	if err := c.emitLoop(loopStart, line); err != nil {
		return err
	}
	if err := c.patchJump(exitJump); err != nil {
		return err
	}
	return c.popLoop()
}

func (c *Compiler) compileFor(s *ast.ForStatement) error {
	line := s.Token.Line
	if err := c.compileStatement(s.Init); err != nil {
		return err
	}

	loopStart := c.chunk.Len()
	c.loopStack = append(c.loopStack, LoopContext{loopStart: loopStart, forwardCont: true})

	exitJump := -1
	if s.Condition != nil {
		if err := c.compileExpression(s.Condition); err != nil {
			return err
		}
		exitJump = c.emitJump(OP_JUMP_IF_FALSE, line)
	}
	if err := c.compileStatement(s.Body); err != nil {
		return err
	}

	// continue lands on the update clause
	loop := &c.loopStack[len(c.loopStack)-1]
	for _, jump := range loop.continueJumps {
		if err := c.patchJump(jump); err != nil {
			return err
		}
	}
	loop.continueJumps = nil

	if err := c.compileStatement(s.Update); err != nil {
		return err
	}
	if err := c.emitLoop(loopStart, line); err != nil {
		return err
	}
	if exitJump >= 0 {
		if err := c.patchJump(exitJump); err != nil {
			return err
		}
	}
	return c.popLoop()
}

// popLoop patches pending break jumps to the current offset.
func (c *Compiler) popLoop() error {
	loop := c.loopStack[len(c.loopStack)-1]
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
	for _, jump := range loop.breakJumps {
		if err := c.patchJump(jump); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileBreak(s *ast.BreakStatement) error {
	if len(c.loopStack) == 0 {
		return fmt.Errorf("line %d: break outside loop", s.Token.Line)
	}
	loop := &c.loopStack[len(c.loopStack)-1]
	loop.breakJumps = append(loop.breakJumps, c.emitJump(OP_JUMP, s.Token.Line))
	return nil
}

func (c *Compiler) compileContinue(s *ast.ContinueStatement) error {
	if len(c.loopStack) == 0 {
		return fmt.Errorf("line %d: continue outside loop", s.Token.Line)
	}
	loop := &c.loopStack[len(c.loopStack)-1]
	if loop.forwardCont {
		loop.continueJumps = append(loop.continueJumps, c.emitJump(OP_JUMP, s.Token.Line))
		return nil
	}
	return c.emitLoop(loop.loopStart, s.Token.Line)
}
