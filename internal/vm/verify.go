package vm

import (
	"fmt"

	"github.com/funvibe/jot/internal/config"
)

// VerifyError describes malformed bytecode.
type VerifyError struct {
	Class    string
	Function string
	Offset   int
	Reason   string
}

func (e *VerifyError) Error() string {
	if e.Function == "" {
		return fmt.Sprintf("verify %s: %s", e.Class, e.Reason)
	}
	return fmt.Sprintf("verify %s.%s@%04d: %s", e.Class, e.Function, e.Offset, e.Reason)
}

var operandKinds = map[Opcode][]ConstantKind{
	OP_CONST:          {ConstInt, ConstString},
	OP_GET_STATIC:     {ConstFieldRef},
	OP_SET_STATIC:     {ConstFieldRef},
	OP_INVOKE_STATIC:  {ConstMethodRef},
	OP_METHOD_REF:     {ConstMethodRef},
	OP_INVOKE_NATIVE:  {ConstNative},
	OP_INVOKE_VIRTUAL: {ConstName},
	OP_NEW_ARRAY:      {ConstName},
	OP_NEW_OBJECT:     {ConstName},
}

// Verify checks one class file: member tables, opcodes, operand bounds,
// constant kinds, local slots and jump targets.
func Verify(cf *ClassFile) error {
	fail := func(format string, args ...interface{}) error {
		return &VerifyError{Class: cf.Name, Reason: fmt.Sprintf(format, args...)}
	}

	seen := make(map[string]bool)
	for _, f := range cf.Fields {
		if f.Name == "" || seen["f:"+f.Name] {
			return fail("invalid or duplicate field %q", f.Name)
		}
		seen["f:"+f.Name] = true
	}
	for i := range cf.Methods {
		m := &cf.Methods[i]
		if m.Name == "" || seen["m:"+m.Name] {
			return fail("invalid or duplicate method %q", m.Name)
		}
		seen["m:"+m.Name] = true
		if m.Fn == nil {
			return fail("method %s has no body", m.Name)
		}
		if m.Fn.Arity != len(m.Params) {
			return fail("method %s: arity %d does not match %d parameters", m.Name, m.Fn.Arity, len(m.Params))
		}
	}

	return forEachFunction(cf, func(fn *Function) error {
		return verifyFunction(cf.Name, fn)
	})
}

func verifyFunction(class string, fn *Function) error {
	fail := func(offset int, format string, args ...interface{}) error {
		return &VerifyError{Class: class, Function: fn.Name, Offset: offset, Reason: fmt.Sprintf(format, args...)}
	}

	if fn.Chunk == nil || len(fn.Chunk.Code) == 0 {
		return fail(0, "empty body")
	}
	if fn.LocalCount < fn.Arity || fn.LocalCount > config.MaxLocals {
		return fail(0, "invalid local count %d for arity %d", fn.LocalCount, fn.Arity)
	}
	chunk := fn.Chunk
	if len(chunk.Lines) != len(chunk.Code) {
		return fail(0, "line table length %d does not match code length %d", len(chunk.Lines), len(chunk.Code))
	}

	boundaries := make(map[int]bool)
	type jump struct{ at, target int }
	var jumps []jump
	var last Opcode

	for offset := 0; offset < len(chunk.Code); {
		op := Opcode(chunk.Code[offset])
		in, ok := instructions[op]
		if !ok {
			return fail(offset, "unknown opcode 0x%02x", byte(op))
		}
		boundaries[offset] = true
		width := op.Width()
		if offset+width > len(chunk.Code) {
			return fail(offset, "truncated %s", in.name)
		}

		switch {
		case operandKinds[op] != nil:
			idx := chunk.ReadU16(offset + 1)
			if idx >= len(chunk.Constants) {
				return fail(offset, "%s: constant index %d out of range", in.name, idx)
			}
			if !kindAllowed(chunk.Constants[idx].Kind, operandKinds[op]) {
				return fail(offset, "%s: constant %d has kind %s", in.name, idx, chunk.Constants[idx].Kind)
			}
		case op == OP_GET_LOCAL || op == OP_SET_LOCAL:
			if slot := int(chunk.Code[offset+1]); slot >= fn.LocalCount {
				return fail(offset, "%s: slot %d exceeds %d locals", in.name, slot, fn.LocalCount)
			}
		case op == OP_JUMP || op == OP_JUMP_IF_FALSE:
			jumps = append(jumps, jump{offset, offset + width + chunk.ReadU16(offset+1)})
		case op == OP_LOOP:
			jumps = append(jumps, jump{offset, offset + width - chunk.ReadU16(offset+1)})
		}

		last = op
		offset += width
	}

	for _, j := range jumps {
		if j.target < 0 || j.target >= len(chunk.Code) || !boundaries[j.target] {
			return fail(j.at, "jump target %d is not an instruction boundary", j.target)
		}
	}

	switch last {
	case OP_RETURN, OP_RETURN_VOID, OP_THROW, OP_JUMP, OP_LOOP:
	default:
		return fail(len(chunk.Code)-1, "control falls off the end of the body")
	}
	return nil
}

func kindAllowed(k ConstantKind, allowed []ConstantKind) bool {
	for _, a := range allowed {
		if k == a {
			return true
		}
	}
	return false
}
