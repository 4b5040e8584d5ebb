package vm

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable representation of the bytecode
func Disassemble(chunk *Chunk, name string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("== %s ==\n", name))

	offset := 0
	for offset < len(chunk.Code) {
		offset = disassembleInstruction(&sb, chunk, offset)
	}

	return sb.String()
}

// DisassembleClass renders every method of a class file.
func DisassembleClass(cf *ClassFile) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("class %s", cf.Name))
	if cf.SourceFile != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", cf.SourceFile))
	}
	sb.WriteString("\n")
	for _, f := range cf.Fields {
		sb.WriteString(fmt.Sprintf("  static %s %s\n", f.Type, f.Name))
	}
	if cf.StaticInit != nil {
		sb.WriteString(Disassemble(cf.StaticInit.Chunk, cf.Name+".<clinit>"))
	}
	for i := range cf.Methods {
		m := &cf.Methods[i]
		sb.WriteString(Disassemble(m.Fn.Chunk, fmt.Sprintf("%s.%s%s locals=%d", cf.Name, m.Name, m.Descriptor(), m.Fn.LocalCount)))
	}
	return sb.String()
}

func disassembleInstruction(sb *strings.Builder, chunk *Chunk, offset int) int {
	sb.WriteString(fmt.Sprintf("%04d ", offset))

	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		sb.WriteString("   | ")
	} else {
		sb.WriteString(fmt.Sprintf("%4d ", chunk.Lines[offset]))
	}

	op := Opcode(chunk.Code[offset])
	in, ok := instructions[op]
	if !ok {
		sb.WriteString(fmt.Sprintf("Unknown opcode %d\n", op))
		return offset + 1
	}
	if offset+op.Width() > len(chunk.Code) {
		sb.WriteString(fmt.Sprintf("%-16s <truncated>\n", in.name))
		return len(chunk.Code)
	}

	switch op {
	case OP_GET_LOCAL, OP_SET_LOCAL:
		sb.WriteString(fmt.Sprintf("%-16s %4d\n", in.name, chunk.Code[offset+1]))
	case OP_JUMP, OP_JUMP_IF_FALSE:
		target := offset + op.Width() + chunk.ReadU16(offset+1)
		sb.WriteString(fmt.Sprintf("%-16s %4d -> %d\n", in.name, offset, target))
	case OP_LOOP:
		target := offset + op.Width() - chunk.ReadU16(offset+1)
		sb.WriteString(fmt.Sprintf("%-16s %4d -> %d\n", in.name, offset, target))
	case OP_INVOKE_STATIC, OP_INVOKE_NATIVE, OP_INVOKE_VIRTUAL, OP_NEW_OBJECT:
		idx := chunk.ReadU16(offset + 1)
		sb.WriteString(fmt.Sprintf("%-16s %4d '%s' argc=%d\n", in.name, idx, constantText(chunk, idx), chunk.Code[offset+3]))
	default:
		if len(in.operands) == 1 && in.operands[0] == 2 {
			idx := chunk.ReadU16(offset + 1)
			sb.WriteString(fmt.Sprintf("%-16s %4d '%s'\n", in.name, idx, constantText(chunk, idx)))
		} else {
			sb.WriteString(in.name + "\n")
		}
	}
	return offset + op.Width()
}

func constantText(chunk *Chunk, idx int) string {
	if idx >= len(chunk.Constants) {
		return "<invalid>"
	}
	return chunk.Constants[idx].String()
}
