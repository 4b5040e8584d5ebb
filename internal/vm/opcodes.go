// Package vm implements the class file format, the linker and the bytecode
// virtual machine that runs linked jot programs.
package vm

// Opcode represents a single VM instruction
type Opcode byte

const (
	// Stack manipulation
	OP_CONST Opcode = iota // u16 constant index
	OP_NULL
	OP_TRUE
	OP_FALSE
	OP_POP
	OP_DUP
	OP_DUP2 // [a, b] -> [a, b, a, b]

	// Arithmetic
	OP_ADD
	OP_SUB
	OP_MUL
	OP_DIV
	OP_MOD
	OP_NEG

	// Comparison
	OP_EQ
	OP_NE
	OP_LT
	OP_LE
	OP_GT
	OP_GE

	// Logic
	OP_NOT

	// Variables
	OP_GET_LOCAL  // u8 slot
	OP_SET_LOCAL  // u8 slot, pops
	OP_GET_STATIC // u16 field ref
	OP_SET_STATIC // u16 field ref, pops

	// Control flow
	OP_JUMP          // u16 forward offset
	OP_JUMP_IF_FALSE // u16 forward offset, pops the condition
	OP_LOOP          // u16 backward offset

	// Calls
	OP_INVOKE_STATIC  // u16 method ref, u8 argc
	OP_INVOKE_NATIVE  // u16 native name, u8 argc
	OP_INVOKE_VIRTUAL // u16 method name, u8 argc (receiver below the arguments)
	OP_METHOD_REF     // u16 method ref

	// Objects and arrays
	OP_NEW_ARRAY    // u16 element type name, pops size
	OP_NEW_OBJECT   // u16 class name, u8 argc
	OP_GET_INDEX    // [arr, i] -> [v]
	OP_SET_INDEX    // [arr, i, v] -> []
	OP_ARRAY_LENGTH // [arr] -> [len]

	OP_THROW
	OP_RETURN      // returns top of stack
	OP_RETURN_VOID // returns null
)

// instruction describes the encoding of one opcode.
type instruction struct {
	name     string
	operands []int // byte width of each operand
}

var instructions = map[Opcode]instruction{
	OP_CONST:          {"CONST", []int{2}},
	OP_NULL:           {"NULL", nil},
	OP_TRUE:           {"TRUE", nil},
	OP_FALSE:          {"FALSE", nil},
	OP_POP:            {"POP", nil},
	OP_DUP:            {"DUP", nil},
	OP_DUP2:           {"DUP2", nil},
	OP_ADD:            {"ADD", nil},
	OP_SUB:            {"SUB", nil},
	OP_MUL:            {"MUL", nil},
	OP_DIV:            {"DIV", nil},
	OP_MOD:            {"MOD", nil},
	OP_NEG:            {"NEG", nil},
	OP_EQ:             {"EQ", nil},
	OP_NE:             {"NE", nil},
	OP_LT:             {"LT", nil},
	OP_LE:             {"LE", nil},
	OP_GT:             {"GT", nil},
	OP_GE:             {"GE", nil},
	OP_NOT:            {"NOT", nil},
	OP_GET_LOCAL:      {"GET_LOCAL", []int{1}},
	OP_SET_LOCAL:      {"SET_LOCAL", []int{1}},
	OP_GET_STATIC:     {"GET_STATIC", []int{2}},
	OP_SET_STATIC:     {"SET_STATIC", []int{2}},
	OP_JUMP:           {"JUMP", []int{2}},
	OP_JUMP_IF_FALSE:  {"JUMP_IF_FALSE", []int{2}},
	OP_LOOP:           {"LOOP", []int{2}},
	OP_INVOKE_STATIC:  {"INVOKE_STATIC", []int{2, 1}},
	OP_INVOKE_NATIVE:  {"INVOKE_NATIVE", []int{2, 1}},
	OP_INVOKE_VIRTUAL: {"INVOKE_VIRTUAL", []int{2, 1}},
	OP_METHOD_REF:     {"METHOD_REF", []int{2}},
	OP_NEW_ARRAY:      {"NEW_ARRAY", []int{2}},
	OP_NEW_OBJECT:     {"NEW_OBJECT", []int{2, 1}},
	OP_GET_INDEX:      {"GET_INDEX", nil},
	OP_SET_INDEX:      {"SET_INDEX", nil},
	OP_ARRAY_LENGTH:   {"ARRAY_LENGTH", nil},
	OP_THROW:          {"THROW", nil},
	OP_RETURN:         {"RETURN", nil},
	OP_RETURN_VOID:    {"RETURN_VOID", nil},
}

func (op Opcode) String() string {
	if in, ok := instructions[op]; ok {
		return in.name
	}
	return "UNKNOWN"
}

// Width returns the encoded size of an instruction including its operands.
func (op Opcode) Width() int {
	n := 1
	for _, w := range instructions[op].operands {
		n += w
	}
	return n
}
