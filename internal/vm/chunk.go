package vm

import "fmt"

type ConstantKind byte

const (
	ConstInt       ConstantKind = iota
	ConstString                 // Str is the value
	ConstName                   // Str is a type, class or method name
	ConstNative                 // Str is an intrinsic such as "System.out.println"
	ConstFieldRef               // Class.Member
	ConstMethodRef              // Class.Member
)

func (k ConstantKind) String() string {
	switch k {
	case ConstInt:
		return "int"
	case ConstString:
		return "string"
	case ConstName:
		return "name"
	case ConstNative:
		return "native"
	case ConstFieldRef:
		return "fieldref"
	case ConstMethodRef:
		return "methodref"
	}
	return fmt.Sprintf("kind(%d)", byte(k))
}

// Constant is one entry of a chunk's constant pool. Field and method
// references are symbolic until the linker fills ClassIdx and MemberIdx.
type Constant struct {
	Kind   ConstantKind
	Int    int64
	Str    string
	Class  string
	Member string

	Linked    bool
	ClassIdx  int
	MemberIdx int
}

func (c Constant) String() string {
	switch c.Kind {
	case ConstInt:
		return fmt.Sprintf("%d", c.Int)
	case ConstString:
		return fmt.Sprintf("%q", c.Str)
	case ConstFieldRef, ConstMethodRef:
		return c.Class + "." + c.Member
	}
	return c.Str
}

// Chunk represents a sequence of bytecode instructions
type Chunk struct {
	Code      []byte
	Constants []Constant

	// Lines maps bytecode offset to source line number (for stack traces)
	Lines []int
}

func NewChunk() *Chunk {
	return &Chunk{
		Code:      make([]byte, 0, 64),
		Constants: make([]Constant, 0, 16),
		Lines:     make([]int, 0, 64),
	}
}

// Write adds a byte to the chunk with line info
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

func (c *Chunk) WriteOp(op Opcode, line int) {
	c.Write(byte(op), line)
}

// WriteU16 writes a big-endian operand.
func (c *Chunk) WriteU16(v int, line int) {
	c.Write(byte(v>>8), line)
	c.Write(byte(v), line)
}

// AddConstant interns a constant and returns its index.
func (c *Chunk) AddConstant(k Constant) int {
	for i, existing := range c.Constants {
		if existing == k {
			return i
		}
	}
	c.Constants = append(c.Constants, k)
	return len(c.Constants) - 1
}

// ReadU16 reads a big-endian operand at offset
func (c *Chunk) ReadU16(offset int) int {
	return int(c.Code[offset])<<8 | int(c.Code[offset+1])
}

func (c *Chunk) Len() int {
	return len(c.Code)
}

// LineAt returns the source line of the instruction at offset, or 0.
func (c *Chunk) LineAt(offset int) int {
	if offset >= 0 && offset < len(c.Lines) {
		return c.Lines[offset]
	}
	return 0
}
