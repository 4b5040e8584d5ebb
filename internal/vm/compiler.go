package vm

import (
	"sort"

	"github.com/funvibe/jot/internal/ast"
	"github.com/funvibe/jot/internal/config"
	"github.com/funvibe/jot/internal/diagnostics"
	"github.com/funvibe/jot/internal/token"
)

// LoopContext tracks loop information for break/continue
type LoopContext struct {
	loopStart     int   // offset of the condition (continue target for while)
	forwardCont   bool  // continue jumps forward to an update clause
	continueJumps []int // offsets of continue jumps to patch
	breakJumps    []int // offsets of break jumps to patch
}

// Compiler generates bytecode for one class of an analyzed compilation unit.
type Compiler struct {
	class     string
	chunk     *Chunk
	loopStack []LoopContext
}

func NewCompiler(class string) *Compiler {
	return &Compiler{class: class}
}

// CompileClass produces the class file for decl. The unit must have been analyzed.
func CompileClass(unit *ast.CompilationUnit, decl *ast.ClassDecl) (*ClassFile, error) {
	name := decl.Name
	if pkg := unit.PackageName(); pkg != "" {
		name = pkg + "." + decl.Name
	}
	c := NewCompiler(name)
	cf := &ClassFile{Name: name, SourceFile: unit.File}

	var initialized []*ast.FieldDecl
	for _, f := range decl.Fields() {
		cf.Fields = append(cf.Fields, Field{Name: f.Name, Type: f.Type.String()})
		if f.Value != nil {
			initialized = append(initialized, f)
		}
	}

	if len(initialized) > 0 {
		fn, err := c.compileStaticInit(initialized, decl.Token)
		if err != nil {
			return nil, err
		}
		cf.StaticInit = fn
	}

	for _, m := range decl.Methods() {
		fn, err := c.compileMethod(m)
		if err != nil {
			return nil, err
		}
		params := make([]string, len(m.Params))
		for i, p := range m.Params {
			params[i] = p.Type.String()
		}
		cf.Methods = append(cf.Methods, Method{
			Name:   m.Name,
			Static: m.Static,
			Params: params,
			Return: m.ReturnType.String(),
			Fn:     fn,
		})
	}

	cf.References = collectReferences(cf)
	return cf, nil
}

func (c *Compiler) compileStaticInit(fields []*ast.FieldDecl, tok token.Token) (*Function, error) {
	c.chunk = NewChunk()
	for _, f := range fields {
		if err := c.compileExpression(f.Value); err != nil {
			return nil, err
		}
		if err := c.emitU16(OP_SET_STATIC, c.fieldRef(c.class, f.Name), f.Token.Line); err != nil {
			return nil, err
		}
	}
	c.emit(OP_RETURN_VOID, tok.Line)
	return &Function{Name: config.StaticInitName, Chunk: c.chunk}, nil
}

func (c *Compiler) compileMethod(m *ast.MethodDecl) (*Function, error) {
	c.chunk = NewChunk()
	c.loopStack = nil
	for _, stmt := range m.Body.Statements {
		if err := c.compileStatement(stmt); err != nil {
			return nil, err
		}
	}
	c.emit(OP_RETURN_VOID, m.Body.EndToken.Line)
	return &Function{
		Name:       m.Name,
		Arity:      len(m.Params),
		LocalCount: m.LocalCount,
		Chunk:      c.chunk,
	}, nil
}

// collectReferences lists the classes named by field and method references.
func collectReferences(cf *ClassFile) []string {
	seen := make(map[string]bool)
	_ = forEachFunction(cf, func(fn *Function) error {
		for _, k := range fn.Chunk.Constants {
			if (k.Kind == ConstFieldRef || k.Kind == ConstMethodRef) && k.Class != cf.Name {
				seen[k.Class] = true
			}
		}
		return nil
	})
	refs := make([]string, 0, len(seen))
	for name := range seen {
		refs = append(refs, name)
	}
	sort.Strings(refs)
	return refs
}

// Emit helpers

func (c *Compiler) emit(op Opcode, line int) {
	c.chunk.WriteOp(op, line)
}

func (c *Compiler) emitU16(op Opcode, operand int, line int) error {
	if operand < 0 {
		return tooLarge(c.class, line)
	}
	c.chunk.WriteOp(op, line)
	c.chunk.WriteU16(operand, line)
	return nil
}

func (c *Compiler) emitCall(op Opcode, constant int, argc int, line int) error {
	if err := c.emitU16(op, constant, line); err != nil {
		return err
	}
	c.chunk.Write(byte(argc), line)
	return nil
}

// constant interns k, returning -1 when the pool is full.
func (c *Compiler) constant(k Constant) int {
	idx := c.chunk.AddConstant(k)
	if idx > 0xffff {
		return -1
	}
	return idx
}

func (c *Compiler) fieldRef(class, field string) int {
	return c.constant(Constant{Kind: ConstFieldRef, Class: class, Member: field})
}

func (c *Compiler) methodRef(class, method string) int {
	return c.constant(Constant{Kind: ConstMethodRef, Class: class, Member: method})
}

// emitJump emits a forward jump with a placeholder offset and returns its operand offset.
func (c *Compiler) emitJump(op Opcode, line int) int {
	c.emit(op, line)
	c.chunk.WriteU16(0xffff, line)
	return c.chunk.Len() - 2
}

// patchJump points the jump whose operand is at offset to the current end of code.
func (c *Compiler) patchJump(offset int) error {
	jump := c.chunk.Len() - offset - 2
	if jump > 0xffff {
		return tooLarge(c.class, c.chunk.LineAt(offset))
	}
	c.chunk.Code[offset] = byte(jump >> 8)
	c.chunk.Code[offset+1] = byte(jump)
	return nil
}

// emitLoop emits a backward jump to loopStart
func (c *Compiler) emitLoop(loopStart int, line int) error {
	c.emit(OP_LOOP, line)
	offset := c.chunk.Len() - loopStart + 2
	if offset > 0xffff {
		return tooLarge(c.class, line)
	}
	c.chunk.WriteU16(offset, line)
	return nil
}

func tooLarge(class string, line int) error {
	return diagnostics.NewErrorf(diagnostics.ErrC001, token.Token{Line: line}, "code too large in class %s", class)
}
