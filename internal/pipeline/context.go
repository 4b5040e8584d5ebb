package pipeline

import (
	"github.com/funvibe/jot/internal/ast"
	"github.com/funvibe/jot/internal/diagnostics"
	"github.com/funvibe/jot/internal/token"
)

// Processor is one stage of a pipeline.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// PipelineContext carries one source file through the compiler stages.
type PipelineContext struct {
	SourceCode string
	FilePath   string

	Tokens   []token.Token
	Comments []token.Token
	AstRoot  *ast.CompilationUnit

	// References lists the fully-qualified classes this file refers to (set by analysis).
	References []string

	// ClassFiles maps class name to its encoded class file (set by code generation).
	ClassFiles map[string][]byte

	Errors []*diagnostics.DiagnosticError
}

func NewPipelineContext(input string) *PipelineContext {
	return &PipelineContext{
		SourceCode: input,
		ClassFiles: make(map[string][]byte),
	}
}

// Fail records a diagnostic, stamping it with the file path.
func (ctx *PipelineContext) Fail(err *diagnostics.DiagnosticError) {
	if err.File == "" {
		err.File = ctx.FilePath
	}
	ctx.Errors = append(ctx.Errors, err)
}
