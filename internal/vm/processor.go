package vm

import (
	"errors"

	"github.com/funvibe/jot/internal/diagnostics"
	"github.com/funvibe/jot/internal/pipeline"
	"github.com/funvibe/jot/internal/token"
)

// CodegenProcessor compiles every class of an analyzed unit into ctx.ClassFiles.
type CodegenProcessor struct{}

func (cp *CodegenProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.AstRoot == nil {
		return ctx
	}

	for _, decl := range ctx.AstRoot.Classes {
		cf, err := CompileClass(ctx.AstRoot, decl)
		if err != nil {
			ctx.Fail(asDiagnostic(err, decl.Token))
			return ctx
		}
		data, err := cf.Encode()
		if err != nil {
			ctx.Fail(asDiagnostic(err, decl.Token))
			return ctx
		}
		ctx.ClassFiles[cf.Name] = data
	}
	return ctx
}

func asDiagnostic(err error, tok token.Token) *diagnostics.DiagnosticError {
	var diag *diagnostics.DiagnosticError
	if errors.As(err, &diag) {
		return diag
	}
	return diagnostics.NewError(diagnostics.ErrC001, tok, err.Error())
}
