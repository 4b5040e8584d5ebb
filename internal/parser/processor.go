package parser

import (
	"github.com/funvibe/jot/internal/diagnostics"
	"github.com/funvibe/jot/internal/pipeline"
	"github.com/funvibe/jot/internal/token"
)

type ParserProcessor struct{}

func (pp *ParserProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.Tokens == nil {
		ctx.Fail(diagnostics.NewError(diagnostics.ErrP001, token.Token{}, "parser: token stream is nil"))
		return ctx
	}

	parser := New(ctx.Tokens, ctx)
	ctx.AstRoot = parser.ParseCompilationUnit()
	ctx.AstRoot.File = ctx.FilePath
	return ctx
}
