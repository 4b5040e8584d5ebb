package lexer

import (
	"github.com/funvibe/jot/internal/diagnostics"
	"github.com/funvibe/jot/internal/pipeline"
	"github.com/funvibe/jot/internal/token"
)

type LexerProcessor struct{}

func (lp *LexerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	ctx.Tokens, ctx.Comments = Tokenize(ctx.SourceCode)

	for _, tok := range ctx.Tokens {
		if tok.Type != token.ILLEGAL {
			continue
		}
		msg, _ := tok.Literal.(string)
		code := diagnostics.ErrL002
		if msg == tok.Lexeme {
			code = diagnostics.ErrL001
			msg = "illegal character " + `'` + tok.Lexeme + `'`
		}
		ctx.Fail(diagnostics.NewError(code, tok, msg))
		// One lexical error is enough; later tokens are unreliable.
		break
	}
	return ctx
}
