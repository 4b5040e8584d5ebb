package analyzer

import (
	"sort"

	"github.com/funvibe/jot/internal/pipeline"
)

// Processor resolves a parsed unit against a shared class index.
// Every unit of a task must be declared in Index before any unit is processed.
type Processor struct {
	Index *ClassIndex
}

func (ap *Processor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.AstRoot == nil {
		return ctx
	}

	w := newWalker(ap.Index, ctx.AstRoot)
	if err := w.walkUnit(); err != nil {
		ctx.Fail(err)
		return ctx
	}

	refs := make([]string, 0, len(w.refs))
	for name := range w.refs {
		refs = append(refs, name)
	}
	sort.Strings(refs)
	ctx.References = refs
	return ctx
}
