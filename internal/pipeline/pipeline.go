package pipeline

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
	afterEach  func(step int, ctx *PipelineContext)
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// AfterEach registers a hook invoked after every stage that left no errors.
func (p *Pipeline) AfterEach(fn func(step int, ctx *PipelineContext)) *Pipeline {
	p.afterEach = fn
	return p
}

// Run executes the pipeline, stopping at the first stage that reports errors.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for i, processor := range p.processors {
		ctx = processor.Process(ctx)
		if len(ctx.Errors) > 0 {
			return ctx
		}
		if p.afterEach != nil {
			p.afterEach(i, ctx)
		}
	}
	return ctx
}
