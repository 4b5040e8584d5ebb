// Package engine wires the pipeline together: compile, transform, pick an
// entry point, then run it with its output routed back through callbacks.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/funvibe/jot/internal/compiler"
	"github.com/funvibe/jot/internal/config"
	"github.com/funvibe/jot/internal/console"
	"github.com/funvibe/jot/internal/entry"
	"github.com/funvibe/jot/internal/history"
	"github.com/funvibe/jot/internal/host"
	"github.com/funvibe/jot/internal/logtail"
	"github.com/funvibe/jot/internal/metrics"
	"github.com/funvibe/jot/internal/transform"
)

// Options tune one CompileAndRun call. The zero value is usable: callbacks
// default to no-ops, entry selection to entry.AutoSelect and the log tailer
// is off.
//
// Every callback except SelectEntryPoint runs on the run's dispatcher
// goroutine, one at a time, in the order the events happened.
// SelectEntryPoint runs on its own goroutine after the progress callbacks
// before it; it should give up once the request's Done channel closes.
type Options struct {
	OnProgress       func(compiler.Progress)
	SelectEntryPoint entry.Selector
	OnStdout         func(line string)
	OnStderr         func(line string)
	OnLog            func(logtail.LogLine)

	// Args is passed to main.
	Args []string
	// SelectionTimeout bounds SelectEntryPoint. Zero waits for ever.
	SelectionTimeout time.Duration

	LogTail config.LogTailConfig
	// Format reprints the sources in place before compiling them.
	Format bool

	History *history.Store
	Metrics *metrics.Recorder
	Logger  *log.Logger
}

func (o Options) withDefaults() Options {
	if o.OnProgress == nil {
		o.OnProgress = func(compiler.Progress) {}
	}
	if o.SelectEntryPoint == nil {
		o.SelectEntryPoint = entry.AutoSelect
	}
	if o.OnStdout == nil {
		o.OnStdout = func(string) {}
	}
	if o.OnStderr == nil {
		o.OnStderr = func(string) {}
	}
	if o.OnLog == nil {
		o.OnLog = func(logtail.LogLine) {}
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return o
}

// Run compiles and runs task and waits for the program to finish.
func Run(ctx context.Context, task compiler.Task, opts Options) error {
	con, err := CompileAndRun(ctx, task, opts)
	if err != nil {
		return err
	}
	return con.Wait()
}

// CompileAndRun returns once main has started. Errors from any stage are
// returned unchanged so callers can match them with errors.As:
// *compiler.CompileError, *transform.TransformError, *entry.NoEntryPointError,
// *entry.SelectionCancelledError, *host.ClassLoadError and
// *host.EntryPointNotFoundError. Failures of the program itself arrive
// through Console.Wait as *host.InvocationError.
func CompileAndRun(ctx context.Context, task compiler.Task, opts Options) (*console.Console, error) {
	opts = opts.withDefaults()
	r := &run{
		id:      uuid.NewString(),
		task:    task,
		opts:    opts,
		started: time.Now(),
	}
	r.logger = opts.Logger.WithPrefix("engine").With("run", r.id[:8])
	r.dispatcher = console.NewDispatcher(r.logger)

	con, err := r.start(ctx)
	if err != nil {
		r.dispatcher.Close()
		r.finish(err)
		return nil, err
	}
	return con, nil
}

type run struct {
	id         string
	task       compiler.Task
	opts       Options
	logger     *log.Logger
	dispatcher *console.Dispatcher
	started    time.Time
	entry      string
}

func (r *run) progress(p compiler.Progress) {
	r.dispatcher.Post(func() { r.opts.OnProgress(p) })
}

// stage times fn and records it under name.
func (r *run) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	r.opts.Metrics.ObserveStage(name, time.Since(start), err)
	if err != nil {
		r.logger.Debug("stage failed", "stage", name, "err", err)
	}
	return err
}

func (r *run) start(ctx context.Context) (*console.Console, error) {
	if r.opts.Format {
		r.format()
	}

	var art *compiler.IntermediateArtifact
	err := r.stage(metrics.StageCompile, func() (err error) {
		art, err = compiler.Compile(ctx, r.task, r.progress)
		return err
	})
	if err != nil {
		return nil, err
	}

	var exe *transform.ExecutableArtifact
	err = r.stage(metrics.StageTransform, func() (err error) {
		exe, err = transform.Transform(ctx, art, r.task.BuildDir, r.progress)
		return err
	})
	if err != nil {
		return nil, err
	}

	prog, err := host.Load(exe.Path)
	if err != nil {
		return nil, err
	}

	err = r.stage(metrics.StageResolve, func() (err error) {
		r.entry, err = entry.Resolve(ctx, prog.MainClasses(), r.selector, r.opts.SelectionTimeout)
		return err
	})
	if err != nil {
		return nil, err
	}

	tailer, err := logtail.New(r.opts.LogTail, r.logger.WithPrefix("logtail"))
	if err != nil {
		return nil, err
	}
	return r.execute(ctx, prog, tailer)
}

// selector runs the caller's selector on the resolver's goroutine once the
// callbacks queued before it have run. A selector still blocked after a
// timeout or cancellation must not delay teardown, so it never runs on the
// dispatcher.
func (r *run) selector(req *entry.ResolutionRequest) {
	r.dispatcher.Flush()
	select {
	case <-req.Done():
		return
	default:
	}
	r.opts.SelectEntryPoint(req)
}

func (r *run) execute(ctx context.Context, prog *host.Program, tailer *logtail.Tailer) (*console.Console, error) {
	deliver := func(line string, ch console.Channel) {
		r.opts.Metrics.ObserveLine(ch.String())
		fn := r.opts.OnStdout
		if ch == console.Stderr {
			fn = r.opts.OnStderr
		}
		r.dispatcher.Post(func() { fn(line) })
	}
	stdout := console.NewLineWriter(console.Stdout, deliver)
	stderr := console.NewLineWriter(console.Stderr, deliver)
	stdin := console.NewStdin()

	// runCtx is the runtime's context. Cancelling it stops every thread of
	// the program, so only Console.Cancel and the caller's ctx may do that.
	runCtx, cancel := context.WithCancel(ctx)
	exec, err := prog.Start(runCtx, r.entry, r.opts.Args, host.IO{Stdout: stdout, Stderr: stderr, Stdin: stdin})
	if err != nil {
		cancel()
		return nil, err
	}
	r.logger.Debug("started", "entry", r.entry)

	if err := tailer.Start(ctx, func(line logtail.LogLine) {
		r.dispatcher.Post(func() { r.opts.OnLog(line) })
	}); err != nil {
		r.logger.Warn("log tail not started", "err", err)
	}

	con := console.New(r.id, stdin, cancel)
	go func() {
		start := time.Now()
		err := exec.Wait()
		r.opts.Metrics.ObserveStage(metrics.StageExecute, time.Since(start), err)

		tailer.Stop()
		_ = stdout.Close()
		_ = stderr.Close()
		_ = stdin.Close()
		r.dispatcher.Close()

		r.finish(err)
		con.Finish(err)
	}()
	return con, nil
}

// finish records the outcome in metrics and history.
func (r *run) finish(err error) {
	status := statusOf(err)
	r.opts.Metrics.ObserveRun(status)
	r.logger.Debug("finished", "status", status, "elapsed", time.Since(r.started))

	if r.opts.History == nil {
		return
	}
	rec := history.Run{
		ID:        r.id,
		Source:    r.task.SourcePath,
		Entry:     r.entry,
		Status:    status,
		StartedAt: r.started,
		Duration:  time.Since(r.started),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.opts.History.Record(ctx, rec); err != nil {
		r.logger.Warn("history not recorded", "err", err)
	}
}

func statusOf(err error) string {
	var cancelled *entry.SelectionCancelledError
	switch {
	case err == nil:
		return history.StatusSucceeded
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.As(err, &cancelled):
		return history.StatusCancelled
	}
	return history.StatusFailed
}

// Describe renders err with its stage for CLI output.
func Describe(err error) string {
	var (
		compileErr   *compiler.CompileError
		transformErr *transform.TransformError
		invokeErr    *host.InvocationError
	)
	switch {
	case errors.As(err, &compileErr):
		return fmt.Sprintf("compile failed: %v", err)
	case errors.As(err, &transformErr):
		return fmt.Sprintf("transform failed: %v", err)
	case errors.As(err, &invokeErr):
		return fmt.Sprintf("program failed: %v", err)
	}
	return err.Error()
}
