// Package jot embeds the compile, link and run pipeline in a Go program.
//
// The simplest entry point is RunSource, which takes program text the way an
// editor holds it:
//
//	err := jot.RunSource(ctx, src, workDir, jot.Options{
//		OnStdout: func(line string) { fmt.Println(line) },
//	})
//
// CompileAndRun works on files already on disk and returns a Console for
// feeding standard input while the program runs.
package jot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/funvibe/jot/internal/compiler"
	"github.com/funvibe/jot/internal/config"
	"github.com/funvibe/jot/internal/console"
	"github.com/funvibe/jot/internal/engine"
	"github.com/funvibe/jot/internal/entry"
	"github.com/funvibe/jot/internal/host"
	"github.com/funvibe/jot/internal/logtail"
	"github.com/funvibe/jot/internal/transform"
	"github.com/funvibe/jot/internal/vm"
)

type (
	Task              = compiler.Task
	Progress          = compiler.Progress
	Options           = engine.Options
	Console           = console.Console
	LogLine           = logtail.LogLine
	LogTailConfig     = config.LogTailConfig
	Selector          = entry.Selector
	ResolutionRequest = entry.ResolutionRequest
)

// Errors returned by the pipeline, for use with errors.As.
type (
	CompileError            = compiler.CompileError
	TransformError          = transform.TransformError
	NoEntryPointError       = entry.NoEntryPointError
	SelectionCancelledError = entry.SelectionCancelledError
	ClassLoadError          = host.ClassLoadError
	EntryPointNotFoundError = host.EntryPointNotFoundError
	InvocationError         = host.InvocationError
	Exception               = vm.Exception
)

var (
	ErrUnknownCandidate = entry.ErrUnknownCandidate
	ErrRequestCompleted = entry.ErrRequestCompleted
)

// AutoSelect runs the first entry point in lexical order.
func AutoSelect(req *ResolutionRequest) { entry.AutoSelect(req) }

func CompileAndRun(ctx context.Context, task Task, opts Options) (*Console, error) {
	return engine.CompileAndRun(ctx, task, opts)
}

func Run(ctx context.Context, task Task, opts Options) error {
	return engine.Run(ctx, task, opts)
}

// MainFileName is the file RunSource writes the program text to.
const MainFileName = "Main" + config.SourceFileExt

// RunSource saves src as workDir/src/Main.jot, builds it in workDir/build and
// runs it to completion.
func RunSource(ctx context.Context, src, workDir string, opts Options) error {
	task, err := SaveSource(src, workDir)
	if err != nil {
		return err
	}
	return engine.Run(ctx, task, opts)
}

// SaveSource writes src under workDir and returns the task that builds it.
func SaveSource(src, workDir string) (Task, error) {
	srcDir := filepath.Join(workDir, "src")
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		return Task{}, fmt.Errorf("creating %s: %w", srcDir, err)
	}
	path := filepath.Join(srcDir, MainFileName)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		return Task{}, fmt.Errorf("writing %s: %w", path, err)
	}
	return Task{SourcePath: path, BuildDir: filepath.Join(workDir, config.DefaultBuildDir)}, nil
}
