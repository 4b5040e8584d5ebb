package jot

import (
	"context"
	"fmt"
	"io"

	"github.com/funvibe/jot/internal/host"
)

// Program is a linked executable loaded for direct use, without the
// dispatcher or log tailing of CompileAndRun.
type Program struct {
	p *host.Program
}

// Load reads a program.jex produced by a build.
func Load(path string) (*Program, error) {
	p, err := host.Load(path)
	if err != nil {
		return nil, err
	}
	return &Program{p: p}, nil
}

func (p *Program) MainClasses() []string { return p.p.MainClasses() }

// Execution is a running main started with Program.Start.
type Execution struct {
	ex         *host.Execution
	marshaller *Marshaller
}

// Start runs class.main on a new runtime with the given streams. Nil streams
// discard output and read as end of input.
func (p *Program) Start(ctx context.Context, class string, args []string, stdout, stderr io.Writer, stdin io.Reader) (*Execution, error) {
	ex, err := p.p.Start(ctx, class, args, host.IO{Stdout: stdout, Stderr: stderr, Stdin: stdin})
	if err != nil {
		return nil, err
	}
	return &Execution{ex: ex, marshaller: NewMarshaller()}, nil
}

func (e *Execution) Wait() error           { return e.ex.Wait() }
func (e *Execution) Done() <-chan struct{} { return e.ex.Done() }

// Static reads a static field and converts it to a Go value: int64, string,
// bool, nil, []interface{} for arrays or error for exceptions.
func (e *Execution) Static(class, field string) (interface{}, error) {
	v, ok := e.ex.Runtime().Static(class, field)
	if !ok {
		return nil, fmt.Errorf("no static field %s.%s", class, field)
	}
	return e.marshaller.FromValue(v)
}
