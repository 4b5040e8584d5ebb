// Package host loads an executable artifact and runs its entry point on a
// background goroutine inside a fresh runtime.
package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/funvibe/jot/internal/entry"
	"github.com/funvibe/jot/internal/vm"
)

// ClassLoadError reports an unreadable, corrupt or mismatched artifact.
type ClassLoadError struct {
	Path string
	Err  error
}

func (e *ClassLoadError) Error() string {
	return fmt.Sprintf("cannot load %s: %v", e.Path, e.Err)
}

func (e *ClassLoadError) Unwrap() error { return e.Err }

// EntryPointNotFoundError is returned by Start when the class or its main is missing.
type EntryPointNotFoundError struct {
	Class  string
	Reason string
}

func (e *EntryPointNotFoundError) Error() string {
	return fmt.Sprintf("entry point %s not found: %s", e.Class, e.Reason)
}

// InvocationError wraps whatever ended main abnormally: an uncaught
// *vm.Exception, a *vm.ExitError with a non-zero code, a *vm.Fault or the
// context's error.
type InvocationError struct {
	Class string
	Cause error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s.main failed: %v", e.Class, e.Cause)
}

func (e *InvocationError) Unwrap() error { return e.Cause }

// IO binds the program's standard streams. Nil fields discard output and
// read as end of input.
type IO struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
}

// Program is a loaded, validated executable artifact. It is immutable and
// may be started any number of times.
type Program struct {
	Path string
	prog *vm.Program
}

// Load reads and validates the executable artifact at path.
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ClassLoadError{Path: path, Err: err}
	}
	prog, err := vm.DeserializeProgram(data)
	if err != nil {
		return nil, &ClassLoadError{Path: path, Err: err}
	}
	return &Program{Path: path, prog: prog}, nil
}

func (p *Program) MainClasses() []string { return entry.MainClasses(p.prog) }

// Execution is one running invocation of main.
type Execution struct {
	Class   string
	runtime *vm.Runtime
	done    chan struct{}
	err     error
}

// Start looks the entry class and its main method up, then runs static
// initializers and main on a new goroutine in a new runtime.
func (p *Program) Start(ctx context.Context, class string, args []string, streams IO) (*Execution, error) {
	classIdx, methodIdx, ok := vm.FindMain(p.prog, class)
	if !ok {
		reason := "no static void main(String[] args)"
		if _, exists := p.prog.Class(class); !exists {
			reason = "class not found"
		}
		return nil, &EntryPointNotFoundError{Class: class, Reason: reason}
	}

	rt := vm.NewRuntime(ctx, p.prog, vm.IO{Stdout: streams.Stdout, Stderr: streams.Stderr, Stdin: streams.Stdin})
	ex := &Execution{Class: class, runtime: rt, done: make(chan struct{})}
	argv := vm.ObjVal(vm.NewStringArray(args))

	go func() {
		defer close(ex.done)
		err := rt.Initialize()
		if err == nil {
			_, err = rt.Invoke(classIdx, methodIdx, []vm.Value{argv})
		}
		ex.err = invocationError(class, err)
	}()
	return ex, nil
}

func invocationError(class string, err error) error {
	if err == nil {
		return nil
	}
	var exit *vm.ExitError
	if errors.As(err, &exit) && exit.Code == 0 {
		return nil
	}
	return &InvocationError{Class: class, Cause: err}
}

// Done is closed when main has returned or failed.
func (e *Execution) Done() <-chan struct{} { return e.done }

// Wait blocks until main finishes and returns nil or an *InvocationError.
func (e *Execution) Wait() error {
	<-e.done
	return e.err
}

// Runtime exposes the execution's runtime, e.g. to inspect static fields.
func (e *Execution) Runtime() *vm.Runtime { return e.runtime }
