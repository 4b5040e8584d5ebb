package vm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/funvibe/jot/internal/config"
)

// IO binds the standard streams of one runtime.
type IO struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
}

// Runtime is one loading context: a program plus its own static storage and
// streams. A program can back many runtimes; they never share statics.
type Runtime struct {
	prog *Program
	ctx  context.Context

	mu      sync.Mutex
	statics [][]Value

	stdout io.Writer
	stderr io.Writer
	inMu   sync.Mutex
	stdin  *bufio.Reader

	threadSeq atomic.Int64
}

func NewRuntime(ctx context.Context, prog *Program, streams IO) *Runtime {
	if streams.Stdout == nil {
		streams.Stdout = io.Discard
	}
	if streams.Stderr == nil {
		streams.Stderr = io.Discard
	}
	if streams.Stdin == nil {
		streams.Stdin = eofReader{}
	}

	rt := &Runtime{
		prog:    prog,
		ctx:     ctx,
		statics: make([][]Value, len(prog.Classes)),
		stdout:  streams.Stdout,
		stderr:  streams.Stderr,
		stdin:   bufio.NewReader(streams.Stdin),
	}
	for i, cf := range prog.Classes {
		rt.statics[i] = make([]Value, len(cf.Fields))
		for j, f := range cf.Fields {
			rt.statics[i][j] = ZeroValue(f.Type)
		}
	}
	return rt
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }

func (rt *Runtime) Program() *Program { return rt.prog }

// Initialize runs every static initializer in class-table order.
func (rt *Runtime) Initialize() error {
	for i, cf := range rt.prog.Classes {
		if cf.StaticInit == nil {
			continue
		}
		t := rt.newThread("main")
		if _, err := t.run(i, cf.StaticInit, nil); err != nil {
			return err
		}
	}
	return nil
}

// Invoke runs a static method to completion on the calling goroutine.
// Uncaught exceptions are returned as *Exception.
func (rt *Runtime) Invoke(classIdx, methodIdx int, args []Value) (Value, error) {
	if classIdx < 0 || classIdx >= len(rt.prog.Classes) {
		return NilVal(), fmt.Errorf("class index %d out of range", classIdx)
	}
	cf := rt.prog.Classes[classIdx]
	if methodIdx < 0 || methodIdx >= len(cf.Methods) {
		return NilVal(), fmt.Errorf("method index %d out of range in %s", methodIdx, cf.Name)
	}
	t := rt.newThread("main")
	return t.run(classIdx, cf.Methods[methodIdx].Fn, args)
}

// FindMain locates `static void main(String[] args)` in a class.
func FindMain(prog *Program, class string) (classIdx, methodIdx int, ok bool) {
	classIdx, ok = prog.ClassIndex(class)
	if !ok {
		return 0, 0, false
	}
	cf := prog.Classes[classIdx]
	methodIdx, ok = cf.MethodIndex(config.MainMethodName)
	if !ok {
		return 0, 0, false
	}
	m := &cf.Methods[methodIdx]
	if !m.Static || m.Descriptor() != config.MainMethodDescriptor {
		return 0, 0, false
	}
	return classIdx, methodIdx, true
}

func (rt *Runtime) getStatic(classIdx, fieldIdx int) Value {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.statics[classIdx][fieldIdx]
}

func (rt *Runtime) setStatic(classIdx, fieldIdx int, v Value) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.statics[classIdx][fieldIdx] = v
}

// Static reads a static field by name; used by tests and the host.
func (rt *Runtime) Static(class, field string) (Value, bool) {
	ci, ok := rt.prog.ClassIndex(class)
	if !ok {
		return Value{}, false
	}
	fi, ok := rt.prog.Classes[ci].FieldIndex(field)
	if !ok {
		return Value{}, false
	}
	return rt.getStatic(ci, fi), true
}

// startThread runs a method reference on its own goroutine. The runtime does
// not own or join it; an uncaught exception is reported on stderr.
func (rt *Runtime) startThread(h *MethodHandle) {
	name := fmt.Sprintf("Thread-%d", rt.threadSeq.Add(1)-1)
	fn := rt.prog.Classes[h.ClassIdx].Methods[h.MethodIdx].Fn
	go func() {
		t := rt.newThread(name)
		if _, err := t.run(h.ClassIdx, fn, nil); err != nil {
			rt.reportUncaught(name, err)
		}
	}()
}

func (rt *Runtime) reportUncaught(thread string, err error) {
	switch e := err.(type) {
	case *Exception:
		fmt.Fprintf(rt.stderr, "Exception in thread %q %s\n", thread, e.StackTrace())
	case *ExitError:
	default:
		if rt.ctx.Err() == nil {
			fmt.Fprintf(rt.stderr, "Exception in thread %q %v\n", thread, err)
		}
	}
}

func (rt *Runtime) write(w io.Writer, s string) {
	// Writes to a closed console are dropped by the writer.
	_, _ = io.WriteString(w, s)
}
