package vm

import (
	"errors"
	"fmt"

	"github.com/funvibe/jot/internal/config"
)

var (
	errTruncatedBytecode    = errors.New("truncated bytecode")
	errStackUnderflow       = errors.New("stack underflow")
	errInvalidConstantIndex = errors.New("invalid constant index")
)

// Maximum call stack depth before StackOverflowError
const MaxFrameCount = 4096

// Cancellation is checked every this many instructions.
const contextCheckInterval = 1000

const initialStackSize = 256

// CallFrame represents a single ongoing method call
type CallFrame struct {
	classIdx int
	fn       *Function
	chunk    *Chunk
	ip       int
	base     int // first local slot in the stack
}

// thread is one interpreter: an operand stack and a call stack.
type thread struct {
	rt   *Runtime
	name string

	stack  []Value
	frames []CallFrame
	frame  *CallFrame
	ops    int
}

func (rt *Runtime) newThread(name string) *thread {
	return &thread{
		rt:     rt,
		name:   name,
		stack:  make([]Value, 0, initialStackSize),
		frames: make([]CallFrame, 0, 16),
	}
}

// cancelled carries a context error out of the interpreter loop.
type cancelled struct{ err error }

// run executes fn to completion. Exceptions, exits, cancellation and faults
// unwind by panic and are converted to errors here.
func (t *thread) run(classIdx int, fn *Function, args []Value) (result Value, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		result = NilVal()
		switch e := r.(type) {
		case *Exception:
			err = e
		case *ExitError:
			err = e
		case cancelled:
			err = e.err
		case error:
			if e == errTruncatedBytecode || e == errStackUnderflow || e == errInvalidConstantIndex {
				err = &Fault{Frame: t.currentFrame(), Err: e}
				return
			}
			panic(r)
		default:
			panic(r)
		}
	}()

	for _, a := range args {
		t.push(a)
	}
	t.call(classIdx, fn, len(args))
	return t.execute(), nil
}

func (t *thread) call(classIdx int, fn *Function, argc int) {
	if len(t.frames) >= MaxFrameCount {
		t.throw(config.StackOverflowErrorName, "")
	}
	base := len(t.stack) - argc
	for i := fn.Arity; i < fn.LocalCount; i++ {
		t.push(NilVal())
	}
	t.frames = append(t.frames, CallFrame{
		classIdx: classIdx,
		fn:       fn,
		chunk:    fn.Chunk,
		base:     base,
	})
	t.frame = &t.frames[len(t.frames)-1]
}

// ret pops the current frame and reports whether the outermost frame returned.
func (t *thread) ret(result Value) bool {
	t.stack = t.stack[:t.frame.base]
	t.frames = t.frames[:len(t.frames)-1]
	if len(t.frames) == 0 {
		t.frame = nil
		return true
	}
	t.frame = &t.frames[len(t.frames)-1]
	t.push(result)
	return false
}

func (t *thread) checkContext() {
	t.ops++
	if t.ops%contextCheckInterval != 0 {
		return
	}
	if err := t.rt.ctx.Err(); err != nil {
		panic(cancelled{err})
	}
}

// Stack operations
func (t *thread) push(v Value) {
	t.stack = append(t.stack, v)
}

func (t *thread) pop() Value {
	n := len(t.stack)
	if n <= t.frameFloor() {
		panic(errStackUnderflow)
	}
	v := t.stack[n-1]
	t.stack = t.stack[:n-1]
	return v
}

func (t *thread) peek(distance int) Value {
	idx := len(t.stack) - 1 - distance
	if idx < t.frameFloor() {
		panic(errStackUnderflow)
	}
	return t.stack[idx]
}

// frameFloor is the lowest stack index the current frame may pop.
func (t *thread) frameFloor() int {
	if t.frame == nil {
		return 0
	}
	return t.frame.base + t.frame.fn.LocalCount
}

// Read helpers
func (t *thread) readByte() byte {
	if t.frame.ip >= len(t.frame.chunk.Code) {
		panic(errTruncatedBytecode)
	}
	b := t.frame.chunk.Code[t.frame.ip]
	t.frame.ip++
	return b
}

func (t *thread) readU16() int {
	high := t.readByte()
	low := t.readByte()
	return int(high)<<8 | int(low)
}

func (t *thread) readConstant() Constant {
	idx := t.readU16()
	if idx >= len(t.frame.chunk.Constants) {
		panic(errInvalidConstantIndex)
	}
	return t.frame.chunk.Constants[idx]
}

func (t *thread) currentFrame() StackFrame {
	if t.frame == nil {
		return StackFrame{}
	}
	return t.describe(t.frame)
}

func (t *thread) describe(f *CallFrame) StackFrame {
	cf := t.rt.prog.Classes[f.classIdx]
	// ip has already advanced past the opcode.
	return StackFrame{
		Class:  cf.Name,
		Method: f.fn.Name,
		File:   baseName(cf.SourceFile),
		Line:   f.chunk.LineAt(f.ip - 1),
	}
}

// maxTraceDepth caps captured stack traces.
const maxTraceDepth = 1024

// trace captures the call stack, innermost first.
func (t *thread) trace() []StackFrame {
	out := make([]StackFrame, 0, len(t.frames))
	for i := len(t.frames) - 1; i >= 0 && len(out) < maxTraceDepth; i-- {
		out = append(out, t.describe(&t.frames[i]))
	}
	return out
}

func (t *thread) newException(class, message string, hasMessage bool) *Exception {
	return &Exception{Class: class, Message: message, HasMessage: hasMessage, Trace: t.trace()}
}

// throw raises a runtime exception in the current frame.
func (t *thread) throw(class, format string, args ...interface{}) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	panic(t.newException(class, msg, msg != ""))
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[i+1:]
		}
	}
	return path
}
