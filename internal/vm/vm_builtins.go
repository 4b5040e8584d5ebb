package vm

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/funvibe/jot/internal/config"
)

type nativeFn func(t *thread, args []Value) Value

var natives map[string]nativeFn

func init() {
	natives = map[string]nativeFn{
		"System.out.println": func(t *thread, args []Value) Value {
			t.rt.write(t.rt.stdout, joinArg(args)+"\n")
			return NilVal()
		},
		"System.out.print": func(t *thread, args []Value) Value {
			t.rt.write(t.rt.stdout, args[0].String())
			return NilVal()
		},
		"System.out.flush": func(t *thread, args []Value) Value { return NilVal() },
		"System.err.println": func(t *thread, args []Value) Value {
			t.rt.write(t.rt.stderr, joinArg(args)+"\n")
			return NilVal()
		},
		"System.err.print": func(t *thread, args []Value) Value {
			t.rt.write(t.rt.stderr, args[0].String())
			return NilVal()
		},
		"System.err.flush": func(t *thread, args []Value) Value { return NilVal() },
		"System.in.readLine":       builtinReadLine,
		"System.in.read":           builtinRead,
		"System.currentTimeMillis": func(t *thread, args []Value) Value { return IntVal(time.Now().UnixMilli()) },
		"System.exit": func(t *thread, args []Value) Value {
			panic(&ExitError{Code: int(t.intOperand(args[0], "exit"))})
		},
		"Integer.parseInt": builtinParseInt,
		"Integer.toString": func(t *thread, args []Value) Value { return StringVal(args[0].String()) },
		"String.valueOf":   func(t *thread, args []Value) Value { return StringVal(args[0].String()) },
		"Math.abs": func(t *thread, args []Value) Value {
			n := t.intOperand(args[0], "abs")
			if n < 0 {
				n = -n
			}
			return IntVal(n)
		},
		"Math.max": func(t *thread, args []Value) Value {
			return IntVal(max(t.intOperand(args[0], "max"), t.intOperand(args[1], "max")))
		},
		"Math.min": func(t *thread, args []Value) Value {
			return IntVal(min(t.intOperand(args[0], "min"), t.intOperand(args[1], "min")))
		},
		"Thread.sleep": builtinSleep,
		"Thread.start": func(t *thread, args []Value) Value {
			if args[0].IsNil() {
				t.throw(config.NullPointerExceptionName, "")
			}
			h, ok := args[0].Obj.(*MethodHandle)
			if !ok {
				t.throw(config.ClassCastExceptionName, "%s is not a method reference", args[0].TypeName())
			}
			t.rt.startThread(h)
			return NilVal()
		},
	}
}

func joinArg(args []Value) string {
	if len(args) == 0 {
		return ""
	}
	return args[0].String()
}

func (t *thread) invokeNative(name string, args []Value) Value {
	fn, ok := natives[name]
	if !ok {
		t.throw(config.UnsupportedOperationName, "unknown native %s", name)
	}
	sig := config.Natives[name]
	if len(args) < sig.MinArgs || len(args) > sig.MaxArgs {
		t.throw(config.IllegalArgumentName, "%s: wrong number of arguments (%d)", name, len(args))
	}
	return fn(t, args)
}

// builtinReadLine returns the next line without its terminator, or null at end of input.
func builtinReadLine(t *thread, args []Value) Value {
	t.rt.inMu.Lock()
	defer t.rt.inMu.Unlock()
	line, err := t.rt.stdin.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return NilVal()
	}
	line = strings.TrimSuffix(line, "\n")
	return StringVal(strings.TrimSuffix(line, "\r"))
}

// builtinRead returns the next byte, or -1 at end of input.
func builtinRead(t *thread, args []Value) Value {
	t.rt.inMu.Lock()
	defer t.rt.inMu.Unlock()
	b, err := t.rt.stdin.ReadByte()
	if err != nil {
		return IntVal(-1)
	}
	return IntVal(int64(b))
}

func builtinParseInt(t *thread, args []Value) Value {
	if args[0].IsNil() {
		t.throw(config.NumberFormatName, "Cannot parse null string: null")
	}
	s := args[0].String()
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		t.throw(config.NumberFormatName, "For input string: %q", s)
	}
	return IntVal(n)
}

func builtinSleep(t *thread, args []Value) Value {
	ms := t.intOperand(args[0], "sleep")
	if ms < 0 {
		t.throw(config.IllegalArgumentName, "timeout value is negative")
	}
	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-t.rt.ctx.Done():
		panic(cancelled{t.rt.ctx.Err()})
	}
	return NilVal()
}

// invokeVirtual dispatches an instance method on a string or exception.
func (t *thread) invokeVirtual(recv Value, name string, args []Value) Value {
	switch recv.Type {
	case ValNil:
		t.throw(config.NullPointerExceptionName, "Cannot invoke \"%s()\" because value is null", name)
	case ValString:
		return t.stringMethod(recv.Str, name, args)
	}

	switch name {
	case "toString":
		return StringVal(recv.String())
	case "equals":
		return BoolVal(recv.Equal(args[0]))
	}
	if e, ok := recv.Obj.(*Exception); ok && name == "getMessage" {
		if !e.HasMessage {
			return NilVal()
		}
		return StringVal(e.Message)
	}
	t.throw(config.UnsupportedOperationName, "%s has no method %s", recv.TypeName(), name)
	return NilVal()
}

func (t *thread) stringMethod(s, name string, args []Value) Value {
	switch name {
	case "length":
		return IntVal(int64(len([]rune(s))))
	case "isEmpty":
		return BoolVal(s == "")
	case "equals":
		return BoolVal(args[0].Type == ValString && args[0].Str == s)
	case "trim":
		return StringVal(strings.TrimSpace(s))
	case "toUpperCase":
		return StringVal(strings.ToUpper(s))
	case "toLowerCase":
		return StringVal(strings.ToLower(s))
	case "toString":
		return StringVal(s)
	case "contains":
		return BoolVal(strings.Contains(s, t.stringArg(args[0])))
	case "startsWith":
		return BoolVal(strings.HasPrefix(s, t.stringArg(args[0])))
	case "endsWith":
		return BoolVal(strings.HasSuffix(s, t.stringArg(args[0])))
	case "indexOf":
		i := strings.Index(s, t.stringArg(args[0]))
		if i < 0 {
			return IntVal(-1)
		}
		return IntVal(int64(len([]rune(s[:i]))))
	case "charAt":
		runes := []rune(s)
		i := t.intOperand(args[0], "charAt")
		if i < 0 || i >= int64(len(runes)) {
			t.throw(config.IndexOutOfBoundsName, "Index %d out of bounds for length %d", i, len(runes))
		}
		return StringVal(string(runes[i]))
	case "substring":
		runes := []rune(s)
		begin, end := t.intOperand(args[0], "substring"), int64(len(runes))
		if len(args) == 2 {
			end = t.intOperand(args[1], "substring")
		}
		if begin < 0 || end > int64(len(runes)) || begin > end {
			t.throw(config.IndexOutOfBoundsName, "begin %d, end %d, length %d", begin, end, len(runes))
		}
		return StringVal(string(runes[begin:end]))
	}
	t.throw(config.UnsupportedOperationName, "String has no method %s", name)
	return NilVal()
}

func (t *thread) stringArg(v Value) string {
	if v.IsNil() {
		t.throw(config.NullPointerExceptionName, "")
	}
	return v.String()
}
