package vm

import (
	"fmt"
	"strings"
)

// StackFrame is one line of an exception stack trace.
type StackFrame struct {
	Class  string
	Method string
	File   string
	Line   int
}

func (f StackFrame) String() string {
	if f.File == "" {
		return fmt.Sprintf("%s.%s(Unknown Source)", f.Class, f.Method)
	}
	return fmt.Sprintf("%s.%s(%s:%d)", f.Class, f.Method, f.File, f.Line)
}

// Exception is a thrown jot object. It is also the error returned when an
// exception escapes the invoked method.
type Exception struct {
	Class      string
	Message    string
	HasMessage bool
	Trace      []StackFrame
}

func (e *Exception) Error() string { return e.String() }

func (e *Exception) String() string {
	if !e.HasMessage {
		return e.Class
	}
	return e.Class + ": " + e.Message
}

// StackTrace renders the exception followed by "\tat ..." lines.
func (e *Exception) StackTrace() string {
	var sb strings.Builder
	sb.WriteString(e.String())
	for _, f := range e.Trace {
		sb.WriteString("\n\tat ")
		sb.WriteString(f.String())
	}
	return sb.String()
}

// ExitError is returned when the program calls System.exit.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

// Fault is an internal VM failure such as a corrupted stack.
type Fault struct {
	Frame StackFrame
	Err   error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("vm fault at %s: %v", f.Frame, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }
