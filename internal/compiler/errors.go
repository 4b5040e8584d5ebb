package compiler

import (
	"errors"
	"fmt"

	"github.com/funvibe/jot/internal/diagnostics"
)

// ErrorKind classifies a compile failure.
type ErrorKind int

const (
	// Syntax covers lexing, parsing and declaration errors.
	Syntax ErrorKind = iota
	// UnresolvedReference covers unknown classes, members and arity mismatches.
	UnresolvedReference
	// IO covers unreadable sources, libraries and unwritable outputs.
	IO
)

func (k ErrorKind) String() string {
	switch k {
	case Syntax:
		return "syntax"
	case UnresolvedReference:
		return "unresolved reference"
	case IO:
		return "io"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// CompileError is returned by Compile and CompileLibrary.
type CompileError struct {
	Kind       ErrorKind
	File       string
	Diagnostic *diagnostics.DiagnosticError // nil for IO errors
	Err        error
}

func (e *CompileError) Error() string {
	if e.Diagnostic != nil {
		return fmt.Sprintf("compile %s error: %s", e.Kind, e.Diagnostic.Error())
	}
	if e.File != "" {
		return fmt.Sprintf("compile %s error: %s: %v", e.Kind, e.File, e.Err)
	}
	return fmt.Sprintf("compile %s error: %v", e.Kind, e.Err)
}

func (e *CompileError) Unwrap() error {
	if e.Diagnostic != nil {
		return e.Diagnostic
	}
	return e.Err
}

func ioError(file string, err error) *CompileError {
	return &CompileError{Kind: IO, File: file, Err: err}
}

func diagnosticError(file string, diag *diagnostics.DiagnosticError) *CompileError {
	kind := Syntax
	if diag.Code.IsResolution() {
		kind = UnresolvedReference
	}
	if diag.File == "" {
		diag.File = file
	}
	return &CompileError{Kind: kind, File: file, Diagnostic: diag}
}

// IsKind reports whether err is a CompileError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ce *CompileError
	return errors.As(err, &ce) && ce.Kind == kind
}
