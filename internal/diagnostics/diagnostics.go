// Package diagnostics holds positioned compiler errors.
package diagnostics

import (
	"fmt"

	"github.com/funvibe/jot/internal/token"
)

type ErrorCode string

const (
	// Lexer / parser
	ErrL001 ErrorCode = "L001" // illegal character
	ErrL002 ErrorCode = "L002" // unterminated string or comment
	ErrP001 ErrorCode = "P001" // unexpected token
	ErrP002 ErrorCode = "P002" // no prefix parse function
	ErrP003 ErrorCode = "P003" // invalid assignment target
	ErrP004 ErrorCode = "P004" // invalid integer literal

	// Analyzer: declaration problems
	ErrA001 ErrorCode = "A001" // duplicate class
	ErrA002 ErrorCode = "A002" // duplicate member
	ErrA003 ErrorCode = "A003" // duplicate local
	ErrA004 ErrorCode = "A004" // break/continue outside loop
	ErrA005 ErrorCode = "A005" // invalid statement in context

	// Analyzer: resolution problems
	ErrR001 ErrorCode = "R001" // unknown class
	ErrR002 ErrorCode = "R002" // unknown method
	ErrR003 ErrorCode = "R003" // unknown field or variable
	ErrR004 ErrorCode = "R004" // wrong argument count

	// Code generation
	ErrC001 ErrorCode = "C001" // method or constant pool too large
)

// IsResolution reports whether code belongs to the unresolved-reference family.
func (c ErrorCode) IsResolution() bool {
	return len(c) > 0 && c[0] == 'R'
}

type DiagnosticError struct {
	Code    ErrorCode
	Token   token.Token
	Message string
	File    string
}

func NewError(code ErrorCode, tok token.Token, msg string) *DiagnosticError {
	return &DiagnosticError{Code: code, Token: tok, Message: msg}
}

func NewErrorf(code ErrorCode, tok token.Token, format string, args ...interface{}) *DiagnosticError {
	return NewError(code, tok, fmt.Sprintf(format, args...))
}

func (e *DiagnosticError) Error() string {
	file := e.File
	if file == "" {
		file = "<source>"
	}
	return fmt.Sprintf("%s:%d:%d: error[%s]: %s", file, e.Token.Line, e.Token.Column, e.Code, e.Message)
}
