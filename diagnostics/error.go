package diagnostics

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every *Error matches the sentinel of its Kind (and its family) with errors.Is.
var (
	ErrLex             = errors.New("lex error")
	ErrParse           = errors.New("parse error")
	ErrUnfinishedParse = fmt.Errorf("%w: unfinished form", ErrParse)
	ErrUnexpectedToken = fmt.Errorf("%w: unexpected token", ErrParse)
	ErrNotValidQuote   = fmt.Errorf("%w: invalid quote target", ErrParse)
	ErrAnalyzer        = errors.New("analyzer error")
	ErrMacroExpansion  = fmt.Errorf("%w: macro expansion failed", ErrAnalyzer)
	ErrEmit            = errors.New("emit error")
)

// Kind classifies a located error by pipeline stage.
type Kind int

const (
	KindLex Kind = iota
	KindParse
	KindUnfinishedParse
	KindUnexpectedToken
	KindNotValidQuote
	KindAnalyzer
	KindMacroExpansion
	KindEmit
)

func (k Kind) String() string {
	switch k {
	case KindLex:
		return "LexError"
	case KindParse:
		return "ParseError"
	case KindUnfinishedParse:
		return "UnfinishedParseError"
	case KindUnexpectedToken:
		return "UnexpectedTokenError"
	case KindNotValidQuote:
		return "NotValidQuoteError"
	case KindAnalyzer:
		return "AnalyzerError"
	case KindMacroExpansion:
		return "MacroExpansionError"
	case KindEmit:
		return "EmitError"
	default:
		return "UnknownError"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindLex:
		return ErrLex
	case KindParse:
		return ErrParse
	case KindUnfinishedParse:
		return ErrUnfinishedParse
	case KindUnexpectedToken:
		return ErrUnexpectedToken
	case KindNotValidQuote:
		return ErrNotValidQuote
	case KindAnalyzer:
		return ErrAnalyzer
	case KindMacroExpansion:
		return ErrMacroExpansion
	case KindEmit:
		return ErrEmit
	default:
		return nil
	}
}

// Stage returns the header used when rendering the error for humans.
func (k Kind) Stage() string {
	switch k {
	case KindLex:
		return "LEXICAL ERROR"
	case KindParse, KindUnfinishedParse, KindUnexpectedToken, KindNotValidQuote:
		return "PARSE ERROR"
	case KindAnalyzer, KindMacroExpansion:
		return "COMPILE ERROR"
	case KindEmit:
		return "EMIT ERROR"
	default:
		return "ERROR"
	}
}

// Error is a located diagnostic raised by any pipeline stage.
type Error struct {
	Kind    Kind
	Message string
	Span    Span
	Snippet *CodeSnippet
	Cause   error
}

// New creates a located error.
func New(kind Kind, span Span, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Span:    span,
	}
}

// Wrap creates a located error caused by another error.
func Wrap(kind Kind, span Span, cause error, format string, args ...any) *Error {
	e := New(kind, span, format, args...)
	e.Cause = cause

	return e
}

// WithSnippet attaches a code snippet and returns the receiver.
func (e *Error) WithSnippet(snippet CodeSnippet) *Error {
	e.Snippet = &snippet
	return e
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Span.Start, e.Kind, e.message())
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel for the error's kind, including the family sentinels it wraps.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	if s == nil {
		return false
	}

	return s == target || errors.Is(s, target)
}

// AsError extracts a located error from an error chain.
func AsError(err error) (*Error, bool) {
	var located *Error
	if errors.As(err, &located) {
		return located, true
	}

	return nil, false
}
