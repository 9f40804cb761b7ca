package analyzer

import (
	"errors"
	"fmt"

	"github.com/shibukawa/snaplisp/diagnostics"
)

// Sentinel errors
var (
	ErrUnresolvedSymbol = errors.New("cannot resolve symbol")
	ErrMalformedForm    = errors.New("malformed special form")
	ErrInvalidBinding   = errors.New("invalid binding")
	ErrNotValue         = errors.New("not usable as a value")
	ErrNameConflict     = errors.New("macro and value share a name")
	ErrRecurPosition    = errors.New("recur outside tail position")
	ErrRecurArity       = errors.New("recur argument count mismatch")
	ErrMacroDepth       = errors.New("macro expansion depth exceeded")
	ErrMacroArity       = errors.New("macro argument count mismatch")
	ErrEvaluation       = errors.New("cannot evaluate at expansion time")
	ErrDefInMacro       = errors.New("definitions are not allowed inside macro bodies")
)

// analyzerError reports "<cause>: <detail>" at span.
func analyzerError(span diagnostics.Span, cause error, format string, args ...any) error {
	return diagnostics.Wrap(diagnostics.KindAnalyzer, span, detail(cause, format, args...), "")
}

func macroError(span diagnostics.Span, cause error, format string, args ...any) error {
	return diagnostics.Wrap(diagnostics.KindMacroExpansion, span, detail(cause, format, args...), "")
}

func detail(cause error, format string, args ...any) error {
	if format == "" {
		return cause
	}

	return fmt.Errorf("%w: %s", cause, fmt.Sprintf(format, args...))
}
