package diagnostics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func loc(line, column int) Location {
	return Location{Source: "main.lisp", Line: line, Column: column}
}

func TestErrorMatchesKindSentinels(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		matches  []error
		excludes []error
	}{
		{
			name:     "lex",
			kind:     KindLex,
			matches:  []error{ErrLex},
			excludes: []error{ErrParse, ErrAnalyzer},
		},
		{
			name:     "unfinished parse belongs to the parse family",
			kind:     KindUnfinishedParse,
			matches:  []error{ErrUnfinishedParse, ErrParse},
			excludes: []error{ErrUnexpectedToken, ErrLex},
		},
		{
			name:     "unexpected token",
			kind:     KindUnexpectedToken,
			matches:  []error{ErrUnexpectedToken, ErrParse},
			excludes: []error{ErrNotValidQuote},
		},
		{
			name:     "macro expansion is an analyzer error",
			kind:     KindMacroExpansion,
			matches:  []error{ErrMacroExpansion, ErrAnalyzer},
			excludes: []error{ErrEmit},
		},
		{
			name:     "emit",
			kind:     KindEmit,
			matches:  []error{ErrEmit},
			excludes: []error{ErrAnalyzer},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := New(test.kind, NewSpan(loc(1, 1), loc(1, 2)), "boom")
			for _, target := range test.matches {
				assert.True(t, errors.Is(err, target), "expected match with %v", target)
			}

			for _, target := range test.excludes {
				assert.False(t, errors.Is(err, target), "unexpected match with %v", target)
			}
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("depth exceeded")
	err := Wrap(KindMacroExpansion, NewSpan(loc(3, 5), loc(3, 9)), cause, "expanding %s", "loop-forever")

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "main.lisp:3:5: MacroExpansionError: expanding loop-forever: depth exceeded", err.Error())

	wrapped := fmt.Errorf("compile unit: %w", err)
	located, ok := AsError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, 3, located.Span.Start.Line)
	assert.True(t, errors.Is(wrapped, ErrAnalyzer))
}

func TestAsErrorOnPlainError(t *testing.T) {
	_, ok := AsError(errors.New("plain"))
	assert.False(t, ok)
}

func TestSpanUnion(t *testing.T) {
	a := NewSpan(loc(1, 5), loc(1, 9))
	b := NewSpan(loc(2, 1), loc(2, 4))

	union := a.Union(b)
	assert.Equal(t, loc(1, 5), union.Start)
	assert.Equal(t, loc(2, 4), union.End)
	assert.True(t, union.Contains(a))
	assert.True(t, union.Contains(b))
	assert.False(t, a.Contains(union))

	assert.Equal(t, a, a.Union(Span{}))
	assert.Equal(t, b, Span{}.Union(b))
}

func TestPrettyRendersCaret(t *testing.T) {
	source := "(def a 1)\n(print b)\n(def c 3)"
	err := New(KindAnalyzer, NewSpan(loc(2, 8), loc(2, 9)), "unresolved symbol b")

	expected := "COMPILE ERROR in main.lisp at 2:8: unresolved symbol b\n" +
		"\n" +
		"   1 | (def a 1)\n" +
		"   2 | (print b)\n" +
		"     |        ^\n" +
		"   3 | (def c 3)\n"

	assert.Equal(t, expected, Render(err, source, 1))
}

func TestPrettyUsesSnippetWithoutSource(t *testing.T) {
	err := New(KindUnfinishedParse, NewSpan(loc(10, 3), loc(10, 4)), "'(' is never closed").
		WithSnippet(CodeSnippet{Start: loc(10, 3), End: loc(10, 8), Text: "(a b"})

	expected := "PARSE ERROR in main.lisp at 10:3: '(' is never closed\n" +
		"\n" +
		"  10 |   (a b\n" +
		"     |   ^\n"

	assert.Equal(t, expected, err.Pretty("", 0))
}

func TestRenderPlainError(t *testing.T) {
	assert.Equal(t, "plain", Render(errors.New("plain"), "x", 1))
}
