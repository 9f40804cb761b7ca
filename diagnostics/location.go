package diagnostics

import (
	"strconv"
	"strings"
)

// Location is a point in a source unit. Line and Column are 1-based; Column counts runes.
// Offset is the 0-based byte offset into the text handed to the lexer.
type Location struct {
	Source string
	Line   int
	Column int
	Offset int
}

// String returns "source:line:column".
func (l Location) String() string {
	var b strings.Builder

	if l.Source != "" {
		b.WriteString(l.Source)
		b.WriteByte(':')
	}

	b.WriteString(strconv.Itoa(l.Line))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(l.Column))

	return b.String()
}

// IsZero reports whether the location was never set.
func (l Location) IsZero() bool {
	return l.Line == 0 && l.Column == 0
}

// Before reports whether l precedes o in the same source.
func (l Location) Before(o Location) bool {
	if l.Line != o.Line {
		return l.Line < o.Line
	}

	return l.Column < o.Column
}

// Span is a half-open range [Start, End) in one source unit.
type Span struct {
	Start Location
	End   Location
}

// NewSpan creates a span from two locations.
func NewSpan(start, end Location) Span {
	return Span{Start: start, End: end}
}

// IsZero reports whether the span carries no location.
func (s Span) IsZero() bool {
	return s.Start.IsZero() && s.End.IsZero()
}

// Union returns the smallest span covering both s and o. Zero spans are ignored.
func (s Span) Union(o Span) Span {
	if s.IsZero() {
		return o
	}

	if o.IsZero() {
		return s
	}

	result := s
	if o.Start.Before(result.Start) {
		result.Start = o.Start
	}

	if result.End.Before(o.End) {
		result.End = o.End
	}

	return result
}

// Contains reports whether o lies completely inside s.
func (s Span) Contains(o Span) bool {
	return !o.Start.Before(s.Start) && !s.End.Before(o.End)
}

func (s Span) String() string {
	return s.Start.String() + "-" + strconv.Itoa(s.End.Line) + ":" + strconv.Itoa(s.End.Column)
}

// CodeSnippet is the raw text of a top-level form together with its bounds.
type CodeSnippet struct {
	Start Location
	End   Location
	Text  string
}
