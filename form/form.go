// Package form defines the language-level data read from source text.
//
// Forms are read-only values; every form remembers the span it was read from. Equality is
// structural and ignores spans.
package form

import (
	"math"
	"strconv"
	"strings"

	"github.com/shibukawa/snaplisp/diagnostics"
)

// Form is the closed set of readable values.
type Form interface {
	Span() diagnostics.Span
	String() string
	isForm()
}

type (
	// Int is an integer literal.
	Int struct {
		Value int64
		Loc   diagnostics.Span
	}

	// Float is a floating point literal.
	Float struct {
		Value float64
		Loc   diagnostics.Span
	}

	// String is a string literal with escapes already decoded.
	String struct {
		Value string
		Loc   diagnostics.Span
	}

	Bool struct {
		Value bool
		Loc   diagnostics.Span
	}

	Nil struct {
		Loc diagnostics.Span
	}

	// List is a parenthesized sequence.
	List struct {
		Items []Form
		Loc   diagnostics.Span
	}

	// Vector is a bracketed sequence.
	Vector struct {
		Items []Form
		Loc   diagnostics.Span
	}

	// Map is a braced sequence of alternating keys and values, in source order.
	Map struct {
		Items []Form
		Loc   diagnostics.Span
	}
)

func (Int) isForm()     {}
func (Float) isForm()   {}
func (String) isForm()  {}
func (Bool) isForm()    {}
func (Nil) isForm()     {}
func (List) isForm()    {}
func (Vector) isForm()  {}
func (Map) isForm()     {}
func (Symbol) isForm()  {}
func (Keyword) isForm() {}

func (f Int) Span() diagnostics.Span     { return f.Loc }
func (f Float) Span() diagnostics.Span   { return f.Loc }
func (f String) Span() diagnostics.Span  { return f.Loc }
func (f Bool) Span() diagnostics.Span    { return f.Loc }
func (f Nil) Span() diagnostics.Span     { return f.Loc }
func (f List) Span() diagnostics.Span    { return f.Loc }
func (f Vector) Span() diagnostics.Span  { return f.Loc }
func (f Map) Span() diagnostics.Span     { return f.Loc }
func (f Symbol) Span() diagnostics.Span  { return f.Loc }
func (f Keyword) Span() diagnostics.Span { return f.Loc }

func (f Int) String() string { return strconv.FormatInt(f.Value, 10) }

func (f Float) String() string { return FormatFloat(f.Value) }

func (f String) String() string { return QuoteString(f.Value) }

func (f Bool) String() string { return strconv.FormatBool(f.Value) }

func (f Nil) String() string { return "nil" }

func (f List) String() string { return joinForms("(", f.Items, ")") }

func (f Vector) String() string { return joinForms("[", f.Items, "]") }

func (f Map) String() string { return joinForms("{", f.Items, "}") }

// Pairs returns the key/value pairs of the map. A trailing key without value is dropped.
func (f Map) Pairs() [][2]Form {
	pairs := make([][2]Form, 0, len(f.Items)/2)
	for i := 0; i+1 < len(f.Items); i += 2 {
		pairs = append(pairs, [2]Form{f.Items[i], f.Items[i+1]})
	}

	return pairs
}

func joinForms(open string, items []Form, closer string) string {
	var b strings.Builder

	b.WriteString(open)

	for i, item := range items {
		if i > 0 {
			b.WriteByte(' ')
		}

		b.WriteString(item.String())
	}

	b.WriteString(closer)

	return b.String()
}

// FormatFloat prints a float so that it always reads back as a float.
func FormatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "##Inf"
	case math.IsInf(v, -1):
		return "##-Inf"
	case math.IsNaN(v):
		return "##NaN"
	}

	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}

	return s
}

// QuoteString prints a string the way the lexer reads it.
func QuoteString(s string) string {
	var b strings.Builder

	b.WriteByte('"')

	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}

	b.WriteByte('"')

	return b.String()
}

// Equal compares two forms structurally. Spans are ignored.
func Equal(a, b Form) bool {
	switch x := a.(type) {
	case Int:
		y, ok := b.(Int)
		return ok && x.Value == y.Value
	case Float:
		y, ok := b.(Float)
		return ok && x.Value == y.Value
	case String:
		y, ok := b.(String)
		return ok && x.Value == y.Value
	case Bool:
		y, ok := b.(Bool)
		return ok && x.Value == y.Value
	case Nil:
		_, ok := b.(Nil)
		return ok
	case Symbol:
		y, ok := b.(Symbol)
		return ok && x.Equal(y)
	case Keyword:
		y, ok := b.(Keyword)
		return ok && x.Equal(y)
	case List:
		y, ok := b.(List)
		return ok && equalItems(x.Items, y.Items)
	case Vector:
		y, ok := b.(Vector)
		return ok && equalItems(x.Items, y.Items)
	case Map:
		y, ok := b.(Map)
		return ok && equalItems(x.Items, y.Items)
	default:
		return false
	}
}

func equalItems(a, b []Form) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}

	return true
}

// Items returns the elements of a list or vector.
func Items(f Form) ([]Form, bool) {
	switch x := f.(type) {
	case List:
		return x.Items, true
	case Vector:
		return x.Items, true
	case Nil:
		return nil, true
	default:
		return nil, false
	}
}

// Truthy follows Lisp truthiness: only nil and false are false.
func Truthy(f Form) bool {
	switch x := f.(type) {
	case Nil:
		return false
	case Bool:
		return x.Value
	default:
		return true
	}
}

// TypeName names the kind of a form for messages.
func TypeName(f Form) string {
	switch f.(type) {
	case Int:
		return "integer"
	case Float:
		return "float"
	case String:
		return "string"
	case Bool:
		return "boolean"
	case Nil:
		return "nil"
	case Symbol:
		return "symbol"
	case Keyword:
		return "keyword"
	case List:
		return "list"
	case Vector:
		return "vector"
	case Map:
		return "map"
	default:
		return "unknown"
	}
}

// WithSpan returns f carrying span. Collections are rebuilt so that children without a span of
// their own also receive it.
func WithSpan(f Form, span diagnostics.Span) Form {
	switch x := f.(type) {
	case Int:
		x.Loc = span
		return x
	case Float:
		x.Loc = span
		return x
	case String:
		x.Loc = span
		return x
	case Bool:
		x.Loc = span
		return x
	case Nil:
		x.Loc = span
		return x
	case Symbol:
		x.Loc = span
		return x
	case Keyword:
		x.Loc = span
		return x
	case List:
		return List{Items: fillSpans(x.Items, span), Loc: span}
	case Vector:
		return Vector{Items: fillSpans(x.Items, span), Loc: span}
	case Map:
		return Map{Items: fillSpans(x.Items, span), Loc: span}
	default:
		return f
	}
}

// Respan returns f with span set on it and on every nested form.
func Respan(f Form, span diagnostics.Span) Form {
	switch x := f.(type) {
	case List:
		return List{Items: respanAll(x.Items, span), Loc: span}
	case Vector:
		return Vector{Items: respanAll(x.Items, span), Loc: span}
	case Map:
		return Map{Items: respanAll(x.Items, span), Loc: span}
	default:
		return WithSpan(f, span)
	}
}

func respanAll(items []Form, span diagnostics.Span) []Form {
	if items == nil {
		return nil
	}

	result := make([]Form, len(items))
	for i, item := range items {
		result[i] = Respan(item, span)
	}

	return result
}

// FillSpan gives span to f and to every nested form that was created without one.
// Forms that already carry a location keep it.
func FillSpan(f Form, span diagnostics.Span) Form {
	if !f.Span().IsZero() {
		switch x := f.(type) {
		case List:
			return List{Items: fillSpans(x.Items, span), Loc: x.Loc}
		case Vector:
			return Vector{Items: fillSpans(x.Items, span), Loc: x.Loc}
		case Map:
			return Map{Items: fillSpans(x.Items, span), Loc: x.Loc}
		default:
			return f
		}
	}

	return WithSpan(f, span)
}

func fillSpans(items []Form, span diagnostics.Span) []Form {
	if items == nil {
		return nil
	}

	result := make([]Form, len(items))
	for i, item := range items {
		result[i] = FillSpan(item, span)
	}

	return result
}
