package parser

import (
	"errors"
	"io"
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shibukawa/snaplisp/diagnostics"
	"github.com/shibukawa/snaplisp/form"
	"github.com/shibukawa/snaplisp/tokenizer"
)

func readOne(t *testing.T, input string) *ReadResult {
	t.Helper()

	r, err := NewStringReader(input, "test.lisp", 1)
	assert.NoError(t, err)

	result, err := r.ReadNext()
	assert.NoError(t, err)

	return result
}

func TestReadForms(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected form.Form
	}{
		{
			name:     "symbol",
			input:    "foo",
			expected: form.Sym("foo"),
		},
		{
			name:  "call",
			input: "(+ 1 2.5)",
			expected: form.List{Items: []form.Form{
				form.Sym("+"), form.Int{Value: 1}, form.Float{Value: 2.5},
			}},
		},
		{
			name:  "vector and map",
			input: "[:a {\"k\" nil true false}]",
			expected: form.Vector{Items: []form.Form{
				form.Keyword{Name: "a"},
				form.Map{Items: []form.Form{form.String{Value: "k"}, form.Nil{}, form.Bool{Value: true}, form.Bool{Value: false}}},
			}},
		},
		{
			name:  "quote family",
			input: "'(a `b ,c ,@d)",
			expected: form.List{Items: []form.Form{
				form.Sym("quote"),
				form.List{Items: []form.Form{
					form.Sym("a"),
					form.List{Items: []form.Form{form.Sym("quasiquote"), form.Sym("b")}},
					form.List{Items: []form.Form{form.Sym("unquote"), form.Sym("c")}},
					form.List{Items: []form.Form{form.Sym("unquote-splicing"), form.Sym("d")}},
				}},
			}},
		},
		{
			name:  "comments inside forms",
			input: "(a ; one\n #| two |# b)",
			expected: form.List{Items: []form.Form{
				form.Sym("a"), form.Sym("b"),
			}},
		},
		{
			name:     "qualified symbol",
			input:    "php/strlen",
			expected: form.QualifiedSym("php", "strlen"),
		},
		{
			name:     "escaped string",
			input:    `"a\"b\n\u{41}\$"`,
			expected: form.String{Value: "a\"b\nA$"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := readOne(t, test.input)
			assert.True(t, form.Equal(test.expected, result.Form), "got %s", result.Form)
		})
	}
}

func TestReadNextOneFormPerCall(t *testing.T) {
	input := "; header\n(def a 1)\n\n(def b 2) ; tail\n"
	r, err := NewStringReader(input, "test.lisp", 1)
	assert.NoError(t, err)

	first, err := r.ReadNext()
	assert.NoError(t, err)
	assert.Equal(t, "(def a 1)", first.Snippet.Text)
	assert.Equal(t, 2, first.Snippet.Start.Line)
	assert.Equal(t, 2, len(first.Leading))

	second, err := r.ReadNext()
	assert.NoError(t, err)
	assert.Equal(t, "(def b 2)", second.Snippet.Text)
	assert.Equal(t, 4, second.Form.Span().Start.Line)

	_, err = r.ReadNext()
	assert.Equal(t, io.EOF, err)
}

func TestSpanStaysInsideSnippet(t *testing.T) {
	results, err := ReadString("(defn f [x]\n  (let [y 'x]\n    y))\n[1 2]", "test.lisp", 3)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(results))

	for _, result := range results {
		snippet := diagnostics.NewSpan(result.Snippet.Start, result.Snippet.End)
		assert.True(t, snippet.Contains(result.Form.Span()))

		if items, ok := form.Items(result.Form); ok {
			for _, item := range items {
				assert.True(t, snippet.Contains(item.Span()))
			}
		}
	}

	assert.Equal(t, 3, results[0].Form.Span().Start.Line)
	assert.Equal(t, 5, results[0].Form.Span().End.Line)
}

func TestNumbersLowering(t *testing.T) {
	tests := []struct {
		input    string
		expected form.Form
	}{
		{"42", form.Int{Value: 42}},
		{"-7", form.Int{Value: -7}},
		{"1_000", form.Int{Value: 1000}},
		{"0x1F", form.Int{Value: 31}},
		{"-0b101", form.Int{Value: -5}},
		{"0o17", form.Int{Value: 15}},
		{"3.25", form.Float{Value: 3.25}},
		{"1e3", form.Float{Value: 1000}},
		{"-2.5E-1", form.Float{Value: -0.25}},
		{"9223372036854775807", form.Int{Value: math.MaxInt64}},
		{"-9223372036854775808", form.Int{Value: math.MinInt64}},
		{"9223372036854775808", form.Float{Value: 9223372036854775808}},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			result := readOne(t, test.input)
			assert.True(t, form.Equal(test.expected, result.Form), "got %s (%s)", result.Form, form.TypeName(result.Form))
		})
	}
}

func TestReaderErrors(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		sentinel    error
		kind        diagnostics.Kind
		line        int
		column      int
		snippetText string
	}{
		{
			name:        "unclosed list names the open delimiter",
			input:       "(a b",
			sentinel:    diagnostics.ErrUnfinishedParse,
			kind:        diagnostics.KindUnfinishedParse,
			line:        1,
			column:      1,
			snippetText: "(a b",
		},
		{
			name:        "nested unclosed vector",
			input:       "(ok)\n(f [1 2)",
			sentinel:    diagnostics.ErrUnexpectedToken,
			kind:        diagnostics.KindUnexpectedToken,
			line:        2,
			column:      8,
			snippetText: "(f [1 2)",
		},
		{
			name:        "stray close",
			input:       ")",
			sentinel:    diagnostics.ErrUnexpectedToken,
			kind:        diagnostics.KindUnexpectedToken,
			line:        1,
			column:      1,
			snippetText: ")",
		},
		{
			name:        "quote at end of input",
			input:       "'",
			sentinel:    diagnostics.ErrNotValidQuote,
			kind:        diagnostics.KindNotValidQuote,
			line:        1,
			column:      1,
			snippetText: "'",
		},
		{
			name:        "unquote before close",
			input:       "(a ,)",
			sentinel:    diagnostics.ErrNotValidQuote,
			kind:        diagnostics.KindNotValidQuote,
			line:        1,
			column:      4,
			snippetText: "(a ,",
		},
		{
			name:        "odd map",
			input:       "{:a}",
			sentinel:    ErrOddMap,
			kind:        diagnostics.KindParse,
			line:        1,
			column:      1,
			snippetText: "{:a}",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ReadString(test.input, "test.lisp", 1)
			assert.Error(t, err)
			assert.True(t, errors.Is(err, test.sentinel))
			assert.True(t, errors.Is(err, diagnostics.ErrParse))

			located, ok := diagnostics.AsError(err)
			assert.True(t, ok)
			assert.Equal(t, test.kind, located.Kind)
			assert.Equal(t, test.line, located.Span.Start.Line)
			assert.Equal(t, test.column, located.Span.Start.Column)
			assert.NotZero(t, located.Snippet)
			assert.Equal(t, test.snippetText, located.Snippet.Text)
		})
	}
}

func TestLexErrorPassesThrough(t *testing.T) {
	_, err := ReadString(`(print "oops`, "test.lisp", 1)
	assert.True(t, errors.Is(err, diagnostics.ErrLex))
	assert.True(t, errors.Is(err, tokenizer.ErrUnterminatedString))
}

func TestParseFileKeepsEveryToken(t *testing.T) {
	input := ";; top\n(ns app)\n\n(defn f [x] ; inline\n  `(a ,x))\n"

	tokens, err := tokenizer.Tokenize(input, "test.lisp", 1)
	assert.NoError(t, err)

	nodes, err := ParseFile(tokens)
	assert.NoError(t, err)

	var rebuilt []tokenizer.Token
	for _, node := range nodes {
		rebuilt = append(rebuilt, Tokens(node)...)
	}

	assert.Equal(t, input, tokenizer.Concat(rebuilt))

	inner := 0
	for _, node := range nodes {
		if _, ok := node.(Inner); ok {
			inner++
		}
	}

	assert.Equal(t, 2, inner)
}

func TestUnquoteString(t *testing.T) {
	value, err := UnquoteString(`"tab\there\0end\e"`)
	assert.NoError(t, err)
	assert.Equal(t, "tab\there\x00end\x1b", value)

	_, err = UnquoteString(`"bad\u{zz}"`)
	assert.True(t, errors.Is(err, ErrInvalidString))
}
