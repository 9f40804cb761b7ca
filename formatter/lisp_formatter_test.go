package formatter

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/shibukawa/snaplisp/diagnostics"
	"github.com/shibukawa/snaplisp/testhelper"
)

func TestLispFormatter_Format(t *testing.T) {
	formatter := NewLispFormatter()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "collapses spaces and indents body",
			input:    "(defn  add [a   b]\n(+ a b))",
			expected: "(defn add [a b]\n  (+ a b))\n",
		},
		{
			name:     "aligns vector elements",
			input:    "(let [x 1\ny 2]\n   x)",
			expected: "(let [x 1\n      y 2]\n  x)\n",
		},
		{
			name:     "aligns map entries",
			input:    "{:a 1\n:b 2}",
			expected: "{:a 1\n :b 2}\n",
		},
		{
			name:     "nested indentation follows the opener column",
			input:    "(def f\n(fn [x]\n(when x\n(php/print x))))",
			expected: "(def f\n  (fn [x]\n    (when x\n      (php/print x))))\n",
		},
		{
			name:     "keeps comments and one blank line",
			input:    "; header\n\n\n\n(def x 1)   ; trailing\n(def y\n      ; note\n  2)\n",
			expected: "; header\n\n(def x 1) ; trailing\n(def y\n  ; note\n  2)\n",
		},
		{
			name:     "line comment before closer",
			input:    "(foo a ; c\n)",
			expected: "(foo a ; c\n  )\n",
		},
		{
			name:     "block comment stays inline",
			input:    "(a #| b |#   c)",
			expected: "(a #| b |# c)\n",
		},
		{
			name:     "quote marker hugs its target",
			input:    "'  (a  b)\n`(x ,  y ,@ zs)",
			expected: "'(a b)\n`(x ,y ,@zs)\n",
		},
		{
			name:     "strings are kept verbatim",
			input:    "(php/print \"a  b\n   c\")",
			expected: "(php/print \"a  b\n   c\")\n",
		},
		{
			name:     "drops leading and trailing blank lines",
			input:    "\n\n  (a)\n\n\n",
			expected: "(a)\n",
		},
		{
			name:     "empty input",
			input:    "  \n",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := formatter.Format(tt.input)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestLispFormatter_Definition(t *testing.T) {
	input := testhelper.TrimIndent(t, `
		(defn area [w h]
		(* w
		h))

		(def unit-square
		(area 1 1))
	`)

	expected := testhelper.TrimIndent(t, `
		(defn area [w h]
		  (* w
		    h))

		(def unit-square
		  (area 1 1))
	`)

	result, err := NewLispFormatter().Format(input)
	assert.NoError(t, err)
	assert.Equal(t, expected, result)
}

func TestLispFormatter_Idempotent(t *testing.T) {
	formatter := NewLispFormatter()
	input := "(ns app (:require lib))\n\n(defn  f [x]\n ; doc\n(let [y (inc x)\nz 2]\n{:y y\n:z z}))"

	once, err := formatter.Format(input)
	assert.NoError(t, err)

	twice, err := formatter.Format(once)
	assert.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestLispFormatter_Errors(t *testing.T) {
	formatter := NewLispFormatter()

	_, err := formatter.Format("(a b")
	assert.True(t, errors.Is(err, diagnostics.ErrUnfinishedParse))

	_, err = formatter.Format("a)")
	assert.True(t, errors.Is(err, diagnostics.ErrUnexpectedToken))

	_, err = formatter.Format("\"open")
	assert.True(t, errors.Is(err, diagnostics.ErrLex))
}
