package emitter

import (
	"errors"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shibukawa/snaplisp/analyzer"
	"github.com/shibukawa/snaplisp/diagnostics"
	"github.com/shibukawa/snaplisp/form"
	"github.com/shibukawa/snaplisp/parser"
	"github.com/shibukawa/snaplisp/sourcemap"
)

func analyzeUnit(t *testing.T, src string) Unit {
	t.Helper()

	results, err := parser.ReadString(src, "main.lisp", 1)
	assert.NoError(t, err)

	a := analyzer.New(analyzer.NewRegistry(), &form.Gensym{})
	unit := Unit{Source: "main.lisp", SourceText: src}

	for _, r := range results {
		n, err := a.Analyze(r.Form, nil)
		assert.NoError(t, err)

		unit.Nodes = append(unit.Nodes, n)
	}

	unit.Namespace = a.Namespace()

	return unit
}

func emitStatements(t *testing.T, src string) string {
	t.Helper()

	result, err := New(WithMode(ModeStatement), WithSourceMaps(false)).Emit(analyzeUnit(t, src))
	assert.NoError(t, err)
	assert.Zero(t, result.SourceMap)

	return result.Code
}

func TestEmitStatements(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		expected string
	}{
		{
			name:     "def",
			src:      `(def x 1)`,
			expected: `\SnapLisp\Runtime::def("user", "x", 1);` + "\n",
		},
		{
			name: "fn",
			src:  `(def add (fn [a b] (php/+ a b)))`,
			expected: `\SnapLisp\Runtime::def("user", "add", function ($a, $b) {
    return ($a + $b);
});
`,
		},
		{
			name: "let in statement position",
			src:  `(let [x 1 y x] (php/strlen y))`,
			expected: `$x = 1;
$y = $x;
strlen($y);
`,
		},
		{
			name: "let in expression position",
			src:  `(def z (let [x 1] x))`,
			expected: `\SnapLisp\Runtime::def("user", "z", (function () {
    $x = 1;
    return $x;
})());
`,
		},
		{
			name: "captures",
			src:  `(let [a 1] (def f (fn [] a)))`,
			expected: `$a = 1;
\SnapLisp\Runtime::def("user", "f", function () use ($a) {
    return $a;
});
`,
		},
		{
			name: "if statement without else",
			src:  `(if true (php/print 1))`,
			expected: `if (\SnapLisp\Runtime::truthy(true)) {
    print(1);
}
`,
		},
		{
			name:     "if expression",
			src:      `(def v (if true 1 2))`,
			expected: `\SnapLisp\Runtime::def("user", "v", (\SnapLisp\Runtime::truthy(true) ? 1 : 2));` + "\n",
		},
		{
			name: "loop and recur",
			src:  `(def s (loop [i 0 acc 0] (if (php/< i 3) (recur (php/+ i 1) (php/+ acc i)) acc)))`,
			expected: `\SnapLisp\Runtime::def("user", "s", (function () {
    $i = 0;
    $acc = 0;
    while (true) {
        if (\SnapLisp\Runtime::truthy(($i < 3))) {
            [$i, $acc] = [($i + 1), ($acc + $i)];
            continue;
        } else {
            return $acc;
        }
    }
})());
`,
		},
		{
			name: "rest parameter",
			src:  `(def f (fn [a & more] more))`,
			expected: `\SnapLisp\Runtime::def("user", "f", function ($a, ...$more) {
    $more = \SnapLisp\Runtime::list(...$more);
    return $more;
});
`,
		},
		{
			name: "self named fn",
			src:  `(def fact (fn self [n] (self n)))`,
			expected: `\SnapLisp\Runtime::def("user", "fact", (function () {
    $self = function ($n) use (&$self) {
        return $self($n);
    };
    return $self;
})());
`,
		},
		{
			name:     "quoted data",
			src:      `(def q '(a :b 1))`,
			expected: `\SnapLisp\Runtime::def("user", "q", \SnapLisp\Runtime::list(\SnapLisp\Runtime::symbol("a"), \SnapLisp\Runtime::keyword("b"), 1));` + "\n",
		},
		{
			name:     "collections",
			src:      `(def m {:a [1 2.5 "s$"]})`,
			expected: `\SnapLisp\Runtime::def("user", "m", \SnapLisp\Runtime::map(\SnapLisp\Runtime::keyword("a"), \SnapLisp\Runtime::vector(1, 2.5, "s\$")));` + "\n",
		},
		{
			name: "global call",
			src:  "(def one 1)\n(def two (inc one))",
			expected: `\SnapLisp\Runtime::def("user", "one", 1);
\SnapLisp\Runtime::def("user", "two", \SnapLisp\Runtime::get("core", "inc")(\SnapLisp\Runtime::get("user", "one")));
`,
		},
		{
			name: "foreach",
			src:  `(foreach [k v (php/array 1 2)] (php/print v))`,
			expected: `foreach (array(1, 2) as $k => $v) {
    print($v);
}
`,
		},
		{
			name:     "throw",
			src:      `(throw (php/new \Exception "x"))`,
			expected: `throw new \Exception("x");` + "\n",
		},
		{
			name:     "ns",
			src:      `(ns app.core)`,
			expected: `\SnapLisp\Runtime::ns("app.core");` + "\n",
		},
		{
			name:     "macro definitions emit nothing",
			src:      `(defmacro twice [x] (list 'do x x))`,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, emitStatements(t, tt.src))
		})
	}
}

func TestEmitRuntimeClass(t *testing.T) {
	e := New(WithMode(ModeStatement), WithSourceMaps(false), WithRuntimeClass("Acme\\Rt"))

	result, err := e.Emit(analyzeUnit(t, `(def x nil)`))
	assert.NoError(t, err)
	assert.Equal(t, `\Acme\Rt::def("user", "x", null);`+"\n", result.Code)
}

func TestEmitFileHeader(t *testing.T) {
	e := New(WithSourceMaps(false), WithNamespacePrefix("Acme"))

	result, err := e.Emit(analyzeUnit(t, "(ns app.http-util)\n(def x 1)"))
	assert.NoError(t, err)
	assert.Equal(t, `<?php
// source: main.lisp

namespace Acme\App\HttpUtil;

\SnapLisp\Runtime::ns("app.http-util");
\SnapLisp\Runtime::def("app.http-util", "x", 1);
`, result.Code)
	assert.Equal(t, "", result.CacheKey)
}

func TestEmitCacheMode(t *testing.T) {
	e := New(WithMode(ModeCache), WithSourceMaps(false))

	result, err := e.Emit(analyzeUnit(t, `(def x 1)`))
	assert.NoError(t, err)
	assert.Equal(t, CacheKey("main.lisp", `(def x 1)`), result.CacheKey)
	assert.True(t, strings.HasPrefix(result.Code, "<?php\n// snaplisp cache "+result.CacheKey+"\n"))

	again, err := e.Emit(analyzeUnit(t, `(def x 1)`))
	assert.NoError(t, err)
	assert.Equal(t, result.CacheKey, again.CacheKey)

	other, err := e.Emit(analyzeUnit(t, `(def x 2)`))
	assert.NoError(t, err)
	assert.NotEqual(t, result.CacheKey, other.CacheKey)
}

func TestEmitSourceMap(t *testing.T) {
	src := "(def x 1)\n(def y\n  x)"

	result, err := New(WithGeneratedFile("main.php")).Emit(analyzeUnit(t, src))
	assert.NoError(t, err)

	m := result.SourceMap
	assert.NotZero(t, m)
	assert.Equal(t, "main.php", m.File)
	assert.Equal(t, []string{"main.lisp"}, m.Sources)
	assert.Equal(t, []string{src}, m.SourcesContent)

	// five header lines precede the code
	lines := strings.Split(result.Code, "\n")
	assert.Equal(t, `\SnapLisp\Runtime::def("user", "x", 1);`, lines[5])

	c, err := sourcemap.NewConsumer(m)
	assert.NoError(t, err)

	tests := []struct {
		name   string
		line   int
		column int
		pos    sourcemap.Position
	}{
		{name: "first def", line: 6, column: 1, pos: sourcemap.Position{Source: "main.lisp", Line: 1, Column: 1, Name: "x"}},
		{name: "literal", line: 6, column: 37, pos: sourcemap.Position{Source: "main.lisp", Line: 1, Column: 8}},
		{name: "second def", line: 7, column: 1, pos: sourcemap.Position{Source: "main.lisp", Line: 2, Column: 1, Name: "y"}},
		{name: "reference", line: 7, column: 37, pos: sourcemap.Position{Source: "main.lisp", Line: 3, Column: 3, Name: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, found := c.OriginalPositionFor(tt.line, tt.column)
			assert.True(t, found)
			assert.Equal(t, tt.pos, pos)
		})
	}
}

func TestEmitNode(t *testing.T) {
	unit := analyzeUnit(t, `(php/strlen "abc")`)

	code, err := New().EmitNode(unit.Nodes[0])
	assert.NoError(t, err)
	assert.Equal(t, "strlen(\"abc\");\n", code)
}

func TestEmitUnsupported(t *testing.T) {
	lit := analyzer.Literal{
		Meta:  analyzer.Meta{Environment: analyzer.NewEnvironment().WithContext(analyzer.ContextExpression)},
		Value: form.Sym("x"),
	}

	_, err := New().EmitNode(lit)
	assert.True(t, errors.Is(err, ErrUnsupportedNode))
	assert.True(t, errors.Is(err, diagnostics.ErrEmit))
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input    string
		expected Mode
		err      bool
	}{
		{input: "statement", expected: ModeStatement},
		{input: "FILE", expected: ModeFile},
		{input: "", expected: ModeFile},
		{input: "cache", expected: ModeCache},
		{input: "repl", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			mode, err := ParseMode(tt.input)
			if tt.err {
				assert.True(t, errors.Is(err, ErrUnknownMode))
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.expected, mode)
		})
	}
}
