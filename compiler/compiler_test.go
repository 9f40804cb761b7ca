package compiler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/shibukawa/snaplisp"
	"github.com/shibukawa/snaplisp/analyzer"
	"github.com/shibukawa/snaplisp/diagnostics"
	"github.com/shibukawa/snaplisp/emitter"
	"github.com/shibukawa/snaplisp/observability"
	"github.com/shibukawa/snaplisp/sourcemap"
)

func statementCompiler(options ...Option) *Compiler {
	options = append(options, WithEmitterOptions(emitter.WithMode(emitter.ModeStatement), emitter.WithSourceMaps(false)))
	return New(options...)
}

func TestCompileString(t *testing.T) {
	c := statementCompiler()

	out, err := c.CompileString(context.Background(), "(def x 1)", "main.lisp", 1)
	assert.NoError(t, err)
	assert.Equal(t, `\SnapLisp\Runtime::def("user", "x", 1);`+"\n", out.Code)
	assert.Equal(t, "user", out.Namespace)
	assert.Equal(t, 1, out.Forms)
	assert.Zero(t, out.SourceMap)
}

func TestCompileSharesSession(t *testing.T) {
	session := NewSession()
	c := statementCompiler(WithSession(session))
	ctx := context.Background()

	_, err := c.CompileString(ctx, "(ns lib)\n(defmacro twice [x] (list 'do x x))\n(def v 1)", "lib.lisp", 1)
	assert.NoError(t, err)

	app := "(ns app (:require lib))\n(lib/twice (php/print lib/v))"

	out, err := c.CompileString(ctx, app, "app.lisp", 1)
	assert.NoError(t, err)
	assert.Equal(t, "app", out.Namespace)
	assert.Equal(t, 2, strings.Count(out.Code, `print(\SnapLisp\Runtime::get("lib", "v"));`))

	session.Reset()

	_, err = c.CompileString(ctx, app, "app.lisp", 1)
	assert.True(t, errors.Is(err, diagnostics.ErrAnalyzer))
	assert.False(t, session.Registry().HasNamespace("lib"))
}

func TestCompileGensymDeterministicAfterReset(t *testing.T) {
	c := statementCompiler()
	ctx := context.Background()
	src := "(defmacro m [] `(let [t$ 1] t$))\n(def a (m))"

	first, err := c.CompileString(ctx, src, "main.lisp", 1)
	assert.NoError(t, err)

	second, err := c.CompileString(ctx, src, "main.lisp", 1)
	assert.NoError(t, err)
	assert.NotEqual(t, first.Code, second.Code)

	c.Session().Reset()

	third, err := c.CompileString(ctx, src, "main.lisp", 1)
	assert.NoError(t, err)
	assert.Equal(t, first.Code, third.Code)
}

func TestCompileErrors(t *testing.T) {
	c := statementCompiler()
	ctx := context.Background()

	before := testutil.ToFloat64(observability.CompileErrorsTotal.WithLabelValues("UnfinishedParseError"))

	_, err := c.CompileString(ctx, "(a b", "main.lisp", 1)
	assert.True(t, errors.Is(err, diagnostics.ErrUnfinishedParse))
	assert.Equal(t, before+1, testutil.ToFloat64(observability.CompileErrorsTotal.WithLabelValues("UnfinishedParseError")))

	_, err = c.CompileString(ctx, ")", "main.lisp", 1)
	assert.True(t, errors.Is(err, diagnostics.ErrUnexpectedToken))

	_, err = c.CompileString(ctx, "(def y 2)\n(+ 1 missing)", "main.lisp", 1)
	assert.True(t, errors.Is(err, analyzer.ErrUnresolvedSymbol))

	located, ok := diagnostics.AsError(err)
	require.True(t, ok)
	require.NotNil(t, located.Snippet)
	assert.Equal(t, "(+ 1 missing)", located.Snippet.Text)
	assert.Equal(t, 2, located.Span.Start.Line)
}

func TestCompileCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := statementCompiler().CompileString(ctx, "(def x 1)", "main.lisp", 1)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCompileCountsForms(t *testing.T) {
	before := testutil.ToFloat64(observability.FormsCompiledTotal)

	_, err := statementCompiler().CompileString(context.Background(), "(def a 1)\n(def b 2)\n(def c 3)", "main.lisp", 1)
	assert.NoError(t, err)
	assert.Equal(t, before+3, testutil.ToFloat64(observability.FormsCompiledTotal))
}

const markdownSource = "# Demo\n" +
	"\n" +
	"```snaplisp\n" +
	"(def x 1)\n" +
	"```\n" +
	"\n" +
	"Text.\n" +
	"\n" +
	"```lisp\n" +
	"(php/print\n" +
	"  x)\n" +
	"```\n"

func TestCompileMarkdown(t *testing.T) {
	out, err := New().CompileMarkdown(context.Background(), []byte(markdownSource), "doc.md")
	assert.NoError(t, err)
	assert.Equal(t, 2, out.Forms)

	m := out.SourceMap
	require.NotNil(t, m)
	assert.Equal(t, "doc.php", m.File)
	assert.Equal(t, []string{markdownSource}, m.SourcesContent)

	mappings, err := sourcemap.DecodeMappings(m.Mappings, m.Sources, m.Names)
	assert.NoError(t, err)

	found := false

	for _, mapping := range mappings {
		if mapping.Name == "x" && mapping.OriginalLine == 10 && mapping.OriginalColumn == 2 {
			found = true
		}
	}

	assert.True(t, found, "no mapping for x at doc.md:11:3 in %v", mappings)
}

func TestCompileMarkdownErrorLocation(t *testing.T) {
	doc := strings.Replace(markdownSource, "  x)", "  missing)", 1)

	_, err := New().CompileMarkdown(context.Background(), []byte(doc), "doc.md")
	assert.True(t, errors.Is(err, analyzer.ErrUnresolvedSymbol))

	located, ok := diagnostics.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "doc.md", located.Span.Start.Source)
	assert.Equal(t, 11, located.Span.Start.Line)
	assert.Equal(t, 3, located.Span.Start.Column)
}

func TestCompileFile(t *testing.T) {
	dir := t.TempDir()
	lispPath := filepath.Join(dir, "main.lisp")
	mdPath := filepath.Join(dir, "doc.md")

	require.NoError(t, os.WriteFile(lispPath, []byte("(def x 1)"), 0o644))
	require.NoError(t, os.WriteFile(mdPath, []byte(markdownSource), 0o644))

	c := statementCompiler()

	out, err := c.CompileFile(context.Background(), lispPath)
	assert.NoError(t, err)
	assert.Equal(t, 1, out.Forms)

	out, err = c.CompileFile(context.Background(), mdPath)
	assert.NoError(t, err)
	assert.Equal(t, 2, out.Forms)

	_, err = c.CompileFile(context.Background(), filepath.Join(dir, "missing.lisp"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestFromConfig(t *testing.T) {
	config, err := snaplisp.ParseConfig([]byte("emit:\n  mode: statement\n  source_maps: false\nanalyzer:\n  default_namespace: app\n"))
	require.NoError(t, err)

	options, err := FromConfig(config)
	require.NoError(t, err)

	out, err := New(options...).CompileString(context.Background(), "(def x 1)", "main.lisp", 1)
	assert.NoError(t, err)
	assert.Equal(t, `\SnapLisp\Runtime::def("app", "x", 1);`+"\n", out.Code)
	assert.Zero(t, out.SourceMap)
}

func TestExpand(t *testing.T) {
	src := "(defmacro twice [x] (list 'do x x))\n(twice (when y 1))\n(when y 1)"

	forms, err := New().Expand(context.Background(), src, "main.lisp", 1)
	assert.NoError(t, err)
	assert.Equal(t, 3, len(forms))
	assert.Equal(t, "(do (when y 1) (when y 1))", forms[1].String())
	assert.Equal(t, "(if y (do 1) nil)", forms[2].String())
}

func TestExpandRegistersDefinitionsInsideDo(t *testing.T) {
	src := "(do (def a 1) (defmacro seven [] 7))\n(seven)"

	forms, err := New().Expand(context.Background(), src, "main.lisp", 1)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(forms))
	assert.Equal(t, "7", forms[1].String())
}

func TestGeneratedFile(t *testing.T) {
	assert.Equal(t, "src/a.php", GeneratedFile("src/a.lisp"))
	assert.Equal(t, "doc.php", GeneratedFile("doc.md"))
	assert.True(t, IsMarkdown("README.MD"))
	assert.False(t, IsMarkdown("main.lisp"))
}
