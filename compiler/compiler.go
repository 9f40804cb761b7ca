package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shibukawa/snaplisp"
	"github.com/shibukawa/snaplisp/analyzer"
	"github.com/shibukawa/snaplisp/diagnostics"
	"github.com/shibukawa/snaplisp/emitter"
	"github.com/shibukawa/snaplisp/form"
	"github.com/shibukawa/snaplisp/literate"
	"github.com/shibukawa/snaplisp/observability"
	"github.com/shibukawa/snaplisp/parser"
	"github.com/shibukawa/snaplisp/sourcemap"
)

// Input kinds used as metric labels
const (
	InputLisp     = "lisp"
	InputMarkdown = "markdown"
)

// Compiler compiles source units into PHP. A compiler is not safe for concurrent use; create
// one per goroutine and share the Session instead.
type Compiler struct {
	session       *Session
	maxMacroDepth int
	namespace     string
	languages     []string
	emitOptions   []emitter.Option
	logger        *slog.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithSession compiles into an existing session.
func WithSession(session *Session) Option {
	return func(c *Compiler) {
		c.session = session
	}
}

func WithMaxMacroDepth(depth int) Option {
	return func(c *Compiler) {
		c.maxMacroDepth = depth
	}
}

// WithDefaultNamespace sets the namespace every unit starts in.
func WithDefaultNamespace(ns string) Option {
	return func(c *Compiler) {
		c.namespace = ns
	}
}

// WithLanguages sets the fenced code info strings compiled from Markdown.
func WithLanguages(languages ...string) Option {
	return func(c *Compiler) {
		c.languages = languages
	}
}

// WithEmitterOptions passes options to the emitter.
func WithEmitterOptions(options ...emitter.Option) Option {
	return func(c *Compiler) {
		c.emitOptions = append(c.emitOptions, options...)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// FromConfig translates the project configuration into compiler options.
func FromConfig(config *snaplisp.Config) ([]Option, error) {
	mode, err := emitter.ParseMode(config.Emit.Mode)
	if err != nil {
		return nil, err
	}

	return []Option{
		WithSession(NewSession(WithStrictMacroConflicts(config.Analyzer.StrictMacroConflicts))),
		WithMaxMacroDepth(config.Analyzer.MaxMacroDepth),
		WithDefaultNamespace(config.Analyzer.DefaultNamespace),
		WithLanguages(config.Literate.Languages...),
		WithEmitterOptions(
			emitter.WithMode(mode),
			emitter.WithSourceMaps(config.Emit.SourceMapsEnabled()),
			emitter.WithRuntimeClass(config.Emit.RuntimeClass),
			emitter.WithNamespacePrefix(config.Emit.PHPNamespacePrefix),
		),
	}, nil
}

// New creates a compiler. Without WithSession it gets a session of its own.
func New(options ...Option) *Compiler {
	c := &Compiler{
		maxMacroDepth: analyzer.DefaultMaxMacroDepth,
		namespace:     analyzer.DefaultNamespace,
		languages:     literate.DefaultLanguages,
		logger:        slog.New(slog.DiscardHandler),
	}

	for _, opt := range options {
		opt(c)
	}

	if c.session == nil {
		c.session = NewSession()
	}

	return c
}

// Session returns the session the compiler registers definitions in.
func (c *Compiler) Session() *Session {
	return c.session
}

// Output is a compiled unit.
type Output struct {
	Code      string
	SourceMap *sourcemap.SourceMap
	CacheKey  string
	// Namespace is the namespace the unit ended in.
	Namespace string
	Forms     int
}

// CompileString compiles Lisp source text. startLine is the line number of the first line of
// input in the file it came from.
func (c *Compiler) CompileString(ctx context.Context, input, source string, startLine int) (*Output, error) {
	blocks := []literate.Block{{Code: input, StartLine: startLine}}
	return c.compile(ctx, InputLisp, source, input, blocks)
}

// CompileMarkdown compiles the fenced code blocks of a Markdown document as one unit.
// Locations refer to lines of the Markdown document.
func (c *Compiler) CompileMarkdown(ctx context.Context, markdown []byte, source string) (*Output, error) {
	blocks := literate.Extract(markdown, c.languages)
	return c.compile(ctx, InputMarkdown, source, string(markdown), blocks)
}

// CompileFile reads and compiles a file. Files ending in .md are compiled as Markdown.
func (c *Compiler) CompileFile(ctx context.Context, path string) (*Output, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if IsMarkdown(path) {
		return c.CompileMarkdown(ctx, data, path)
	}

	return c.CompileString(ctx, string(data), path, 1)
}

// IsMarkdown reports whether path names a Markdown source.
func IsMarkdown(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".markdown"
}

func (c *Compiler) newAnalyzer() *analyzer.Analyzer {
	return analyzer.New(c.session.Registry(), c.session.Gensym(),
		analyzer.WithMaxMacroDepth(c.maxMacroDepth),
		analyzer.WithNamespace(c.namespace),
		analyzer.WithLogger(c.logger),
		analyzer.WithExpansionHook(func(macro string) {
			ns, _, _ := strings.Cut(macro, "/")
			observability.MacroExpansionsTotal.WithLabelValues(ns).Inc()
		}),
	)
}

func (c *Compiler) compile(ctx context.Context, input, source, text string, blocks []literate.Block) (*Output, error) {
	a := c.newAnalyzer()
	unit := emitter.Unit{Source: source, SourceText: text}

	for _, block := range blocks {
		start := time.Now()
		results, err := parser.ReadString(block.Code, source, block.StartLine)
		observability.StageDuration.WithLabelValues(observability.StageRead).Observe(time.Since(start).Seconds())

		if err != nil {
			return nil, c.fail(source, err)
		}

		c.logger.Debug("forms read", "source", source, "line", block.StartLine, "forms", len(results))

		start = time.Now()

		for _, r := range results {
			if err := ctx.Err(); err != nil {
				return nil, c.fail(source, err)
			}

			n, err := a.Analyze(r.Form, nil)
			if err != nil {
				if located, ok := diagnostics.AsError(err); ok && located.Snippet == nil {
					located.WithSnippet(r.Snippet)
				}

				return nil, c.fail(source, err)
			}

			unit.Nodes = append(unit.Nodes, n)
		}

		observability.StageDuration.WithLabelValues(observability.StageAnalyze).Observe(time.Since(start).Seconds())
	}

	unit.Namespace = a.Namespace()

	options := append([]emitter.Option{emitter.WithLogger(c.logger)}, c.emitOptions...)
	if source != "" {
		options = append(options, emitter.WithGeneratedFile(GeneratedFile(source)))
	}

	start := time.Now()
	result, err := emitter.New(options...).Emit(unit)
	observability.StageDuration.WithLabelValues(observability.StageEmit).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, c.fail(source, err)
	}

	observability.UnitsCompiledTotal.WithLabelValues(input).Inc()
	observability.FormsCompiledTotal.Add(float64(len(unit.Nodes)))

	c.logger.Debug("unit compiled", "source", source, "namespace", unit.Namespace, "forms", len(unit.Nodes))

	return &Output{
		Code:      result.Code,
		SourceMap: result.SourceMap,
		CacheKey:  result.CacheKey,
		Namespace: unit.Namespace,
		Forms:     len(unit.Nodes),
	}, nil
}

func (c *Compiler) fail(source string, err error) error {
	kind := "other"

	switch located, ok := diagnostics.AsError(err); {
	case ok:
		kind = located.Kind.String()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kind = "canceled"
	}

	observability.CompileErrorsTotal.WithLabelValues(kind).Inc()
	c.logger.Debug("compile failed", "source", source, "kind", kind, "error", err)

	return err
}

// GeneratedFile maps a source path to the PHP file it compiles to.
func GeneratedFile(source string) string {
	ext := filepath.Ext(source)
	return strings.TrimSuffix(source, ext) + ".php"
}

// Expand reads input and returns every top-level form with its head macro fully expanded.
// Definitions are registered as they are met, so later forms can use earlier macros.
func (c *Compiler) Expand(ctx context.Context, input, source string, startLine int) ([]form.Form, error) {
	results, err := parser.ReadString(input, source, startLine)
	if err != nil {
		return nil, err
	}

	a := c.newAnalyzer()
	expanded := make([]form.Form, 0, len(results))

	for _, r := range results {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		f, err := a.MacroExpand(r.Form, nil)
		if err != nil {
			return nil, err
		}

		if definesSomething(a, f) {
			if _, err := a.Analyze(f, nil); err != nil {
				return nil, err
			}
		}

		expanded = append(expanded, f)
	}

	return expanded, nil
}

// definesSomething reports whether f registers a definition, looking through top-level do.
// An item that fails to expand counts as a definition so that Analyze reports the error.
func definesSomething(a *analyzer.Analyzer, f form.Form) bool {
	list, ok := f.(form.List)
	if !ok || len(list.Items) == 0 {
		return false
	}

	switch head := list.Items[0]; {
	case form.IsSymbol(head, "def"), form.IsSymbol(head, "defmacro"), form.IsSymbol(head, "ns"):
		return true
	case form.IsSymbol(head, "do"):
		for _, item := range list.Items[1:] {
			expanded, err := a.MacroExpand(item, nil)
			if err != nil || definesSomething(a, expanded) {
				return true
			}
		}
	}

	return false
}
