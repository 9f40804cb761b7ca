// Package emitter translates analyzed nodes into PHP source text and records a source map
// while doing so.
package emitter

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/google/uuid"
	"github.com/shibukawa/snaplisp/analyzer"
	"github.com/shibukawa/snaplisp/sourcemap"
)

// DefaultRuntimeClass is the PHP class that holds definitions at runtime.
const DefaultRuntimeClass = `\SnapLisp\Runtime`

// Mode selects how emitted statements are wrapped.
type Mode int

const (
	// ModeStatement emits bare statements, for evaluation by a REPL.
	ModeStatement Mode = iota
	// ModeFile emits a complete PHP file with an opening tag and a namespace declaration.
	ModeFile
	// ModeCache emits a file like ModeFile, guarded by a cache key derived from the source.
	ModeCache
)

func (m Mode) String() string {
	switch m {
	case ModeStatement:
		return "statement"
	case ModeFile:
		return "file"
	case ModeCache:
		return "cache"
	default:
		return "unknown"
	}
}

// ParseMode reads the config/CLI spelling of a mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "statement":
		return ModeStatement, nil
	case "", "file":
		return ModeFile, nil
	case "cache":
		return ModeCache, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Emitter generates PHP. One emitter can be reused; every Emit call starts a fresh source map.
type Emitter struct {
	mode            Mode
	runtimeClass    string
	namespacePrefix string
	sourceMaps      bool
	generatedFile   string
	logger          *slog.Logger
}

// Option configures an Emitter.
type Option func(*Emitter)

func WithMode(mode Mode) Option {
	return func(e *Emitter) {
		e.mode = mode
	}
}

// WithRuntimeClass sets the fully qualified PHP class used for runtime calls.
func WithRuntimeClass(class string) Option {
	return func(e *Emitter) {
		if class != "" {
			e.runtimeClass = `\` + strings.TrimPrefix(class, `\`)
		}
	}
}

// WithNamespacePrefix sets the PHP namespace that file mode namespaces are placed under.
func WithNamespacePrefix(prefix string) Option {
	return func(e *Emitter) {
		e.namespacePrefix = prefix
	}
}

// WithSourceMaps turns source map generation on or off.
func WithSourceMaps(enabled bool) Option {
	return func(e *Emitter) {
		e.sourceMaps = enabled
	}
}

// WithGeneratedFile sets the "file" field of generated source maps.
func WithGeneratedFile(name string) Option {
	return func(e *Emitter) {
		e.generatedFile = name
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Emitter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an emitter. The defaults are file mode with source maps.
func New(options ...Option) *Emitter {
	e := &Emitter{
		mode:         ModeFile,
		runtimeClass: DefaultRuntimeClass,
		sourceMaps:   true,
		logger:       slog.New(slog.DiscardHandler),
	}

	for _, opt := range options {
		opt(e)
	}

	return e
}

// Mode returns the configured mode.
func (e *Emitter) Mode() Mode {
	return e.mode
}

// Unit is one compiled source: its top-level nodes in order.
type Unit struct {
	Source     string
	SourceText string
	// Namespace is the namespace the unit ends in; file mode uses it for the PHP namespace.
	Namespace string
	Nodes     []analyzer.Node
}

// Result is the generated code and its source map. SourceMap is nil when maps are disabled.
type Result struct {
	Code      string
	SourceMap *sourcemap.SourceMap
	CacheKey  string
}

// Emit emits a whole unit, wrapped according to the mode.
func (e *Emitter) Emit(unit Unit) (*Result, error) {
	var maps *sourcemap.Builder
	if e.sourceMaps {
		maps = sourcemap.NewBuilder(e.generatedFile)
		if unit.SourceText != "" && unit.Source != "" {
			maps.SetSourceContent(unit.Source, unit.SourceText)
		}
	}

	result := &Result{}

	header, err := e.header(unit, result)
	if err != nil {
		return nil, err
	}

	out := newOutput(unit.Source, maps)
	out.line = strings.Count(header, "\n")

	w := &writer{emitter: e, out: out}
	for _, n := range unit.Nodes {
		if err := w.emit(n); err != nil {
			return nil, err
		}
	}

	result.Code = header + out.String()
	if maps != nil {
		result.SourceMap = maps.Build()
	}

	e.logger.Debug("emitted unit", "source", unit.Source, "mode", e.mode.String(), "bytes", len(result.Code), "nodes", len(unit.Nodes))

	return result, nil
}

// EmitNode emits a single node without any file wrapping.
func (e *Emitter) EmitNode(n analyzer.Node) (string, error) {
	out := newOutput("", nil)

	w := &writer{emitter: e, out: out}
	if err := w.emit(n); err != nil {
		return "", err
	}

	return out.String(), nil
}

type headerData struct {
	Namespace string
	Source    string
	CacheLine string
}

var headerTemplate = template.Must(template.New("php").Parse(`<?php
{{- if .CacheLine}}
{{.CacheLine}}
{{- end}}
{{- if .Source}}
// source: {{.Source}}
{{- end}}
{{- if .Namespace}}

namespace {{.Namespace}};
{{- end}}

`))

func (e *Emitter) header(unit Unit, result *Result) (string, error) {
	if e.mode == ModeStatement {
		return "", nil
	}

	data := headerData{
		Namespace: phpNamespace(e.namespacePrefix, unit.Namespace),
		Source:    unit.Source,
	}

	if e.mode == ModeCache {
		result.CacheKey = CacheKey(unit.Source, unit.SourceText)
		data.CacheLine = CacheKeyComment(result.CacheKey)
	}

	var buf bytes.Buffer
	if err := headerTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute header template: %w", err)
	}

	return buf.String(), nil
}

// CacheKeyComment is the header line carrying key in cache mode.
func CacheKeyComment(key string) string {
	return "// snaplisp cache " + key
}

// CacheKey derives a stable key from a source name and its text.
func CacheKey(source, text string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("snaplisp:"+source+"\x00"+text)).String()
}
