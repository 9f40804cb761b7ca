package emitter

import (
	"strings"
	"unicode/utf8"

	"github.com/shibukawa/snaplisp/diagnostics"
	"github.com/shibukawa/snaplisp/sourcemap"
)

const indentUnit = "    "

// output accumulates generated text and tracks the 0-based position the next byte lands on.
type output struct {
	b           strings.Builder
	line        int
	column      int
	indent      int
	atLineStart bool
	source      string
	maps        *sourcemap.Builder
}

func newOutput(source string, maps *sourcemap.Builder) *output {
	return &output{atLineStart: true, source: source, maps: maps}
}

// write appends text that contains no newline.
func (o *output) write(parts ...string) {
	for _, s := range parts {
		if s == "" {
			continue
		}

		o.startLine()
		o.b.WriteString(s)
		o.column += utf8.RuneCountInString(s)
	}
}

func (o *output) startLine() {
	if !o.atLineStart {
		return
	}

	o.atLineStart = false

	for range o.indent {
		o.b.WriteString(indentUnit)
	}

	o.column += o.indent * len(indentUnit)
}

func (o *output) newline() {
	o.b.WriteByte('\n')
	o.line++
	o.column = 0
	o.atLineStart = true
}

// mark maps the current position to the start of span. Spans without a location are skipped.
func (o *output) mark(span diagnostics.Span, name string) {
	if o.maps == nil || span.IsZero() {
		return
	}

	o.startLine()

	source := span.Start.Source
	if source == "" {
		source = o.source
	}

	o.maps.AddMapping(sourcemap.Mapping{
		GeneratedLine:   o.line,
		GeneratedColumn: o.column,
		Source:          source,
		OriginalLine:    span.Start.Line - 1,
		OriginalColumn:  span.Start.Column - 1,
		Name:            name,
	})
}

func (o *output) String() string {
	return o.b.String()
}
