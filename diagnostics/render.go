package diagnostics

import (
	"fmt"
	"strings"
)

// Render formats err with a caret-annotated excerpt of source. firstLine is the line number of
// the first line of source (units embedded in a larger file start later than 1). When source is
// empty the error's own snippet is used. Errors that are not located are returned as text.
func Render(err error, source string, firstLine int) string {
	located, ok := AsError(err)
	if !ok {
		return err.Error()
	}

	return located.Pretty(source, firstLine)
}

// Pretty renders the error with up to one line of context on either side.
func (e *Error) Pretty(source string, firstLine int) string {
	if source == "" && e.Snippet != nil {
		// the snippet's first line begins mid-line; pad it so columns stay aligned
		source = strings.Repeat(" ", max(e.Snippet.Start.Column-1, 0)) + e.Snippet.Text
		firstLine = e.Snippet.Start.Line
	}

	if firstLine < 1 {
		firstLine = 1
	}

	var b strings.Builder

	start := e.Span.Start
	if start.Source != "" {
		fmt.Fprintf(&b, "%s in %s at %d:%d: %s\n", e.Kind.Stage(), start.Source, start.Line, start.Column, e.message())
	} else {
		fmt.Fprintf(&b, "%s at %d:%d: %s\n", e.Kind.Stage(), start.Line, start.Column, e.message())
	}

	if source == "" {
		return b.String()
	}

	lines := strings.Split(source, "\n")
	idx := start.Line - firstLine
	if idx < 0 {
		idx = 0
	}

	if idx >= len(lines) {
		idx = len(lines) - 1
	}

	col := max(start.Column, 1)

	b.WriteString("\n")

	if idx > 0 {
		fmt.Fprintf(&b, "%4d | %s\n", firstLine+idx-1, lines[idx-1])
	}

	fmt.Fprintf(&b, "%4d | %s\n", firstLine+idx, lines[idx])
	fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", col-1))

	if idx+1 < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", firstLine+idx+1, lines[idx+1])
	}

	return b.String()
}

func (e *Error) message() string {
	switch {
	case e.Cause == nil:
		return e.Message
	case e.Message == "":
		return e.Cause.Error()
	default:
		return e.Message + ": " + e.Cause.Error()
	}
}
