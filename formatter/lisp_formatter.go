// Package formatter re-indents SnapLisp source and the SnapLisp blocks of Markdown documents.
package formatter

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shibukawa/snaplisp/parser"
	"github.com/shibukawa/snaplisp/tokenizer"
)

// LispFormatter formats SnapLisp source. It keeps the author's line breaks, collapses runs
// of blank lines to one, puts single spaces between elements on a line and re-indents
// continuation lines: list bodies two spaces past the opening paren, vector and map
// elements aligned one column past the opening bracket.
type LispFormatter struct {
	// BodyIndent is the indent of list continuation lines relative to the opening paren.
	BodyIndent int
	// MaxBlankLines is the longest run of blank lines kept.
	MaxBlankLines int
}

// NewLispFormatter creates a formatter with the default layout.
func NewLispFormatter() *LispFormatter {
	return &LispFormatter{
		BodyIndent:    2,
		MaxBlankLines: 1,
	}
}

// Format formats a whole source unit. Unreadable input is returned as an error and never
// partially formatted.
func (f *LispFormatter) Format(src string) (string, error) {
	tokens, err := tokenizer.Tokenize(src, "", 1)
	if err != nil {
		return "", fmt.Errorf("failed to tokenize: %w", err)
	}

	nodes, err := parser.ParseFile(tokens)
	if err != nil {
		return "", fmt.Errorf("failed to parse: %w", err)
	}

	p := &printer{formatter: f}
	p.sequence(nodes, 0, true)

	result := strings.TrimRight(p.out.String(), " \n")
	if result == "" {
		return "", nil
	}

	return result + "\n", nil
}

type printer struct {
	formatter *LispFormatter
	out       strings.Builder
	col       int
}

func (p *printer) write(s string) {
	p.out.WriteString(s)

	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		p.col = utf8.RuneCountInString(s[i+1:])
	} else {
		p.col += utf8.RuneCountInString(s)
	}
}

// lineBreak writes count newlines, capped by the blank line limit, then the indent.
func (p *printer) lineBreak(count, indent int) {
	count = min(count, p.formatter.MaxBlankLines+1)
	p.write(strings.Repeat("\n", count) + strings.Repeat(" ", indent))
}

// sequence writes the children of a collection (or the top level) with continuation lines
// at indent. It reports whether the last thing written was a line comment.
func (p *printer) sequence(nodes []parser.Node, indent int, top bool) bool {
	first := true
	breaks := 0
	lineComment := false

	separate := func() {
		switch {
		case first && (top || breaks == 0):
		case breaks > 0:
			p.lineBreak(breaks, indent)
		default:
			p.write(" ")
		}

		first = false
		breaks = 0
	}

	for _, n := range nodes {
		switch node := n.(type) {
		case parser.Trivia:
			if node.Token.Type == tokenizer.WHITESPACE {
				breaks += strings.Count(node.Token.Value, "\n")
				continue
			}

			separate()
			p.write(strings.TrimRight(node.Token.Value, " \t\r"))
			lineComment = !strings.HasPrefix(node.Token.Value, "#|")
		default:
			separate()
			p.node(n)

			lineComment = false
		}
	}

	return lineComment
}

func (p *printer) node(n parser.Node) {
	switch node := n.(type) {
	case parser.Leaf:
		p.write(node.Token.Value)
	case parser.Inner:
		if node.Delim.IsQuote() {
			p.write(node.Open.Value)
			p.quoted(node.Children)

			return
		}

		indent := p.col + 1
		if node.Delim == parser.DelimList {
			indent = p.col + p.formatter.BodyIndent
		}

		p.write(node.Open.Value)

		if p.sequence(node.Children, indent, false) {
			p.lineBreak(1, indent)
		}

		p.write(node.Close.Value)
	}
}

// quoted writes the target of a quote-family prefix directly after the marker.
func (p *printer) quoted(children []parser.Node) {
	indent := p.col

	for _, child := range children {
		trivia, ok := child.(parser.Trivia)
		if !ok {
			p.node(child)
			continue
		}

		if trivia.Token.Type == tokenizer.COMMENT {
			p.write(strings.TrimRight(trivia.Token.Value, " \t\r"))
			p.lineBreak(1, indent)
		}
	}
}
