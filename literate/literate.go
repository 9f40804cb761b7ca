// Package literate pulls compilable code out of Markdown documents.
package literate

import (
	"bytes"
	"slices"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// DefaultLanguages are the fenced code info strings compiled when none are configured.
var DefaultLanguages = []string{"snaplisp", "lisp"}

// Block is one fenced code block.
type Block struct {
	Language string
	Code     string
	// StartLine is the 1-based line of the Markdown document the code starts on.
	StartLine int
	// Start and Stop are the byte offsets of the code inside the document.
	Start int
	Stop  int
}

// Extract returns the fenced code blocks whose language is one of languages, in document order.
// Empty blocks are skipped.
func Extract(markdown []byte, languages []string) []Block {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(markdown))

	var blocks []Block

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		codeBlock, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		lang := strings.ToLower(string(codeBlock.Language(markdown)))
		if !slices.Contains(languages, lang) {
			return ast.WalkSkipChildren, nil
		}

		lines := codeBlock.Lines()
		if lines.Len() == 0 {
			return ast.WalkSkipChildren, nil
		}

		var code strings.Builder
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			code.Write(line.Value(markdown))
		}

		first := lines.At(0)
		blocks = append(blocks, Block{
			Language:  lang,
			Code:      code.String(),
			StartLine: LineOf(markdown, first.Start),
			Start:     first.Start,
			Stop:      lines.At(lines.Len() - 1).Stop,
		})

		return ast.WalkSkipChildren, nil
	})

	return blocks
}

// LineOf returns the 1-based line containing the byte offset.
func LineOf(content []byte, offset int) int {
	offset = min(offset, len(content))
	return bytes.Count(content[:offset], []byte("\n")) + 1
}
