package formatter

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/shibukawa/snaplisp/literate"
)

// MarkdownFormatter formats SnapLisp code blocks within Markdown files
type MarkdownFormatter struct {
	lispFormatter *LispFormatter
	blockStartRe  *regexp.Regexp
}

// NewMarkdownFormatter creates a new Markdown formatter for the given fence languages.
// Without languages the literate defaults are used.
func NewMarkdownFormatter(languages ...string) *MarkdownFormatter {
	if len(languages) == 0 {
		languages = literate.DefaultLanguages
	}

	quoted := make([]string, 0, len(languages))
	for _, lang := range languages {
		quoted = append(quoted, regexp.QuoteMeta(lang))
	}

	return &MarkdownFormatter{
		lispFormatter: NewLispFormatter(),
		blockStartRe:  regexp.MustCompile(`(?i)^(\s*)\x60{3}(?:` + strings.Join(quoted, "|") + `)\s*$`),
	}
}

var codeBlockEndRe = regexp.MustCompile(`^(\s*)\x60{3}\s*$`)

// Format formats SnapLisp code blocks within a Markdown file. Blocks that do not read are
// left as they are.
func (f *MarkdownFormatter) Format(markdown string) (string, error) {
	var result strings.Builder

	scanner := bufio.NewScanner(strings.NewReader(markdown))

	var (
		inBlock      bool
		blockContent strings.Builder
		blockIndent  string
	)

	for scanner.Scan() {
		line := scanner.Text()

		if !inBlock {
			if match := f.blockStartRe.FindStringSubmatch(line); match != nil {
				inBlock = true
				blockIndent = match[1]
				blockContent.Reset()
			}

			result.WriteString(line)
			result.WriteString("\n")

			continue
		}

		if codeBlockEndRe.MatchString(line) {
			inBlock = false

			f.writeBlock(&result, blockContent.String(), blockIndent)
			result.WriteString(line)
			result.WriteString("\n")

			continue
		}

		// Accumulate code with the fence indentation removed
		blockContent.WriteString(strings.TrimPrefix(line, blockIndent))
		blockContent.WriteString("\n")
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("error reading markdown: %w", err)
	}

	// An unclosed fence keeps its content untouched
	if inBlock {
		for line := range strings.Lines(blockContent.String()) {
			result.WriteString(blockIndent)
			result.WriteString(line)
		}
	}

	return strings.TrimRight(result.String(), "\n"), nil
}

func (f *MarkdownFormatter) writeBlock(result *strings.Builder, content, indent string) {
	if strings.TrimSpace(content) == "" {
		return
	}

	formatted, err := f.lispFormatter.Format(content)
	if err != nil {
		formatted = content
	}

	for line := range strings.SplitSeq(strings.TrimRight(formatted, "\n"), "\n") {
		if strings.TrimSpace(line) != "" {
			result.WriteString(indent)
			result.WriteString(line)
		}

		result.WriteString("\n")
	}
}

// FormatFromReader formats SnapLisp code blocks from a reader and writes to a writer
func (f *MarkdownFormatter) FormatFromReader(reader io.Reader, writer io.Writer) error {
	input, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	formatted, err := f.Format(string(input))
	if err != nil {
		return fmt.Errorf("failed to format markdown: %w", err)
	}

	_, err = writer.Write([]byte(formatted))

	return err
}

// IsMarkdownFile checks if a file is a Markdown file
func IsMarkdownFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".md" || ext == ".markdown"
}
