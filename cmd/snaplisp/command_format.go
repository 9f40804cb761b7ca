package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/shibukawa/snaplisp/formatter"
)

// FormatCmd represents the format command
type FormatCmd struct {
	Input string `arg:"" optional:"" help:"Input file or directory (default: stdin)"`
	Write bool   `short:"w" help:"Write result to input file instead of stdout"`
	Check bool   `short:"c" help:"Check if files are formatted (exit 1 if not)"`
	Diff  bool   `short:"d" help:"Show diff instead of rewriting files"`
}

// Run executes the format command
func (cmd *FormatCmd) Run(ctx *Context) error {
	config, err := ctx.loadConfig()
	if err != nil {
		return err
	}

	f := &formatRun{
		cmd:      cmd,
		ctx:      ctx,
		lisp:     formatter.NewLispFormatter(),
		markdown: formatter.NewMarkdownFormatter(config.Literate.Languages...),
	}

	if cmd.Input == "" || cmd.Input == "-" {
		input, name, err := readInput(ctx, cmd.Input)
		if err != nil {
			return err
		}

		return f.format(input, name, false)
	}

	if isDirectory(cmd.Input) {
		return f.formatDirectory(cmd.Input)
	}

	return f.formatFile(cmd.Input)
}

type formatRun struct {
	cmd      *FormatCmd
	ctx      *Context
	lisp     *formatter.LispFormatter
	markdown *formatter.MarkdownFormatter
}

// format formats one input and writes, checks or diffs the result
func (f *formatRun) format(input, filename string, inPlace bool) error {
	var (
		formatted string
		err       error
	)

	if formatter.IsMarkdownFile(filename) {
		formatted, err = f.markdown.Format(input)
		if err == nil && strings.HasSuffix(input, "\n") {
			formatted += "\n"
		}
	} else {
		formatted, err = f.lisp.Format(input)
	}

	if err != nil {
		return fmt.Errorf("failed to format %s: %w", filename, err)
	}

	switch {
	case f.cmd.Check:
		if input != formatted {
			fmt.Fprintf(os.Stderr, "%s is not formatted\n", filename)
			return ErrFileNotFormatted
		}

		return nil
	case f.cmd.Diff:
		return f.showDiff(input, formatted, filename)
	case inPlace:
		if input == formatted {
			return nil
		}

		return replaceFile(filename, formatted)
	default:
		_, err = fmt.Fprint(f.ctx.Stdout, formatted)
		return err
	}
}

// formatFile formats a single file
func (f *formatRun) formatFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	return f.format(string(data), filename, f.cmd.Write)
}

// formatDirectory formats all SnapLisp files in a directory recursively
func (f *formatRun) formatDirectory(dirPath string) error {
	var hasErrors bool

	err := filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || !isSourceFile(path) {
			return nil
		}

		err = f.formatFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting %s: %v\n", path, err)

			hasErrors = true

			return nil
		}

		if f.cmd.Write && !f.ctx.Quiet {
			color.Green("Formatted: %s", path)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk directory: %w", err)
	}

	if hasErrors {
		return ErrFormattingErrors
	}

	return nil
}

// replaceFile writes content next to filename and renames it over the original
func replaceFile(filename, content string) error {
	tempFile, err := os.CreateTemp(filepath.Dir(filename), ".snaplisp-format-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	_, err = tempFile.WriteString(content)
	if closeErr := tempFile.Close(); err == nil {
		err = closeErr
	}

	if err == nil {
		err = os.Rename(tempFile.Name(), filename)
	}

	if err != nil {
		os.Remove(tempFile.Name())
		return fmt.Errorf("failed to replace %s: %w", filename, err)
	}

	return nil
}

// showDiff shows the difference between original and formatted content
func (f *formatRun) showDiff(original, formatted, filename string) error {
	if original == formatted {
		return nil
	}

	w := f.ctx.Stdout

	fmt.Fprintf(w, "--- %s (original)\n", filename)
	fmt.Fprintf(w, "+++ %s (formatted)\n", filename)

	// Simple line-by-line diff
	originalLines := strings.Split(original, "\n")
	formattedLines := strings.Split(formatted, "\n")

	for i := range max(len(originalLines), len(formattedLines)) {
		var origLine, formLine string

		if i < len(originalLines) {
			origLine = originalLines[i]
		}

		if i < len(formattedLines) {
			formLine = formattedLines[i]
		}

		if origLine != formLine {
			fmt.Fprintf(w, "-%s\n", origLine)
			fmt.Fprintf(w, "+%s\n", formLine)
		}
	}

	return nil
}

// Help returns help text for the format command
func (cmd *FormatCmd) Help() string {
	return `Format SnapLisp sources and Markdown files with SnapLisp code blocks.

Line breaks are kept as written. Elements on one line are separated by a single space,
list bodies are indented two spaces past their opening paren, vector and map elements
line up one column past their bracket, and at most one blank line is kept.

Examples:
  # Format a single file and print to stdout
  snaplisp format src/app.lisp

  # Format all files in a directory in place
  snaplisp format -w ./src/

  # Check if files are properly formatted
  snaplisp format -c ./src/

  # Format from stdin
  cat app.lisp | snaplisp format`
}
