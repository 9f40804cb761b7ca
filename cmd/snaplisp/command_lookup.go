package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/shibukawa/snaplisp/sourcemap"
)

// LookupCmd represents the lookup command
type LookupCmd struct {
	Map    string `arg:"" help:"Source map file (.php.map) or generated PHP file"`
	Line   int    `arg:"" help:"1-based line in the generated PHP"`
	Column int    `arg:"" optional:"" default:"1" help:"1-based column in the generated PHP"`
}

// Run executes the lookup command
func (cmd *LookupCmd) Run(ctx *Context) error {
	path := cmd.Map
	if !strings.HasSuffix(path, ".map") {
		path += ".map"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read source map: %w", err)
	}

	consumer, err := sourcemap.ParseConsumer(data)
	if err != nil {
		return fmt.Errorf("failed to parse source map %s: %w", path, err)
	}

	pos, ok := consumer.OriginalPositionFor(cmd.Line, cmd.Column)
	if !ok {
		return fmt.Errorf("%w %d:%d in %s", ErrNoMapping, cmd.Line, cmd.Column, path)
	}

	if pos.Name != "" {
		_, err = fmt.Fprintf(ctx.Stdout, "%s:%d:%d %s\n", pos.Source, pos.Line, pos.Column, pos.Name)
	} else {
		_, err = fmt.Fprintf(ctx.Stdout, "%s:%d:%d\n", pos.Source, pos.Line, pos.Column)
	}

	return err
}
