package main

import (
	"fmt"

	"github.com/shibukawa/snaplisp/compiler"
	"github.com/shibukawa/snaplisp/diagnostics"
)

// ExpandCmd represents the expand command
type ExpandCmd struct {
	Input string `arg:"" optional:"" help:"Source file (default: stdin)"`
	Expr  string `short:"e" help:"Expand this source text instead of reading a file"`
}

// Run executes the expand command
func (cmd *ExpandCmd) Run(ctx *Context) error {
	config, err := ctx.loadConfig()
	if err != nil {
		return err
	}

	input, name := cmd.Expr, "<expr>"
	if input == "" {
		input, name, err = readInput(ctx, cmd.Input)
		if err != nil {
			return err
		}
	}

	options, err := compiler.FromConfig(config)
	if err != nil {
		return err
	}

	c := compiler.New(append(options, compiler.WithLogger(ctx.Logger))...)

	forms, err := c.Expand(ctx, input, name, 1)
	if err != nil {
		return fmt.Errorf("%s", diagnostics.Render(err, input, 1))
	}

	for _, f := range forms {
		fmt.Fprintln(ctx.Stdout, f.String())
	}

	return nil
}
