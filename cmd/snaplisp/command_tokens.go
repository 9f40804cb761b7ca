package main

import (
	"fmt"

	"github.com/goccy/go-yaml"

	"github.com/shibukawa/snaplisp/diagnostics"
	"github.com/shibukawa/snaplisp/tokenizer"
)

// TokensCmd represents the tokens command
type TokensCmd struct {
	Input  string `arg:"" optional:"" help:"Source file (default: stdin)"`
	YAML   bool   `help:"Print tokens as YAML"`
	Trivia bool   `help:"Include whitespace and comments"`
}

type tokenRecord struct {
	Type  string `yaml:"type"`
	Value string `yaml:"value"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Run executes the tokens command
func (cmd *TokensCmd) Run(ctx *Context) error {
	input, name, err := readInput(ctx, cmd.Input)
	if err != nil {
		return err
	}

	options := tokenizer.TokenizerOptions{
		SkipWhitespace: !cmd.Trivia,
		SkipComments:   !cmd.Trivia,
	}

	var records []tokenRecord

	for token, err := range tokenizer.NewTokenizer(input, name, 1, options).Tokens() {
		if err != nil {
			return fmt.Errorf("%s", diagnostics.Render(err, input, 1))
		}

		if token.Type == tokenizer.EOF {
			break
		}

		records = append(records, tokenRecord{
			Type:  token.Type.String(),
			Value: token.Value,
			Start: position(token.Start),
			End:   position(token.End),
		})
	}

	if cmd.YAML {
		data, err := yaml.Marshal(records)
		if err != nil {
			return fmt.Errorf("failed to marshal tokens: %w", err)
		}

		_, err = ctx.Stdout.Write(data)

		return err
	}

	for _, r := range records {
		fmt.Fprintf(ctx.Stdout, "%-7s %-17s %q\n", r.Start, r.Type, r.Value)
	}

	return nil
}

func position(l diagnostics.Location) string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}
