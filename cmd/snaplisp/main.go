package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/shibukawa/snaplisp"
)

const version = "v0.1.0"

// Context represents the global context for commands
type Context struct {
	context.Context

	Config  string
	Verbose bool
	Quiet   bool
	Logger  *slog.Logger
	Stdout  io.Writer
	Stdin   io.Reader
}

// CLI represents the command-line interface
var CLI struct {
	Config  string     `help:"Configuration file path" default:"snaplisp.yaml"`
	Verbose bool       `help:"Enable verbose output" short:"v"`
	Quiet   bool       `help:"Suppress output" short:"q"`
	Compile CompileCmd `cmd:"" help:"Compile SnapLisp sources to PHP"`
	Format  FormatCmd  `cmd:"" help:"Format SnapLisp sources and Markdown code blocks"`
	Tokens  TokensCmd  `cmd:"" help:"Dump the tokens of a source file"`
	Expand  ExpandCmd  `cmd:"" help:"Print top-level forms after macro expansion"`
	Lookup  LookupCmd  `cmd:"" help:"Map a generated PHP position back to its source"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

// VersionCmd represents the version command
type VersionCmd struct{}

// Run executes the version command
func (cmd *VersionCmd) Run(ctx *Context) error {
	_, err := fmt.Fprintf(ctx.Stdout, "SnapLisp %s\n", version)
	return err
}

func newLogger(verbose, quiet bool) *slog.Logger {
	level := slog.LevelInfo

	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig loads the configuration named by the global --config flag
func (ctx *Context) loadConfig() (*snaplisp.Config, error) {
	config, err := snaplisp.LoadConfig(ctx.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return config, nil
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("snaplisp"),
		kong.Description("Compile a Lisp dialect to PHP with source maps."),
		kong.UsageOnError(),
	)

	logger := newLogger(CLI.Verbose, CLI.Quiet)
	slog.SetDefault(logger)

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCtx := &Context{
		Context: signalCtx,
		Config:  CLI.Config,
		Verbose: CLI.Verbose,
		Quiet:   CLI.Quiet,
		Logger:  logger,
		Stdout:  os.Stdout,
		Stdin:   os.Stdin,
	}

	err := kctx.Run(appCtx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
