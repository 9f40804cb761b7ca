package main

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"github.com/shibukawa/snaplisp"
	"github.com/shibukawa/snaplisp/compiler"
	"github.com/shibukawa/snaplisp/diagnostics"
	"github.com/shibukawa/snaplisp/emitter"
)

// CompileCmd represents the compile command
type CompileCmd struct {
	Input       string `arg:"" optional:"" help:"Input file or directory (default: input_dir from config)"`
	Output      string `short:"o" help:"Output directory (default: output_dir from config)"`
	Mode        string `help:"Emit mode: statement, file or cache (default: emit.mode from config)"`
	Watch       bool   `short:"w" help:"Watch for file changes and recompile automatically"`
	Print       bool   `short:"p" help:"Print generated PHP to stdout instead of writing files"`
	MetricsAddr string `name:"metrics-addr" placeholder:"HOST:PORT" help:"Serve Prometheus metrics on /metrics while watching"`
}

// Run executes the compile command
func (cmd *CompileCmd) Run(ctx *Context) error {
	if cmd.MetricsAddr != "" && !cmd.Watch {
		return ErrMetricsWithoutWatch
	}

	config, err := ctx.loadConfig()
	if err != nil {
		return err
	}

	options, err := compiler.FromConfig(config)
	if err != nil {
		return err
	}

	if cmd.Mode != "" {
		mode, err := emitter.ParseMode(cmd.Mode)
		if err != nil {
			return err
		}

		options = append(options, compiler.WithEmitterOptions(emitter.WithMode(mode)))
	}

	options = append(options, compiler.WithLogger(ctx.Logger))

	b := &build{
		ctx:      ctx,
		config:   config,
		compiler: compiler.New(options...),
		input:    cmd.Input,
		output:   cmd.Output,
		print:    cmd.Print,
	}

	if b.input == "" {
		b.input = config.InputDir
	}

	if b.output == "" {
		b.output = config.OutputDir
	}

	files, err := b.sources()
	if err != nil {
		return err
	}

	if ctx.Verbose {
		color.Blue("Compiling %d file(s) from %s", len(files), b.input)
	}

	failed := b.compileAll(files)

	if cmd.Watch {
		if cmd.MetricsAddr != "" {
			server, err := startMetricsServer(cmd.MetricsAddr, ctx.Logger)
			if err != nil {
				return err
			}

			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()

				if err := server.Stop(shutdownCtx); err != nil {
					ctx.Logger.Warn("metrics server shutdown failed", "error", err)
				}
			}()

			if !ctx.Quiet {
				color.Blue("Serving metrics on http://%s/metrics", server.Addr())
			}
		}

		if !ctx.Quiet {
			color.Blue("Watching %s for changes", b.input)
		}

		w := &watcher{
			root:     b.watchRoot(),
			debounce: defaultDebounce,
			accept:   b.accepts,
			onChange: func(paths []string) { b.compileAll(paths) },
			logger:   ctx.Logger,
		}

		return w.Run(ctx)
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrCompileFailed, failed, len(files))
	}

	return nil
}

// build compiles a set of files through one compiler, so later files see the
// namespaces and macros of earlier ones.
type build struct {
	ctx      *Context
	config   *snaplisp.Config
	compiler *compiler.Compiler
	input    string
	output   string
	print    bool
}

// sources lists the files to compile in lexical order
func (b *build) sources() ([]string, error) {
	if !isDirectory(b.input) {
		if _, err := os.Stat(b.input); err != nil {
			return nil, fmt.Errorf("failed to stat input: %w", err)
		}

		return []string{b.input}, nil
	}

	var files []string

	err := filepath.WalkDir(b.input, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() && b.accepts(path) {
			files = append(files, path)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", b.input, err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSourceFiles, b.input)
	}

	return files, nil
}

// accepts reports whether a changed or discovered path belongs to this build
func (b *build) accepts(path string) bool {
	if !isDirectory(b.input) {
		return filepath.Clean(path) == filepath.Clean(b.input)
	}

	if !isSourceFile(path) {
		return false
	}

	rel, err := filepath.Rel(b.input, path)
	if err != nil {
		return false
	}

	return !b.config.IsExcluded(rel)
}

func (b *build) watchRoot() string {
	if isDirectory(b.input) {
		return b.input
	}

	return filepath.Dir(b.input)
}

// outputPath maps a source file to the PHP file written for it
func (b *build) outputPath(src string) string {
	rel := filepath.Base(src)

	if isDirectory(b.input) {
		if r, err := filepath.Rel(b.input, src); err == nil {
			rel = r
		}
	}

	return filepath.Join(b.output, compiler.GeneratedFile(rel))
}

// compileAll compiles files in order and returns how many failed
func (b *build) compileAll(files []string) int {
	failed := 0

	for _, file := range files {
		if err := b.compileFile(file); err != nil {
			failed++
		}
	}

	return failed
}

func (b *build) compileFile(src string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		color.Red("Failed to read %s: %v", src, err)
		return err
	}

	var out *compiler.Output

	if compiler.IsMarkdown(src) {
		out, err = b.compiler.CompileMarkdown(b.ctx, data, src)
	} else {
		out, err = b.compiler.CompileString(b.ctx, string(data), src, 1)
	}

	if err != nil {
		color.Red("%s", diagnostics.Render(err, string(data), 1))
		return err
	}

	if b.print {
		_, err = fmt.Fprint(b.ctx.Stdout, out.Code)
		return err
	}

	dst := b.outputPath(src)

	if unchanged(dst, out.CacheKey) {
		if b.ctx.Verbose {
			color.Cyan("  %s is up to date", dst)
		}

		return nil
	}

	if err := writeFile(dst, []byte(out.Code)); err != nil {
		color.Red("Failed to write %s: %v", dst, err)
		return err
	}

	if out.SourceMap != nil {
		data, err := out.SourceMap.Marshal()
		if err == nil {
			err = writeFile(dst+".map", data)
		}

		if err != nil {
			color.Red("Failed to write %s.map: %v", dst, err)
			return err
		}
	}

	if !b.ctx.Quiet {
		color.Green("✓ %s → %s", src, dst)
	}

	return nil
}

// unchanged reports whether dst already holds the cache-mode output for key
func unchanged(dst, key string) bool {
	if key == "" {
		return false
	}

	existing, err := os.ReadFile(dst)
	if err != nil {
		return false
	}

	return bytes.Contains(existing, []byte(emitter.CacheKeyComment(key)))
}
