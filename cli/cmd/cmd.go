package cmd

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/stache/loader"
	"github.com/ardnew/stache/log"
	"github.com/ardnew/stache/mustache"
)

// ContextKey is used to store a [kong.Context] value in [context.Context].
type contextKey struct{}

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

// kongVar returns the kong variable named key, or "" outside a kong run.
func kongVar(ctx context.Context, key string) string {
	ktx := kongContextFrom(ctx)
	if ktx == nil {
		return ""
	}

	return ktx.Model.Vars()[key]
}

// Engine holds the template settings shared by every command.
type Engine struct {
	Partials []string // partial search directories
	Exts     []string // partial file extensions
	Pragmas  []string // pragma names, possibly comma-separated
	Delims   string   // initial delimiters, as "OPEN CLOSE"
	MaxDepth int
	NoEscape bool
}

type engineKey struct{}

// WithEngine returns a new context.Context carrying e.
func WithEngine(ctx context.Context, e Engine) context.Context {
	return context.WithValue(ctx, engineKey{}, e)
}

func engineFrom(ctx context.Context) Engine {
	e, _ := ctx.Value(engineKey{}).(Engine)

	return e
}

// options returns the compile options selected by e, together with the
// partial repository they refer to. Extra options configure the repository.
func (e Engine) options(
	extra ...loader.Option,
) ([]mustache.Option, *loader.Repository, error) {
	opts := []mustache.Option{
		mustache.WithMaxDepth(e.MaxDepth),
		mustache.WithLogger(log.Default()),
	}

	for _, list := range e.Pragmas {
		for name := range strings.SplitSeq(list, ",") {
			if strings.TrimSpace(name) == "" {
				continue
			}

			p, ok := mustache.ParsePragma(name)
			if !ok {
				return nil, nil, ErrPragma.With(slog.String("pragma", name))
			}

			opts = append(opts, mustache.WithPragmas(p))
		}
	}

	if e.Delims != "" {
		f := strings.Fields(e.Delims)
		if len(f) != 2 || strings.Contains(e.Delims, "=") {
			return nil, nil, ErrDelims.With(slog.String("delims", e.Delims))
		}

		opts = append(opts, mustache.WithDelimiters(f[0], f[1]))
	}

	if e.NoEscape {
		opts = append(opts, mustache.WithEscaper(func(s string) string { return s }))
	}

	repo := loader.New(append([]loader.Option{
		loader.WithDirs(e.Partials...),
		loader.WithExtensions(e.Exts...),
		loader.WithCompileOptions(opts...),
		loader.WithLogger(log.Default()),
	}, extra...)...)

	return append(opts, mustache.WithPartials(repo)), repo, nil
}

// stdinSource is the special source indicator for reading from stdin.
const stdinSource = "-"

// compileFile compiles the template file at path, or stdin for "-".
// The file path names the template in compile errors.
func compileFile(
	ctx context.Context,
	path string,
	stdin io.Reader,
	opts []mustache.Option,
) (*mustache.Template, error) {
	name, r := "stdin", stdin

	if path != stdinSource {
		f, err := os.Open(path)
		if err != nil {
			return nil, ErrReadTemplate.Wrap(err).With(slog.String("file", path))
		}
		defer f.Close()

		name, r = path, f
	}

	return mustache.CompileReader(
		ctx,
		bufio.NewReader(r),
		slices.Concat(opts, []mustache.Option{mustache.WithName(name)})...,
	)
}

// createOutput opens path for writing, or returns stdout for "-".
func createOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == stdinSource {
		return stdout, func() error { return nil }, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, ErrWriteOutput.Wrap(err).With(slog.String("file", path))
	}

	return f, f.Close, nil
}

// stdio holds the standard streams of a command, replaceable in tests.
type stdio struct {
	stdin  io.Reader
	stdout io.Writer
}

func (s stdio) in() io.Reader {
	if s.stdin == nil {
		return os.Stdin
	}

	return s.stdin
}

func (s stdio) out() io.Writer {
	if s.stdout == nil {
		return os.Stdout
	}

	return s.stdout
}
