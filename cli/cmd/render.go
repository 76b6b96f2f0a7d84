package cmd

import (
	"bufio"
	"context"
	"log/slog"

	"github.com/ardnew/stache/data"
	"github.com/ardnew/stache/filter"
	"github.com/ardnew/stache/log"
)

// Render renders a template against data files.
type Render struct {
	Template string   `arg:"" default:"-" help:"Template file or '-' for stdin." name:"template"`
	Data     []string `help:"Data file (YAML, JSON, or XML). Later files take precedence." short:"d" type:"existingfile"`
	Output   string   `default:"-" help:"Output file or '-' for stdout." short:"o" type:"path"`
	Filter   []string `help:"Bind an expr-lang filter." placeholder:"NAME=EXPR" short:"F"`
	Builtins bool     `default:"true" help:"Bind the standard filters." name:"builtin-filters" negatable:""`

	stdio `kong:"-"`
}

// Run executes the render command.
func (r *Render) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	opts, _, err := engineFrom(ctx).options()
	if err != nil {
		return err
	}

	tmpl, err := compileFile(ctx, r.Template, r.in(), opts)
	if err != nil {
		return err
	}

	scopes, err := r.scopes()
	if err != nil {
		return err
	}

	w, closeOutput, err := createOutput(r.Output, r.out())
	if err != nil {
		return err
	}

	defer func() {
		if cerr := closeOutput(); cerr != nil && err == nil {
			err = ErrWriteOutput.Wrap(cerr).With(slog.String("file", r.Output))
		}
	}()

	bw := bufio.NewWriter(w)

	if err := tmpl.Render(ctx, bw, scopes...); err != nil {
		return err
	}

	if err := bw.Flush(); err != nil {
		return ErrWriteOutput.Wrap(err).With(slog.String("file", r.Output))
	}

	log.DebugContext(ctx, "rendered template",
		slog.String("template", tmpl.Name()),
		slog.Int("data_files", len(r.Data)),
		slog.String("output", r.Output),
	)

	return nil
}

// scopes returns the filter bindings followed by each data file, in the
// order they are pushed onto the render context.
func (r *Render) scopes() ([]any, error) {
	return loadScopes(r.Builtins, r.Filter, r.Data)
}

func loadScopes(builtins bool, bindings, files []string) ([]any, error) {
	var filters map[string]any
	if builtins {
		filters = filter.Builtins()
	}

	filters, err := filter.Bind(filters, bindings...)
	if err != nil {
		return nil, err
	}

	values, err := data.LoadAll(files...)
	if err != nil {
		return nil, err
	}

	return append([]any{filters}, values...), nil
}
