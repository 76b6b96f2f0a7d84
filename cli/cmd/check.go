package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/ardnew/stache/loader"
	"github.com/ardnew/stache/log"
	"github.com/ardnew/stache/mustache"
)

// Check compiles templates and reports errors with their positions.
type Check struct {
	Templates []string `arg:"" help:"Template files to check." name:"template" type:"existingfile"`
	Resolve   bool     `default:"true" help:"Also load every partial a template refers to." negatable:""`

	stdio `kong:"-"`
}

// checkResult is the outcome of checking one template.
type checkResult struct {
	path string
	errs []error
}

// Run executes the check command.
func (c *Check) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	opts, repo, err := engineFrom(ctx).options()
	if err != nil {
		return err
	}

	results := make([]checkResult, len(c.Templates))

	var g errgroup.Group

	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, path := range c.Templates {
		g.Go(func() error {
			results[i] = c.check(ctx, path, repo, opts)

			return nil
		})
	}

	_ = g.Wait()

	failed := 0

	for _, r := range results {
		if len(r.errs) == 0 {
			fmt.Fprintf(c.out(), "%s: ok\n", r.path)

			continue
		}

		failed++

		for _, e := range r.errs {
			fmt.Fprintln(c.out(), e)
		}
	}

	log.DebugContext(ctx, "checked templates",
		slog.Int("total", len(results)),
		slog.Int("failed", failed),
	)

	if failed > 0 {
		return ErrCheckFailed.With(slog.Int("failed", failed))
	}

	return nil
}

func (c *Check) check(
	ctx context.Context,
	path string,
	repo *loader.Repository,
	opts []mustache.Option,
) checkResult {
	res := checkResult{path: path}

	src, err := os.ReadFile(path)
	if err != nil {
		res.errs = append(res.errs, fmt.Errorf("%s: %w", path, err))

		return res
	}

	tmpl, err := mustache.Compile(ctx, string(src),
		slices.Concat(opts, []mustache.Option{mustache.WithName(path)})...)
	if err != nil {
		res.errs = append(res.errs, err)

		return res
	}

	if !c.Resolve {
		return res
	}

	for _, name := range tmpl.Partials() {
		_, ok, err := repo.Load(ctx, name)

		switch {
		case err != nil:
			res.errs = append(res.errs, fmt.Errorf("%s: partial %q: %w", path, name, err))
		case !ok:
			res.errs = append(res.errs, fmt.Errorf("%s: partial %q not found", path, name))
		}
	}

	return res
}
