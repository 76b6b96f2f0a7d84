package cmd

import (
	"context"

	"github.com/ardnew/stache/cli/cmd/repl"
	"github.com/ardnew/stache/loader"
	"github.com/ardnew/stache/log"
)

// Repl starts the interactive template playground.
type Repl struct {
	Data     []string `help:"Data file (YAML, JSON, or XML) loaded at start." short:"d" type:"existingfile"`
	Filter   []string `help:"Bind an expr-lang filter." placeholder:"NAME=EXPR" short:"F"`
	Builtins bool     `default:"true" help:"Bind the standard filters." name:"builtin-filters" negatable:""`
}

// Run executes the repl command.
func (r *Repl) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	changes := make(chan string, 16)

	opts, repo, err := engineFrom(ctx).options(
		loader.WithOnChange(func(name string) {
			select {
			case changes <- name:
			default:
			}
		}),
	)
	if err != nil {
		return err
	}

	scopes, err := loadScopes(r.Builtins, r.Filter, r.Data)
	if err != nil {
		return err
	}

	filters, _ := scopes[0].(map[string]any)

	return repl.Run(ctx, repl.Config{
		Options:  opts,
		Filters:  filters,
		Data:     scopes[1:],
		Partials: repo,
		Changes:  changes,
		CacheDir: kongVar(ctx, CacheIdentifier),
		Logger:   log.Default(),
	})
}
