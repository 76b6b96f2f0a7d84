package cmd

import (
	"context"
	"fmt"
	"strings"
)

// Tree prints the canonical form of a compiled template.
type Tree struct {
	Template string `arg:"" default:"-" help:"Template file or '-' for stdin." name:"template"`
	Names    bool   `help:"List the data names and partials the template refers to instead." short:"n"`

	stdio `kong:"-"`
}

// Run executes the tree command.
func (t *Tree) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	opts, _, err := engineFrom(ctx).options()
	if err != nil {
		return err
	}

	tmpl, err := compileFile(ctx, t.Template, t.in(), opts)
	if err != nil {
		return err
	}

	if !t.Names {
		_, err = fmt.Fprint(t.out(), tmpl.String())

		return err
	}

	var b strings.Builder

	for _, name := range tmpl.Names() {
		fmt.Fprintf(&b, "name    %s\n", name)
	}

	for _, name := range tmpl.Partials() {
		fmt.Fprintf(&b, "partial %s\n", name)
	}

	_, err = fmt.Fprint(t.out(), b.String())

	return err
}
