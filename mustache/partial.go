package mustache

import (
	"context"
	"log/slog"
	"slices"
	"strings"
)

// PartialRepository resolves partial templates by name.
//
// Lookup reports false, with a nil error, when no template has the name.
type PartialRepository interface {
	Lookup(name string) (*Template, bool, error)
}

// PartialFunc adapts a function to a [PartialRepository].
type PartialFunc func(name string) (*Template, bool, error)

// Lookup calls f(name).
func (f PartialFunc) Lookup(name string) (*Template, bool, error) { return f(name) }

// Partials is an in-memory [PartialRepository].
type Partials map[string]*Template

// Lookup implements [PartialRepository].
func (p Partials) Lookup(name string) (*Template, bool, error) {
	t, ok := p[name]

	return t, ok, nil
}

// CompilePartials compiles each source under its name. The templates resolve
// partial and compose tags against the returned repository, so they may
// refer to each other.
func CompilePartials(
	ctx context.Context,
	sources map[string]string,
	opts ...Option,
) (Partials, error) {
	p := make(Partials, len(sources))

	for name, src := range sources {
		t, err := Compile(ctx, src, slices.Concat(opts, []Option{WithName(name), WithPartials(p)})...)
		if err != nil {
			return nil, err
		}

		p[name] = t
	}

	return p, nil
}

// partial renders a template from the repository in place of its tag.
type partial struct {
	repo   PartialRepository
	name   string
	indent string // whitespace before a standalone tag
	trail  string // text consumed after a standalone tag
	alone  bool
}

// resolve looks up name in repo. A missing repository or template is not
// an error.
func resolve(c *Context, repo PartialRepository, name string) (*Template, error) {
	if repo == nil {
		return nil, nil
	}

	t, ok, err := repo.Lookup(name)
	if err != nil {
		return nil, ErrPartial.Wrap(err).With(slog.String("partial", name))
	}

	if !ok || t == nil {
		c.cfg.logger.TraceContext(c.ctx, "partial miss", slog.String("partial", name))

		return nil, nil
	}

	return t, nil
}

func (p *partial) write(c *Context) error {
	t, err := resolve(c, p.repo, p.name)
	if t == nil || err != nil {
		return err
	}

	restore, err := c.descend()
	if err != nil {
		return err.(*Error).With(slog.String("partial", p.name))
	}
	defer restore()

	indent := c.indent

	if p.alone {
		c.indent += p.indent
		c.pending = true
	}

	err = t.root.write(c)
	c.indent = indent

	return err
}

func (p *partial) appendText(b *strings.Builder) {
	b.WriteString(p.indent)
	appendTag(b, ">", p.name)
	b.WriteString(p.trail)
}
