package mustache

import (
	"log/slog"
	"strings"
)

// define is a named, overridable block.
//
// The first define of a name to render registers its text; every later
// define of that name, nested or not, emits the registered text instead of
// its own body. A child template therefore overrides its parent, because the
// child's blocks render before the parent is expanded.
type define struct {
	name string
	body composite
}

func (d *define) write(c *Context) error {
	text, ok := c.state.blocks[d.name]
	if !ok {
		out, err := c.transient(d.body.write)
		if err != nil {
			return err
		}

		if text, ok = c.state.blocks[d.name]; !ok {
			text = out
			c.state.blocks[d.name] = text
		}
	}

	return c.writeText(text)
}

func (d *define) appendText(b *strings.Builder) {
	appendTag(b, "$", d.name)
	d.body.appendText(b)
	appendTag(b, "/", d.name)
}

// compose expands the named parent template after rendering its own body,
// which only registers block overrides and writes nothing.
type compose struct {
	repo PartialRepository
	name string
	body composite
}

func (k *compose) write(c *Context) error {
	if _, err := c.transient(k.body.write); err != nil {
		return err
	}

	t, err := resolve(c, k.repo, k.name)
	if t == nil || err != nil {
		return err
	}

	restore, err := c.descendCompose()
	if err != nil {
		return err.(*Error).With(slog.String("parent", k.name))
	}
	defer restore()

	return t.root.write(c)
}

func (k *compose) appendText(b *strings.Builder) {
	appendTag(b, "<", k.name)
	k.body.appendText(b)
	appendTag(b, "/", k.name)
}
