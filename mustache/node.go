package mustache

import (
	"strings"
)

// Node is an immutable unit of a compiled template that renders itself into
// a [Context].
type Node interface {
	write(c *Context) error

	// appendText appends the canonical template text of the node.
	appendText(b *strings.Builder)
}

// literal is verbatim template text.
type literal string

func (l literal) write(c *Context) error { return c.writeText(string(l)) }

// literalDelims are tried in order when literal text contains the default
// open delimiter and must be re-serialized under different ones.
var literalDelims = [][2]string{
	{"<%", "%>"},
	{"[[", "]]"},
	{"<?", "?>"},
	{"((", "))"},
}

func (l literal) appendText(b *strings.Builder) {
	text := string(l)
	if !strings.Contains(text, DefaultOpen) {
		b.WriteString(text)

		return
	}

	for _, d := range literalDelims {
		if strings.Contains(text, d[0]) {
			continue
		}

		b.WriteString(DefaultOpen + "=" + d[0] + " " + d[1] + "=" + DefaultClose)
		b.WriteString(text)
		b.WriteString(d[0] + "=" + DefaultOpen + " " + DefaultClose + "=" + d[1])

		return
	}

	b.WriteString(text)
}

// composite renders its children in order.
type composite []Node

func (n composite) write(c *Context) error {
	for _, child := range n {
		if err := child.write(c); err != nil {
			return err
		}
	}

	return nil
}

func (n composite) appendText(b *strings.Builder) {
	for _, child := range n {
		child.appendText(b)
	}
}

// walk calls fn for n and every node below it, parents first.
func walk(n Node, fn func(Node)) {
	fn(n)

	switch n := n.(type) {
	case composite:
		for _, child := range n {
			walk(child, fn)
		}
	case *section:
		walk(n.body, fn)
	case *define:
		walk(n.body, fn)
	case *compose:
		walk(n.body, fn)
	}
}

func appendTag(b *strings.Builder, sigil, name string) {
	b.WriteString(DefaultOpen)
	b.WriteString(sigil)
	b.WriteString(name)
	b.WriteString(DefaultClose)
}
