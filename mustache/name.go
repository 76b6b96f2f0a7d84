package mustache

import (
	"strings"
	"unicode"
)

// ref resolves a tag name against a context. The name shape is decided at
// compile time so rendering never splits a path.
type ref interface {
	resolve(c *Context) (any, bool)
	String() string
}

// currentRef is ".", the innermost scope value.
type currentRef struct{}

func (currentRef) resolve(c *Context) (any, bool) {
	if len(c.state.scopes) == 0 {
		return nil, false
	}

	return c.current(), true
}

func (currentRef) String() string { return "." }

// simpleRef is a single identifier looked up through the whole scope stack.
type simpleRef string

func (r simpleRef) resolve(c *Context) (any, bool) { return c.lookup(string(r)) }
func (r simpleRef) String() string                 { return string(r) }

// dottedRef is a path a.b.c. The first segment is looked up through the
// scope stack, each following segment only in the value found before it.
type dottedRef struct {
	text string
	path []string
}

func (r dottedRef) resolve(c *Context) (any, bool) {
	v, ok := c.lookup(r.path[0])

	for _, seg := range r.path[1:] {
		if !ok {
			return nil, false
		}

		v, ok = c.lookupIn(v, seg)
	}

	return v, ok
}

func (r dottedRef) String() string { return r.text }

// parseRef selects the ref implementation for name.
func parseRef(name string) (ref, bool) {
	if !validName(name) {
		return nil, false
	}

	if name == "." {
		return currentRef{}, true
	}

	if !strings.Contains(name, ".") {
		return simpleRef(name), true
	}

	path := strings.Split(name, ".")
	for _, seg := range path {
		if seg == "" {
			return nil, false
		}
	}

	return dottedRef{text: name, path: path}, true
}

// splitFilters separates "name | f1 | f2" into the name and its filters.
// It reports false if any part is empty or malformed.
func splitFilters(text string) (string, []string, bool) {
	parts := strings.Split(text, "|")

	name := strings.TrimSpace(parts[0])
	if len(parts) == 1 {
		return name, nil, true
	}

	filters := make([]string, 0, len(parts)-1)

	for _, p := range parts[1:] {
		f := strings.TrimSpace(p)
		if !validName(f) || f == "." {
			return "", nil, false
		}

		filters = append(filters, f)
	}

	return name, filters, true
}

func validName(s string) bool {
	return s != "" && !strings.ContainsFunc(s, unicode.IsSpace)
}

func appendFilters(b *strings.Builder, name string, filters []string) {
	b.WriteString(name)

	for _, f := range filters {
		b.WriteString(" | ")
		b.WriteString(f)
	}
}
