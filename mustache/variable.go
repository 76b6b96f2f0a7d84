package mustache

import (
	"strings"
)

// variable interpolates a value, escaped unless raw.
type variable struct {
	ref     ref
	filters filterChain
	syntax  syntax
	cache   shapeCache
	raw     bool
}

func (v *variable) write(c *Context) error {
	val, _ := v.ref.resolve(c)

	if len(v.filters.refs) > 0 {
		var err error

		if val, err = v.filters.apply(c, val); err != nil {
			return err
		}
	}

	switch v.cache.strategyOf(c, val) {
	case strategyNil:
		return nil

	case strategyLambda:
		text, tagged, err := v.syntax.call(c, val, "")
		if err != nil {
			return err
		}

		if tagged {
			return v.syntax.expand(c, text)
		}

		return c.writeValue(v.escape(c, text))

	default:
		return c.writeValue(v.escape(c, stringify(val)))
	}
}

func (v *variable) escape(c *Context, s string) string {
	if v.raw {
		return s
	}

	return c.cfg.escape(s)
}

func (v *variable) appendText(b *strings.Builder) {
	b.WriteString(DefaultOpen)

	if v.raw {
		b.WriteByte('&')
	}

	appendFilters(b, v.ref.String(), v.filters.names)
	b.WriteString(DefaultClose)
}
