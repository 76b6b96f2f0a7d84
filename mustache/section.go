package mustache

import (
	"reflect"
	"strings"
)

// section renders its body according to the shape of the value it names.
// An inverted section renders its body once when the value is falsy.
type section struct {
	ref      ref
	filters  filterChain
	body     composite
	inner    string // unexpanded body text, passed to lambdas
	syntax   syntax
	cache    shapeCache
	inverted bool
}

func (s *section) write(c *Context) error {
	val, _ := s.ref.resolve(c)

	if len(s.filters.refs) > 0 {
		var err error

		if val, err = s.filters.apply(c, val); err != nil {
			return err
		}
	}

	st := s.cache.strategyOf(c, val)

	if s.inverted {
		if st == strategyLambda || truthy(st, val) {
			return nil
		}

		return s.body.write(c)
	}

	switch st {
	case strategyLambda:
		text, tagged, err := s.syntax.call(c, val, s.inner)
		if err != nil {
			return err
		}

		if tagged {
			return s.syntax.expand(c, text)
		}

		return c.writeValue(c.cfg.escape(text))

	case strategyList:
		return s.writeList(c, reflect.ValueOf(val))

	case strategySeq:
		for elem := range asSeq(val) {
			if err := s.writeScope(c, c.cfg.scopes(elem)); err != nil {
				return err
			}
		}

		return nil

	default:
		if !truthy(st, val) {
			return nil
		}

		return s.writeScope(c, c.cfg.scopes(val))
	}
}

func (s *section) writeList(c *Context, rv reflect.Value) error {
	n := rv.Len()

	for i := range n {
		elem := newElementScope(c.cfg.scopes(rv.Index(i).Interface()), i, n)

		if err := s.writeScope(c, elem); err != nil {
			return err
		}
	}

	return nil
}

func (s *section) writeScope(c *Context, scope Scope) error {
	c.pushScope(scope)
	defer c.pop()

	return s.body.write(c)
}

func (s *section) appendText(b *strings.Builder) {
	sigil := "#"
	if s.inverted {
		sigil = "^"
	}

	var name strings.Builder

	appendFilters(&name, s.ref.String(), s.filters.names)

	appendTag(b, sigil, name.String())
	s.body.appendText(b)
	appendTag(b, "/", s.ref.String())
}
