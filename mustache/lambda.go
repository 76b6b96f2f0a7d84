package mustache

import (
	"context"
	"log/slog"
	"reflect"
	"strings"
)

// RenderFunc compiles text and renders it against the current scopes.
type RenderFunc func(text string) (string, error)

// Lambda is a data-bound callable. It receives the unexpanded text of the
// section it is bound to (empty for a variable) and a [RenderFunc] for the
// current scopes.
//
// The functions func(string, RenderFunc) any and
// func(string, RenderFunc) string are accepted as lambdas too.
type Lambda func(text string, render RenderFunc) (any, error)

var lambdaTypes = []reflect.Type{
	reflect.TypeFor[Lambda](),
	reflect.TypeFor[func(string, RenderFunc) (any, error)](),
	reflect.TypeFor[func(string, RenderFunc) any](),
	reflect.TypeFor[func(string, RenderFunc) string](),
}

func isLambdaType(t reflect.Type) bool {
	for _, lt := range lambdaTypes {
		if t == lt {
			return true
		}
	}

	return false
}

func asLambda(v any) Lambda {
	switch f := v.(type) {
	case Lambda:
		return f
	case func(string, RenderFunc) (any, error):
		return f
	case func(string, RenderFunc) any:
		return func(text string, render RenderFunc) (any, error) {
			return f(text, render), nil
		}
	case func(string, RenderFunc) string:
		return func(text string, render RenderFunc) (any, error) {
			return f(text, render), nil
		}
	default:
		return nil
	}
}

// syntax is the delimiter and pragma state active where a node was
// compiled. Text produced by lambdas is compiled under the same syntax.
type syntax struct {
	open    string
	close   string
	pragmas Pragma
}

// call invokes the lambda v with text and returns its result as a string.
// The second result reports whether the string holds template tags that
// must be compiled and rendered before it is written.
func (d syntax) call(c *Context, v any, text string) (string, bool, error) {
	fn := asLambda(v)
	if fn == nil {
		return "", false, nil
	}

	res, err := fn(text, d.renderFunc(c))
	if err != nil {
		return "", false, ErrLambda.Wrap(err)
	}

	out := stringify(res)

	return out, strings.Contains(out, d.open), nil
}

// renderFunc returns a callback rendering text in a transient context of c.
func (d syntax) renderFunc(c *Context) RenderFunc {
	return func(text string) (string, error) {
		t, err := d.compile(c, text)
		if err != nil {
			return "", err
		}

		return c.transient(t.root.write)
	}
}

// expand compiles text and renders it directly into c.
func (d syntax) expand(c *Context, text string) error {
	t, err := d.compile(c, text)
	if err != nil {
		return err
	}

	return t.root.write(c)
}

func (d syntax) compile(c *Context, text string) (*Template, error) {
	ctx := c.ctx
	if ctx == nil {
		ctx = context.TODO()
	}

	cfg := c.cfg.with(WithDelimiters(d.open, d.close), WithPragmas(d.pragmas))

	cfg.logger.TraceContext(ctx, "lambda compile", slog.Int("source_bytes", len(text)))

	return compile(ctx, text, cfg)
}
