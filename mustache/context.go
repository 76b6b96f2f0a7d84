package mustache

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// renderState is shared by a render context and the transient contexts
// derived from it.
type renderState struct {
	blocks map[string]string
	scopes []Scope
	depth  int
}

// Context is the mutable state of a single render call.
// It must never be shared between concurrent renders.
type Context struct {
	ctx     context.Context
	cfg     *config
	state   *renderState
	out     io.Writer
	buf     *strings.Builder // private output of a transient context
	indent  string
	pending bool // indent is owed before the next write
}

func newContext(ctx context.Context, cfg *config, w io.Writer) *Context {
	return &Context{
		ctx:     ctx,
		cfg:     cfg,
		state:   &renderState{blocks: map[string]string{}},
		out:     w,
		pending: true,
	}
}

// transient runs fn against a context sharing c's scopes, depth, and blocks,
// and returns what fn wrote. Nothing is written to c.
func (c *Context) transient(fn func(*Context) error) (string, error) {
	var buf strings.Builder

	t := &Context{
		ctx:   c.ctx,
		cfg:   c.cfg,
		state: c.state,
		out:   &buf,
		buf:   &buf,
	}

	err := fn(t)
	out := t.buf.String()
	t.buf.Reset()

	return out, err
}

func (c *Context) push(v any) { c.pushScope(c.cfg.scopes(v)) }

func (c *Context) pushScope(s Scope) {
	c.state.scopes = append(c.state.scopes, s)
}

func (c *Context) pop() {
	c.state.scopes[len(c.state.scopes)-1] = nil
	c.state.scopes = c.state.scopes[:len(c.state.scopes)-1]
}

// lookup resolves name against the scope stack, innermost first.
func (c *Context) lookup(name string) (any, bool) {
	for i := len(c.state.scopes) - 1; i >= 0; i-- {
		if v, ok := c.state.scopes[i].Lookup(name); ok {
			return v, true
		}
	}

	return nil, false
}

// lookupIn resolves name against v alone.
func (c *Context) lookupIn(v any, name string) (any, bool) {
	if v == nil {
		return nil, false
	}

	return c.cfg.scopes(v).Lookup(name)
}

// current returns the value of the innermost scope.
func (c *Context) current() any {
	if len(c.state.scopes) == 0 {
		return nil
	}

	return c.state.scopes[len(c.state.scopes)-1].Value()
}

// descend moves the depth counter one partial level away from zero.
// The returned func restores the previous depth.
func (c *Context) descend() (func(), error) {
	prev := c.state.depth

	next := prev + 1
	if prev < 0 {
		next = prev - 1
	}

	return c.setDepth(prev, next)
}

// descendCompose flips the depth counter to the compose side, one level
// beyond the current magnitude.
func (c *Context) descendCompose() (func(), error) {
	prev := c.state.depth

	return c.setDepth(prev, -(abs(prev) + 1))
}

func (c *Context) setDepth(prev, next int) (func(), error) {
	if abs(next) > c.cfg.maxDepth {
		return nil, ErrMaxDepthExceeded.With(
			slog.Int("depth", abs(next)),
			slog.Int("max_depth", c.cfg.maxDepth),
		)
	}

	c.state.depth = next

	return func() { c.state.depth = prev }, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}

	return n
}

func (c *Context) emit(s string) error {
	if s == "" {
		return nil
	}

	if _, err := io.WriteString(c.out, s); err != nil {
		return ErrWriteOutput.Wrap(err)
	}

	return nil
}

// flushIndent writes the pending indent, if any.
func (c *Context) flushIndent() error {
	if !c.pending {
		return nil
	}

	c.pending = false

	return c.emit(c.indent)
}

// writeText writes template text, repeating the indent after each line
// break. A trailing line break leaves the indent pending.
func (c *Context) writeText(text string) error {
	if c.indent == "" {
		if text != "" {
			c.pending = text[len(text)-1] == '\n'
		}

		return c.emit(text)
	}

	for text != "" {
		if err := c.flushIndent(); err != nil {
			return err
		}

		i := strings.IndexByte(text, '\n')
		if i < 0 {
			return c.emit(text)
		}

		if err := c.emit(text[:i+1]); err != nil {
			return err
		}

		text = text[i+1:]
		c.pending = true
	}

	return nil
}

// writeValue writes interpolated data. Its own line breaks are not indented.
func (c *Context) writeValue(text string) error {
	if text == "" {
		return nil
	}

	if c.indent != "" {
		if err := c.flushIndent(); err != nil {
			return err
		}
	}

	c.pending = false

	return c.emit(text)
}
