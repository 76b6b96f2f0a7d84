package mustache

import (
	"context"
	"html"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/ardnew/stache/log"
)

// DefaultMaxDepth is the default bound on nested partial and compose
// expansion.
const DefaultMaxDepth = 100

// Default delimiters.
const (
	DefaultOpen  = "{{"
	DefaultClose = "}}"
)

// Pragma enables optional template syntax.
type Pragma uint8

const (
	// PragmaBlocks enables {{<parent}} compose and {{$name}} define tags.
	PragmaBlocks Pragma = 1 << iota

	// PragmaFilters enables "name | f1 | f2" filter chains in tag names.
	PragmaFilters
)

// ParsePragma returns the pragma named s, or false if there is none.
func ParsePragma(s string) (Pragma, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BLOCKS":
		return PragmaBlocks, true
	case "FILTERS":
		return PragmaFilters, true
	default:
		return 0, false
	}
}

// String returns the pragma names joined by a comma.
func (p Pragma) String() string {
	var names []string

	if p&PragmaBlocks != 0 {
		names = append(names, "BLOCKS")
	}

	if p&PragmaFilters != 0 {
		names = append(names, "FILTERS")
	}

	return strings.Join(names, ",")
}

func (p Pragma) has(q Pragma) bool { return p&q == q }

// Escaper transforms variable text before it is written.
type Escaper func(string) string

// config holds the compile and render settings of a [Template].
type config struct {
	partials PartialRepository
	scopes   ScopeFactory
	escape   Escaper
	logger   log.Logger
	name     string
	open     string
	close    string
	maxDepth int
	pragmas  Pragma
	bound    bool // set by options the compile cache cannot key on
}

// Option configures compilation and rendering.
type Option func(*config)

// WithName names the template. The name appears in compile errors and logs.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithDelimiters sets the initial tag delimiters.
// Empty or whitespace-bearing delimiters are ignored.
func WithDelimiters(open, close string) Option {
	return func(c *config) {
		if validDelimiter(open) && validDelimiter(close) {
			c.open, c.close = open, close
		}
	}
}

// WithPragmas enables pragmas as if they were declared at the top of the
// template.
func WithPragmas(p ...Pragma) Option {
	return func(c *config) {
		for _, q := range p {
			c.pragmas |= q
		}
	}
}

// WithPartials sets the repository used to resolve partial and compose tags.
func WithPartials(repo PartialRepository) Option {
	return func(c *config) {
		c.partials = repo
		c.bound = true
	}
}

// WithScopeFactory overrides [DefaultScopeFactory].
func WithScopeFactory(f ScopeFactory) Option {
	return func(c *config) {
		if f != nil {
			c.scopes = f
			c.bound = true
		}
	}
}

// WithMaxDepth bounds partial and compose nesting.
// Non-positive values select [DefaultMaxDepth].
func WithMaxDepth(depth int) Option {
	return func(c *config) {
		if depth <= 0 {
			depth = DefaultMaxDepth
		}

		c.maxDepth = depth
	}
}

// WithEscaper replaces the HTML escaper applied to escaped variables.
func WithEscaper(e Escaper) Option {
	return func(c *config) {
		if e != nil {
			c.escape = e
			c.bound = true
		}
	}
}

// WithLogger sets the structured logger for trace-level debugging.
// If not provided, the logger is zero-valued and all logging is a no-op.
func WithLogger(logger log.Logger) Option {
	return func(c *config) { c.logger = logger }
}

func makeConfig(opts ...Option) *config {
	c := &config{
		scopes:   DefaultScopeFactory,
		escape:   html.EscapeString,
		open:     DefaultOpen,
		close:    DefaultClose,
		maxDepth: DefaultMaxDepth,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// with returns a copy of c with opts applied.
func (c *config) with(opts ...Option) *config {
	cp := *c

	for _, opt := range opts {
		opt(&cp)
	}

	return &cp
}

// Template is a compiled template. It is immutable and safe for concurrent
// rendering.
type Template struct {
	cfg    *config
	root   composite
	source string
}

// Compile parses source into a [Template].
func Compile(ctx context.Context, source string, opts ...Option) (*Template, error) {
	return compile(ctx, source, makeConfig(opts...))
}

// MustCompile is like [Compile] but panics on error.
func MustCompile(source string, opts ...Option) *Template {
	t, err := Compile(context.Background(), source, opts...)
	if err != nil {
		panic(err)
	}

	return t
}

func compile(ctx context.Context, source string, cfg *config) (*Template, error) {
	cfg.logger.TraceContext(
		ctx,
		"compile start",
		slog.String("template", cfg.name),
		slog.Int("source_bytes", len(source)),
	)

	root, err := newCompiler(source, cfg).compile()
	if err != nil {
		cfg.logger.TraceContext(ctx, "compile failed", slog.Any("error", err))

		return nil, err
	}

	cfg.logger.TraceContext(
		ctx,
		"compile complete",
		slog.String("template", cfg.name),
		slog.Int("nodes", len(root)),
	)

	return &Template{cfg: cfg, root: root, source: source}, nil
}

// Name returns the name given with [WithName].
func (t *Template) Name() string { return t.cfg.name }

// Source returns the text the template was compiled from.
func (t *Template) Source() string { return t.source }

// String re-serializes the compiled tree with the default delimiters.
//
// Comments, delimiter changes, and whitespace removed from standalone lines
// do not survive; the result renders the same output as the source.
func (t *Template) String() string {
	var b strings.Builder

	if p := t.usedPragmas(); p != 0 {
		for _, name := range strings.Split(p.String(), ",") {
			b.WriteString(DefaultOpen + "%" + name + DefaultClose)
		}
	}

	t.root.appendText(&b)

	return b.String()
}

// usedPragmas reports the pragmas required by the compiled nodes.
func (t *Template) usedPragmas() Pragma {
	var p Pragma

	walk(t.root, func(n Node) {
		switch n := n.(type) {
		case *define, *compose:
			p |= PragmaBlocks
		case *variable:
			if len(n.filters.refs) > 0 {
				p |= PragmaFilters
			}
		case *section:
			if len(n.filters.refs) > 0 {
				p |= PragmaFilters
			}
		}
	})

	return p
}

// Partials returns the names of the partials and parents the template
// refers to, in order of first appearance.
func (t *Template) Partials() []string {
	var names []string

	walk(t.root, func(n Node) {
		var name string

		switch n := n.(type) {
		case *partial:
			name = n.name
		case *compose:
			name = n.name
		default:
			return
		}

		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	})

	return names
}

// Names returns the data names the template looks up, including filter
// names, in order of first appearance.
func (t *Template) Names() []string {
	var names []string

	add := func(r ref, fc filterChain) {
		for _, name := range append([]string{r.String()}, fc.names...) {
			if !slices.Contains(names, name) {
				names = append(names, name)
			}
		}
	}

	walk(t.root, func(n Node) {
		switch n := n.(type) {
		case *variable:
			add(n.ref, n.filters)
		case *section:
			add(n.ref, n.filters)
		}
	})

	return names
}

// Render writes the template to w. Each data value is pushed as a scope in
// order, so later values shadow earlier ones.
func (t *Template) Render(ctx context.Context, w io.Writer, data ...any) error {
	c := newContext(ctx, t.cfg, w)

	t.cfg.logger.TraceContext(
		ctx,
		"render start",
		slog.String("template", t.cfg.name),
		slog.Int("scopes", len(data)),
	)

	for _, d := range data {
		c.push(d)
	}

	return t.root.write(c)
}

// RenderString renders the template and returns the output.
func (t *Template) RenderString(ctx context.Context, data ...any) (string, error) {
	var b strings.Builder

	if err := t.Render(ctx, &b, data...); err != nil {
		return "", err
	}

	return b.String(), nil
}
