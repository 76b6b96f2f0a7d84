package mustache

import (
	"bytes"
	"log/slog"
	"strings"
	"unicode"
)

// frame is an open section, define, or compose awaiting its close tag.
// The bottom frame of the stack is the template root.
type frame struct {
	ref     ref
	filters filterChain
	name    string // name text as written, filters included
	base    string // name without filters
	nodes   composite
	syntax  syntax
	inner   int // source offset where the body begins
	start   int // source offset of the open tag
	sigil   byte
}

// compiler turns template source into a node tree in one forward scan.
type compiler struct {
	cfg     *config
	src     string
	open    string
	close   string
	text    bytes.Buffer // literal text not yet emitted as a node
	stack   []*frame
	pos     int
	pragmas Pragma
}

func newCompiler(src string, cfg *config) *compiler {
	return &compiler{
		cfg:     cfg,
		src:     src,
		open:    cfg.open,
		close:   cfg.close,
		pragmas: cfg.pragmas,
	}
}

func (c *compiler) compile() (composite, error) {
	c.stack = []*frame{{}}

	for c.pos < len(c.src) {
		start := c.seek(c.pos, c.open)
		if start < 0 {
			c.text.WriteString(c.src[c.pos:])
			c.pos = len(c.src)

			break
		}

		c.text.WriteString(c.src[c.pos:start])

		if err := c.tag(start); err != nil {
			return nil, err
		}
	}

	if len(c.stack) > 1 {
		f := c.top()

		return nil, c.fail(ErrUnclosedSection.With(slog.String("name", f.name)), f.start)
	}

	c.flush()

	return c.stack[0].nodes, nil
}

// seek returns the offset of the first occurrence of delim at or after from,
// or -1. A partial match that breaks is rescanned from its second byte.
func (c *compiler) seek(from int, delim string) int {
	matched := 0

	for i := from; i < len(c.src); i++ {
		if c.src[i] == delim[matched] {
			matched++
			if matched == len(delim) {
				return i - matched + 1
			}

			continue
		}

		if matched > 0 {
			i -= matched
			matched = 0
		}
	}

	return -1
}

// tag compiles the tag whose open delimiter begins at start.
func (c *compiler) tag(start int) error {
	body := start + len(c.open)
	closer := c.close

	triple := strings.HasPrefix(c.src[body:], "{")
	if triple {
		body++
		closer = "}" + c.close
	}

	end := c.seek(body, closer)
	if end < 0 {
		return c.fail(ErrUnterminatedTag, start)
	}

	tagEnd := end + len(closer)
	content := strings.TrimSpace(c.src[body:end])

	if content == "" {
		return c.fail(ErrEmptyTag, start)
	}

	if triple {
		return c.variable(content, true, start, tagEnd)
	}

	sigil, rest := content[0], strings.TrimSpace(content[1:])

	switch sigil {
	case '!':
		c.skipStandalone(start, tagEnd)

		return nil

	case '=':
		return c.delimiters(content, start, tagEnd)

	case '%':
		return c.pragma(rest, start, tagEnd)

	case '#', '^':
		return c.openSection(sigil, rest, start, tagEnd)

	case '$', '<':
		if !c.pragmas.has(PragmaBlocks) {
			return c.fail(ErrPragmaRequired.With(slog.String("pragma", "BLOCKS")), start)
		}

		return c.openSection(sigil, rest, start, tagEnd)

	case '/':
		return c.closeSection(rest, start, tagEnd)

	case '>':
		return c.partial(rest, start, tagEnd)

	case '&':
		return c.variable(rest, true, start, tagEnd)

	default:
		return c.variable(content, false, start, tagEnd)
	}
}

// standalone reports whether the tag spanning [start, end) is alone on its
// line. If so it returns the whitespace before the tag and the offset just
// past the line ending (or the end of input) after it.
func (c *compiler) standalone(start, end int) (string, int, bool) {
	ls := strings.LastIndexByte(c.src[:start], '\n') + 1

	prefix := c.src[ls:start]
	if !isBlank(prefix) {
		return "", 0, false
	}

	i := end
	for i < len(c.src) && (c.src[i] == ' ' || c.src[i] == '\t') {
		i++
	}

	switch {
	case i == len(c.src):
		return prefix, i, true
	case c.src[i] == '\n':
		return prefix, i + 1, true
	case c.src[i] == '\r' && i+1 < len(c.src) && c.src[i+1] == '\n':
		return prefix, i + 2, true
	default:
		return "", 0, false
	}
}

// skipStandalone advances past a structural tag, removing its line when the
// tag stands alone. It returns the removed indent and whether it did.
func (c *compiler) skipStandalone(start, end int) (string, bool) {
	prefix, next, ok := c.standalone(start, end)
	if !ok {
		c.pos = end

		return "", false
	}

	c.text.Truncate(c.text.Len() - len(prefix))
	c.pos = next

	return prefix, true
}

func (c *compiler) delimiters(content string, start, end int) error {
	if len(content) < 2 || content[len(content)-1] != '=' {
		return c.fail(ErrMalformedDelimiter, start)
	}

	fields := strings.Fields(content[1 : len(content)-1])
	if len(fields) != 2 || !validDelimiter(fields[0]) || !validDelimiter(fields[1]) {
		return c.fail(ErrMalformedDelimiter, start)
	}

	c.skipStandalone(start, end)
	c.open, c.close = fields[0], fields[1]

	return nil
}

func validDelimiter(s string) bool {
	return s != "" &&
		!strings.ContainsRune(s, '=') &&
		!strings.ContainsFunc(s, unicode.IsSpace)
}

func (c *compiler) pragma(name string, start, end int) error {
	p, ok := ParsePragma(name)
	if !ok {
		return c.fail(ErrUnknownPragma.With(slog.String("pragma", name)), start)
	}

	c.skipStandalone(start, end)
	c.pragmas |= p

	return nil
}

// name parses a variable or section name with its optional filter chain.
func (c *compiler) name(text string, start int) (ref, filterChain, string, error) {
	if strings.ContainsRune(text, '|') && !c.pragmas.has(PragmaFilters) {
		return nil, filterChain{}, "", c.fail(
			ErrPragmaRequired.With(slog.String("pragma", "FILTERS")), start)
	}

	base, names, ok := splitFilters(text)
	if !ok {
		return nil, filterChain{}, "", c.fail(
			ErrInvalidName.With(slog.String("name", text)), start)
	}

	r, ok := parseRef(base)
	if !ok {
		return nil, filterChain{}, "", c.fail(
			ErrInvalidName.With(slog.String("name", text)), start)
	}

	fc, ok := newFilterChain(names)
	if !ok {
		return nil, filterChain{}, "", c.fail(
			ErrInvalidName.With(slog.String("name", text)), start)
	}

	return r, fc, base, nil
}

func (c *compiler) variable(text string, raw bool, start, end int) error {
	r, fc, _, err := c.name(text, start)
	if err != nil {
		return err
	}

	c.pos = end
	c.append(&variable{ref: r, filters: fc, syntax: c.syntax(), raw: raw})

	return nil
}

func (c *compiler) openSection(sigil byte, text string, start, end int) error {
	f := &frame{sigil: sigil, name: text, base: text, start: start}

	switch sigil {
	case '#', '^':
		r, fc, base, err := c.name(text, start)
		if err != nil {
			return err
		}

		f.ref, f.filters, f.base = r, fc, base

	default:
		if !validName(text) {
			return c.fail(ErrInvalidName.With(slog.String("name", text)), start)
		}
	}

	c.skipStandalone(start, end)
	c.flush()

	f.syntax = c.syntax()
	f.inner = c.pos
	c.stack = append(c.stack, f)

	return nil
}

func (c *compiler) closeSection(text string, start, end int) error {
	if len(c.stack) == 1 {
		return c.fail(ErrUnmatchedClose.With(slog.String("name", text)), start)
	}

	f := c.top()

	if base, _, _ := splitFilters(text); text != f.name && base != f.base {
		return c.fail(ErrUnmatchedClose.With(
			slog.String("name", text),
			slog.String("open", f.name),
		), start)
	}

	innerEnd := start

	if prefix, ok := c.skipStandalone(start, end); ok {
		innerEnd -= len(prefix)
	}

	c.flush()
	c.stack = c.stack[:len(c.stack)-1]

	switch f.sigil {
	case '$':
		c.append(&define{name: f.name, body: f.nodes})

	case '<':
		c.append(&compose{repo: c.cfg.partials, name: f.name, body: f.nodes})

	default:
		c.append(&section{
			ref:      f.ref,
			filters:  f.filters,
			body:     f.nodes,
			inner:    c.src[f.inner:max(innerEnd, f.inner)],
			syntax:   f.syntax,
			inverted: f.sigil == '^',
		})
	}

	return nil
}

func (c *compiler) partial(name string, start, end int) error {
	if !validName(name) {
		return c.fail(ErrInvalidName.With(slog.String("name", name)), start)
	}

	p := &partial{repo: c.cfg.partials, name: name}

	if indent, ok := c.skipStandalone(start, end); ok {
		p.indent, p.alone, p.trail = indent, true, c.src[end:c.pos]
	}

	c.append(p)

	return nil
}

func (c *compiler) syntax() syntax {
	return syntax{open: c.open, close: c.close, pragmas: c.pragmas}
}

func (c *compiler) top() *frame { return c.stack[len(c.stack)-1] }

// append adds n to the innermost frame after any pending literal text.
func (c *compiler) append(n Node) {
	c.flush()

	f := c.top()
	f.nodes = append(f.nodes, n)
}

// flush emits pending literal text, merging it into a preceding literal.
func (c *compiler) flush() {
	if c.text.Len() == 0 {
		return
	}

	text := c.text.String()
	c.text.Reset()

	f := c.top()

	if n := len(f.nodes); n > 0 {
		if prev, ok := f.nodes[n-1].(literal); ok {
			f.nodes[n-1] = prev + literal(text)

			return
		}
	}

	f.nodes = append(f.nodes, literal(text))
}

// fail positions err at the source offset off.
func (c *compiler) fail(err *Error, off int) error {
	line := strings.Count(c.src[:off], "\n") + 1
	col := off - (strings.LastIndexByte(c.src[:off], '\n') + 1) + 1

	return newCompileError(err, c.cfg.name, line, col)
}

func isBlank(s string) bool {
	for i := range len(s) {
		if s[i] != ' ' && s[i] != '\t' {
			return false
		}
	}

	return true
}
