package mustache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_Escaping(t *testing.T) {
	data := map[string]any{"name": "<b>", "amp": `a & "b"`}

	tests := []struct {
		src  string
		want string
	}{
		{"{{name}}", "&lt;b&gt;"},
		{"{{{name}}}", "<b>"},
		{"{{&name}}", "<b>"},
		{"{{ & name }}", "<b>"},
		{"{{amp}}", "a &amp; &#34;b&#34;"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, render(t, tt.src, data))
		})
	}
}

func TestRender_WithEscaper(t *testing.T) {
	got := render(t, "{{a}} {{{a}}}", map[string]any{"a": "x y"},
		WithEscaper(func(s string) string { return strings.ReplaceAll(s, " ", "_") }))

	assert.Equal(t, "x_y x y", got)
}

func TestRender_Truthiness(t *testing.T) {
	const src = "{{#x}}A{{/x}}{{^x}}B{{/x}}"

	type point struct{ X int }

	var nilPtr *point

	tests := []struct {
		name string
		x    any
		want string
	}{
		{"false", false, "B"},
		{"empty string", "", "B"},
		{"zero", 0, "B"},
		{"zero float", 0.0, "B"},
		{"zero uint", uint8(0), "B"},
		{"empty list", []any{}, "B"},
		{"empty array", [0]int{}, "B"},
		{"nil", nil, "B"},
		{"nil pointer", nilPtr, "B"},
		{"nil map", map[string]any(nil), "B"},
		{"true", true, "A"},
		{"string", "y", "A"},
		{"one", 1, "A"},
		{"negative float", -0.5, "A"},
		{"list", []any{1}, "A"},
		{"empty map", map[string]any{}, "A"},
		{"struct", point{}, "A"},
		{"pointer", &point{}, "A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render(t, src, map[string]any{"x": tt.x}))
		})
	}

	t.Run("missing", func(t *testing.T) {
		assert.Equal(t, "B", render(t, src, map[string]any{}))
	})
}

func TestRender_ListMetadata(t *testing.T) {
	tests := []struct {
		name string
		list any
		want string
	}{
		{"strings", []string{"a", "b", "c"}, "0:true:false 1:false:false 2:false:true "},
		{"single", []any{"a"}, "0:true:true "},
		{"array", [2]int{7, 8}, "0:true:false 1:false:true "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := render(t, "{{#list}}{{-index}}:{{-first}}:{{-last}} {{/list}}",
				map[string]any{"list": tt.list})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender_ListElements(t *testing.T) {
	data := map[string]any{
		"people": []map[string]any{
			{"name": "ann"},
			{"name": "bob"},
		},
		"sep": ",",
	}

	got := render(t, "{{#people}}{{name}}{{^-last}}{{sep}}{{/-last}}{{/people}}", data)
	assert.Equal(t, "ann,bob", got)

	got = render(t, "{{#people}}{{#-first}}[{{/-first}}{{.}}{{/people}}", map[string]any{
		"people": []int{1, 2},
	})
	assert.Equal(t, "[12", got)
}

func TestRender_Seq(t *testing.T) {
	letters := func(s ...string) iter.Seq[any] {
		return func(yield func(any) bool) {
			for _, v := range s {
				if !yield(v) {
					return
				}
			}
		}
	}

	src := "{{#s}}{{.}}{{/s}}{{^s}}empty{{/s}}"

	assert.Equal(t, "ab", render(t, src, map[string]any{"s": letters("a", "b")}))
	assert.Equal(t, "empty", render(t, src, map[string]any{"s": letters()}))
}

func TestRender_Names(t *testing.T) {
	data := map[string]any{
		"a": map[string]any{
			"b": map[string]any{"c": "deep"},
			"n": 3,
		},
		"x": "outer",
		"c": map[string]any{"name": "Jim"},
	}

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"dotted", "{{a.b.c}}", "deep"},
		{"dotted number", "{{a.n}}", "3"},
		{"dotted missing", "{{a.z.c}}", ""},
		{"broken chain is not resolved upward", "{{a.b.c.name}}", ""},
		{"dotted section", "{{#a.b}}{{c}}{{/a.b}}", "deep"},
		{"current", "{{#x}}{{.}}{{/x}}", "outer"},
		{"shadowing", "{{#a}}{{#b}}{{c}}{{/b}}{{x}}{{/a}}", "deepouter"},
		{"inner shadows outer", "{{#c}}{{name}}{{/c}}{{name}}", "Jim"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render(t, tt.src, data))
		})
	}
}

func TestRender_MultipleData(t *testing.T) {
	tmpl := MustCompile("{{a}}{{b}}")

	out, err := tmpl.RenderString(context.Background(),
		map[string]any{"a": 1, "b": 1},
		map[string]any{"b": 2},
	)
	require.NoError(t, err)
	assert.Equal(t, "12", out)
}

func TestRender_WriterMatchesString(t *testing.T) {
	tmpl := MustCompile("{{#l}}<{{.}}>\n{{/l}}{{{raw}}}")
	data := map[string]any{"l": []any{1, "two", 3.5}, "raw": "&"}

	var buf bytes.Buffer
	require.NoError(t, tmpl.Render(context.Background(), &buf, data))

	s, err := tmpl.RenderString(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, s, buf.String())
	assert.Equal(t, "<1>\n<two>\n<3.5>\n&", s)
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestRender_WriteError(t *testing.T) {
	err := MustCompile("text").Render(context.Background(), failWriter{})
	assert.ErrorIs(t, err, ErrWriteOutput)
}

func TestRender_Lambdas(t *testing.T) {
	var captured string

	data := map[string]any{
		"planet": "Earth",
		"name":   "Al",
		"plain":  Lambda(func(string, RenderFunc) (any, error) { return "world", nil }),
		"tagged": func(string, RenderFunc) string { return "{{planet}}" },
		"gt":     func(string, RenderFunc) any { return ">" },
		"bold": func(text string, render RenderFunc) (any, error) {
			s, err := render(text)

			return "<b>" + s + "</b>", err
		},
		"echo": func(text string, _ RenderFunc) string {
			captured = text

			return text
		},
		"wrap": func(text string, _ RenderFunc) string { return text + "{{planet}}" + text },
		"fail": func(string, RenderFunc) (any, error) { return nil, errors.New("boom") },
	}

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"variable", "Hello, {{plain}}!", "Hello, world!"},
		{"variable expansion", "Hello, {{tagged}}!", "Hello, Earth!"},
		{"variable escaping", "<{{gt}}{{{gt}}}", "<&gt;>"},
		{"section render callback", "{{#bold}}Hi {{name}}{{/bold}}", "&lt;b&gt;Hi Al&lt;/b&gt;"},
		{"section result escaped", "{{#gt}}x{{/gt}}{{#plain}}x{{/plain}}", "&gt;world"},
		{"section expansion", "{{#echo}}Hi {{name}}{{/echo}}", "Hi Al"},
		{"section alternate delimiters", "{{= | | =}}<|#wrap|-|/wrap|>", "<-{{planet}}->"},
		{"inverted section", "<{{^plain}}no{{/plain}}>", "<>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render(t, tt.src, data))
		})
	}

	t.Run("unexpanded inner text", func(t *testing.T) {
		render(t, "{{#echo}}\n  a {{name}}\n{{/echo}}\n", data)
		assert.Equal(t, "  a {{name}}\n", captured)
	})

	t.Run("error", func(t *testing.T) {
		_, err := MustCompile("{{fail}}").RenderString(context.Background(), data)
		assert.ErrorIs(t, err, ErrLambda)
	})
}

func TestRender_Filters(t *testing.T) {
	data := map[string]any{
		"name":  "al",
		"items": []any{1, 2, 3},
		"upper": strings.ToUpper,
		"wrap":  func(v any) any { return fmt.Sprintf("[%v]", v) },
		"rev": func(v []any) []any {
			out := make([]any, len(v))
			for i, x := range v {
				out[len(v)-1-i] = x
			}

			return out
		},
		"empty": Filter(func(any) (any, error) { return "", nil }),
		"bad":   "not a function",
		"two":   func(a, b string) string { return a + b },
		"half":  func(n int) int { return n / 2 },
		"fail":  func(any) (any, error) { return nil, errors.New("nope") },
		"fmt":   map[string]any{"q": func(s string) string { return `"` + s + `"` }},
	}

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"single", "{{name | upper}}", "AL"},
		{"chain", "{{name | upper | wrap}}", "[AL]"},
		{"section", "{{#items | rev}}{{.}}{{/items}}", "321"},
		{"inverted", "{{^name | empty}}none{{/name}}", "none"},
		{"dotted filter", "{{{name | fmt.q}}}", `"al"`},
		{"escaped after filtering", "{{name | fmt.q}}", "&#34;al&#34;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render(t, tt.src, data, WithPragmas(PragmaFilters)))
		})
	}

	errs := []struct {
		name string
		src  string
		want *Error
	}{
		{"missing", "{{name | nope}}", ErrFilterNotFound},
		{"not a function", "{{name | bad}}", ErrFilterInvalid},
		{"two arguments", "{{name | two}}", ErrFilterInvalid},
		{"wrong argument", "{{name | half}}", ErrFilterInvalid},
		{"failing", "{{name | fail}}", ErrFilterFailed},
	}

	for _, tt := range errs {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := MustCompile(tt.src, WithPragmas(PragmaFilters))

			_, err := tmpl.RenderString(context.Background(), data)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

type treeNode struct {
	attrs    map[string]string
	children map[string][]TreeNode
	text     string
}

func (n *treeNode) Attr(name string) (string, bool) {
	v, ok := n.attrs[name]

	return v, ok
}

func (n *treeNode) Children(name string) []TreeNode { return n.children[name] }
func (n *treeNode) Text() string                    { return n.text }

func TestRender_TreeScope(t *testing.T) {
	item := func(text string) TreeNode { return &treeNode{text: text} }

	root := &treeNode{
		attrs: map[string]string{"id": "r1"},
		children: map[string][]TreeNode{
			"title": {item("Hello")},
			"item":  {item("a"), item("b")},
		},
	}

	got := render(t, "{{id}}:{{title}}:{{#item}}{{.}}{{-index}}{{/item}}", root)
	assert.Equal(t, "r1:Hello:a0b1", got)
}

func TestRender_ScopeFactory(t *testing.T) {
	upper := func(v any) Scope {
		return scopeFunc(func(name string) (any, bool) { return strings.ToUpper(name), true })
	}

	assert.Equal(t, "ABC", render(t, "{{abc}}", nil, WithScopeFactory(upper)))
}

type scopeFunc func(string) (any, bool)

func (f scopeFunc) Lookup(name string) (any, bool) { return f(name) }
func (f scopeFunc) Value() any                     { return nil }

func TestRender_Concurrent(t *testing.T) {
	tmpl := MustCompile("{{#v}}{{v}}{{/v}}")

	values := []any{1, "s", true, []any{"x"}, 2.5, map[string]any{"v": "m"}}
	want := []string{"1", "s", "true", "[x]", "2.5", "m"}

	var wg sync.WaitGroup

	for i := range 64 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			k := i % len(values)

			out, err := tmpl.RenderString(context.Background(), map[string]any{"v": values[k]})
			assert.NoError(t, err)
			assert.Equal(t, want[k], out)
		}()
	}

	wg.Wait()
}

func TestShapeCache_Recompute(t *testing.T) {
	c := newContext(context.Background(), makeConfig(), &strings.Builder{})

	var sc shapeCache

	assert.Equal(t, strategyString, sc.strategyOf(c, "a"))
	assert.Equal(t, strategyString, sc.strategyOf(c, "b"))
	assert.Equal(t, strategyNumber, sc.strategyOf(c, 1))
	assert.Equal(t, strategyNil, sc.strategyOf(c, nil))

	p := sc.slot.Load()
	require.NotNil(t, p)
	assert.Equal(t, strategyNumber, p.strategy)
}
