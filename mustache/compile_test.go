package mustache

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// render compiles src and renders it against data.
func render(t *testing.T, src string, data any, opts ...Option) string {
	t.Helper()

	tmpl, err := Compile(context.Background(), src, opts...)
	require.NoError(t, err)

	out, err := tmpl.RenderString(context.Background(), data)
	require.NoError(t, err)

	return out
}

func TestCompile_NoTags_RoundTrip(t *testing.T) {
	tests := []string{
		"",
		"plain text",
		"line one\n  line two\n\n",
		"braces { and } and }} alone",
		"almost {a tag} but not {",
		"\r\nwindows\r\n",
	}

	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			assert.Equal(t, src, render(t, src, nil))
		})
	}
}

func TestCompile_Deterministic(t *testing.T) {
	src := "{{#list}}{{name}}{{^last}}, {{/last}}{{/list}}\n{{>missing}}"
	data := map[string]any{
		"list": []any{
			map[string]any{"name": "a"},
			map[string]any{"name": "b", "last": true},
		},
	}

	first := render(t, src, data)
	second := render(t, src, data)

	assert.Equal(t, "a, b\n", first)
	assert.Equal(t, first, second)
}

func TestCompile_Delimiters(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "switch and revert",
			src:  "{{=<% %>=}}<%name%><%={{ }}=%>{{name}}",
			want: "XX",
		},
		{
			name: "standalone change",
			src:  "{{=| |=}}\n|name|\n",
			want: "X\n",
		},
		{
			name: "old delimiters are literal after change",
			src:  "{{=[ ]=}}{{name}}[name]",
			want: "{{name}}X",
		},
		{
			name: "spaces inside tag",
			src:  "{{= <% %> =}}<% name %>",
			want: "X",
		},
		{
			name: "triple with custom delimiters",
			src:  "{{=<% %>=}}<%{html}%>",
			want: "<i>",
		},
		{
			name: "broken partial match is literal",
			src:  "{{=<!-- -->=}}<!- <!--name-->",
			want: "<!- X",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := render(t, tt.src, map[string]any{"name": "X", "html": "<i>"})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompile_WithDelimiters(t *testing.T) {
	got := render(t, "<%name%> {{name}}", map[string]any{"name": "X"},
		WithDelimiters("<%", "%>"))

	assert.Equal(t, "X {{name}}", got)
}

func TestCompile_StandaloneLines(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "section lines removed",
			src:  "Begin.\n{{#t}}\nYes\n{{/t}}\nEnd.\n",
			want: "Begin.\nYes\nEnd.\n",
		},
		{
			name: "indented section lines removed",
			src:  "Begin.\n  {{#t}}\n  Yes\n  {{/t}}\nEnd.\n",
			want: "Begin.\n  Yes\nEnd.\n",
		},
		{
			name: "inline section kept",
			src:  "| {{#t}}A{{/t}} |\n",
			want: "| A |\n",
		},
		{
			name: "inverted lines removed",
			src:  "{{^f}}\nNo\n{{/f}}\n",
			want: "No\n",
		},
		{
			name: "comment line removed",
			src:  "Begin.\n  {{! comment }}\nEnd.",
			want: "Begin.\nEnd.",
		},
		{
			name: "multiline comment removed",
			src:  "Begin.\n{{!\nnothing\n}}\nEnd.",
			want: "Begin.\nEnd.",
		},
		{
			name: "crlf line endings",
			src:  "|\r\n{{#t}}\r\n{{/t}}\r\n|",
			want: "|\r\n|",
		},
		{
			name: "standalone at start of input",
			src:  "  {{#t}}\n#{{/t}}\n/",
			want: "#\n/",
		},
		{
			name: "standalone at end of input",
			src:  "#{{#t}}\n/\n  {{/t}}",
			want: "#\n/\n",
		},
		{
			name: "two tags on one line are not standalone",
			src:  "  {{#t}}{{/t}}\n",
			want: "  \n",
		},
		{
			name: "pragma line removed",
			src:  "{{%FILTERS}}\nok\n",
			want: "ok\n",
		},
		{
			name: "variables are never standalone",
			src:  "  {{e}}\n",
			want: "  \n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := render(t, tt.src, map[string]any{"t": true, "f": false})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want *Error
		line int
		col  int
	}{
		{"unclosed section", "a\n{{#x}}\nb", ErrUnclosedSection, 2, 1},
		{"unclosed inner section", "{{#a}}{{#b}}{{/a}}", ErrUnmatchedClose, 1, 13},
		{"mismatched close", "{{#x}}{{/y}}", ErrUnmatchedClose, 1, 7},
		{"close without open", "ok\n  {{/x}}", ErrUnmatchedClose, 2, 3},
		{"unterminated tag", "a\n\n{{name", ErrUnterminatedTag, 3, 1},
		{"unterminated triple", "{{{name}}", ErrUnterminatedTag, 1, 1},
		{"empty tag", "x{{}}", ErrEmptyTag, 1, 2},
		{"blank tag", "{{ }}", ErrEmptyTag, 1, 1},
		{"delimiter missing end", "{{=<% %>}}", ErrMalformedDelimiter, 1, 1},
		{"delimiter one token", "{{=<%=}}", ErrMalformedDelimiter, 1, 1},
		{"delimiter three tokens", "{{=a b c=}}", ErrMalformedDelimiter, 1, 1},
		{"empty dotted segment", "{{a..b}}", ErrInvalidName, 1, 1},
		{"name with space", "{{#a b}}{{/a b}}", ErrInvalidName, 1, 1},
		{"empty partial name", "{{>}}", ErrInvalidName, 1, 1},
		{"define without pragma", "{{$x}}{{/x}}", ErrPragmaRequired, 1, 1},
		{"compose without pragma", "{{<x}}{{/x}}", ErrPragmaRequired, 1, 1},
		{"filter without pragma", "{{a | b}}", ErrPragmaRequired, 1, 1},
		{"pragma after gated tag", "{{$x}}{{/x}}{{%BLOCKS}}", ErrPragmaRequired, 1, 1},
		{"empty filter", "{{%FILTERS}}{{a | }}", ErrInvalidName, 1, 13},
		{"unknown pragma", "\n{{%NOPE}}", ErrUnknownPragma, 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Compile(context.Background(), tt.src, WithName("test"))
			require.Error(t, err)
			assert.Nil(t, tmpl)
			assert.ErrorIs(t, err, tt.want)

			var ce *CompileError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, "test", ce.Name)
			assert.Equal(t, tt.line, ce.Line, "line")
			assert.Equal(t, tt.col, ce.Column, "column")
		})
	}
}

func TestCompile_ErrorMessage(t *testing.T) {
	_, err := Compile(context.Background(), "\n{{#a}}", WithName("page"))
	require.Error(t, err)

	assert.Equal(t, "page:2:1: unclosed section", err.Error())
}

func TestCompile_PragmaOption(t *testing.T) {
	data := map[string]any{"a": "x", "up": func(s string) string { return s + "!" }}

	got := render(t, "{{a | up}}", data, WithPragmas(PragmaFilters))
	assert.Equal(t, "x!", got)
}

func TestCompile_CloseMatchesFullName(t *testing.T) {
	data := map[string]any{
		"items": []any{1, 2},
		"twice": func(v []any) []any { return append(v, v...) },
	}

	for _, src := range []string{
		"{{%FILTERS}}{{#items | twice}}{{.}}{{/items}}",
		"{{%FILTERS}}{{#items | twice}}{{.}}{{/items | twice}}",
	} {
		assert.Equal(t, "1212", render(t, src, data))
	}
}

func TestTemplate_String(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "tags normalized",
			src:  "a {{ #b }}x{{/b}} {{{c}}} {{& d }} {{^e}}{{.}}{{/e}}",
			want: "a {{#b}}x{{/b}} {{&c}} {{&d}} {{^e}}{{.}}{{/e}}",
		},
		{
			name: "comments dropped",
			src:  "a{{! gone }}b",
			want: "ab",
		},
		{
			name: "delimiters normalized",
			src:  "{{=<% %>=}}<%a.b%>",
			want: "{{a.b}}",
		},
		{
			name: "literal open delimiter protected",
			src:  "{{=<% %>=}}{{<%a%>",
			want: "{{=<% %>=}}{{<%={{ }}=%>{{a}}",
		},
		{
			name: "standalone partial keeps indent",
			src:  "x\n  {{>p}}\ny",
			want: "x\n  {{>p}}\ny",
		},
		{
			name: "pragmas restored",
			src:  "{{%FILTERS}}\n{{%BLOCKS}}\n{{a | f}}{{$b}}c{{/b}}",
			want: "{{%BLOCKS}}{{%FILTERS}}{{a | f}}{{$b}}c{{/b}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Compile(context.Background(), tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tmpl.String())
			assert.Equal(t, tt.src, tmpl.Source())
		})
	}
}

func TestTemplate_String_PragmaFromOption(t *testing.T) {
	for _, src := range []string{"{{#l | f}}x{{/l}}", "{{v | f}}"} {
		tmpl, err := Compile(context.Background(), src, WithPragmas(PragmaFilters))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(tmpl.String(), "{{%FILTERS}}"), tmpl.String())
	}

	tmpl, err := Compile(context.Background(), "{{v}}", WithPragmas(PragmaFilters))
	require.NoError(t, err)
	assert.Equal(t, "{{v}}", tmpl.String())
}

func TestTemplate_String_RendersSame(t *testing.T) {
	src := "{{=<% %>=}}{{<%a%> <%#l%><%-index%><%/l%>\n<%! note %>\n<%^z%>none<%/z%>"
	data := map[string]any{"a": "A", "l": []string{"x", "y"}}

	tmpl, err := Compile(context.Background(), src)
	require.NoError(t, err)

	want := render(t, src, data)
	assert.Equal(t, want, render(t, tmpl.String(), data))
}

func TestSeek_PartialMatch(t *testing.T) {
	tests := []struct {
		src   string
		delim string
		want  int
	}{
		{"abc{{x", "{{", 3},
		{"{{{", "{{", 0},
		{"{a{{", "{{", 2},
		{"aab", "ab", 1},
		{"<<<!", "<<!", 1},
		{"none", "{{", -1},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			c := &compiler{src: tt.src}
			assert.Equal(t, tt.want, c.seek(0, tt.delim))
		})
	}
}

func TestTemplate_PartialsNames(t *testing.T) {
	tmpl, err := Compile(context.Background(),
		"{{%FILTERS}}{{%BLOCKS}}{{>a}}{{<b}}{{$x}}{{>a}}{{/x}}{{/b}}"+
			"{{#list | sort}}{{name}}{{.}}{{/list}}{{user.name | upper}}{{name}}")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, tmpl.Partials())
	assert.Equal(t, []string{"list", "sort", "name", ".", "user.name", "upper"}, tmpl.Names())
}
