package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ardnew/stache/filter"
	"github.com/ardnew/stache/mustache"
)

// writeFiles creates each named file under dir and returns dir.
func writeFiles(t *testing.T, dir string, files map[string]string) string {
	t.Helper()

	for name, content := range files {
		path := filepath.Join(dir, name)

		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			t.Fatal(err)
		}

		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	return dir
}

// engineContext returns a context carrying an engine that searches dirs for
// partials.
func engineContext(dirs ...string) context.Context {
	return WithEngine(context.Background(), Engine{Partials: dirs, MaxDepth: 100})
}

func TestEngineOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		engine  Engine
		wantErr error
	}{
		{"defaults", Engine{}, nil},
		{"pragma_list", Engine{Pragmas: []string{"FILTERS,BLOCKS"}}, nil},
		{"pragma_empty_items", Engine{Pragmas: []string{"FILTERS,,"}}, nil},
		{"unknown_pragma", Engine{Pragmas: []string{"FILTERS,NOPE"}}, ErrPragma},
		{"delims", Engine{Delims: "<% %>"}, nil},
		{"delims_one_word", Engine{Delims: "<%"}, ErrDelims},
		{"delims_three_words", Engine{Delims: "a b c"}, ErrDelims},
		{"delims_with_equals", Engine{Delims: "<= =>"}, ErrDelims},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts, repo, err := tt.engine.options()

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("options() error = %v, want %v", err, tt.wantErr)
				}

				return
			}

			if err != nil {
				t.Fatalf("options() error = %v", err)
			}

			if repo == nil || len(opts) == 0 {
				t.Error("options() returned no repository or options")
			}
		})
	}
}

func TestEngineOptions_Apply(t *testing.T) {
	t.Parallel()

	opts, _, err := Engine{
		Pragmas:  []string{"FILTERS"},
		Delims:   "<% %>",
		NoEscape: true,
	}.options()
	if err != nil {
		t.Fatal(err)
	}

	tmpl, err := mustache.Compile(context.Background(), "<%v | f%>", opts...)
	if err != nil {
		t.Fatal(err)
	}

	got, err := tmpl.RenderString(context.Background(), map[string]any{
		"v": "<b>",
		"f": func(s string) string { return s + "!" },
	})
	if err != nil {
		t.Fatal(err)
	}

	if want := "<b>!"; got != want {
		t.Errorf("render = %q, want %q", got, want)
	}
}

func TestCompileFile(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, t.TempDir(), map[string]string{
		"ok.mustache":  "hi {{name}}",
		"bad.mustache": "line\n{{#open}}",
	})

	ctx := context.Background()

	tmpl, err := compileFile(ctx, stdinSource, strings.NewReader("from {{stdin}}"), nil)
	if err != nil {
		t.Fatal(err)
	}

	if tmpl.Name() != "stdin" || tmpl.Source() != "from {{stdin}}" {
		t.Errorf("stdin template = %q (%q)", tmpl.Source(), tmpl.Name())
	}

	path := filepath.Join(dir, "ok.mustache")

	tmpl, err = compileFile(ctx, path, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	if tmpl.Name() != path {
		t.Errorf("Name() = %q, want %q", tmpl.Name(), path)
	}

	_, err = compileFile(ctx, filepath.Join(dir, "bad.mustache"), nil, nil)

	var ce *mustache.CompileError
	if !errors.As(err, &ce) || ce.Line != 2 {
		t.Errorf("compileFile(bad) error = %v, want compile error on line 2", err)
	}

	_, err = compileFile(ctx, filepath.Join(dir, "missing.mustache"), nil, nil)
	if !errors.Is(err, ErrReadTemplate) {
		t.Errorf("compileFile(missing) error = %v, want %v", err, ErrReadTemplate)
	}
}

func TestRenderRun(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, t.TempDir(), map[string]string{
		"base.yaml":              "name: ann\nitems: [1, 2, 3]\n",
		"over.json":              `{"name": "bob"}`,
		"partials/item.mustache": "<{{.}}>",
	})

	tests := []struct {
		name     string
		template string
		data     []string
		filters  []string
		builtins bool
		want     string
		wantErr  error
	}{
		{
			name:     "data",
			template: "Hello {{name}}!",
			data:     []string{"base.yaml"},
			want:     "Hello ann!",
		},
		{
			name:     "later_data_wins",
			template: "Hello {{name}}!",
			data:     []string{"base.yaml", "over.json"},
			want:     "Hello bob!",
		},
		{
			name:     "builtin_filters",
			template: "{{%FILTERS}}{{name | upper}} {{items | len}}",
			data:     []string{"base.yaml"},
			builtins: true,
			want:     "ANN 3",
		},
		{
			name:     "bound_filters",
			template: "{{%FILTERS}}{{name | shout}}",
			data:     []string{"base.yaml"},
			filters:  []string{`shout=upper(value) + "!"`},
			want:     "ANN!",
		},
		{
			name:     "partials",
			template: "{{#items}}{{>item}}{{/items}}",
			data:     []string{"base.yaml"},
			want:     "<1><2><3>",
		},
		{
			name:     "bad_binding",
			template: "x",
			filters:  []string{"=value"},
			wantErr:  filter.ErrBinding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var data []string
			for _, d := range tt.data {
				data = append(data, filepath.Join(dir, d))
			}

			var out bytes.Buffer

			r := &Render{
				Template: stdinSource,
				Data:     data,
				Output:   stdinSource,
				Filter:   tt.filters,
				Builtins: tt.builtins,
				stdio:    stdio{stdin: strings.NewReader(tt.template), stdout: &out},
			}

			err := r.Run(engineContext(filepath.Join(dir, "partials")))

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Render.Run() error = %v, want %v", err, tt.wantErr)
				}

				return
			}

			if err != nil {
				t.Fatalf("Render.Run() error = %v", err)
			}

			if got := out.String(); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderRun_OutputFile(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, t.TempDir(), map[string]string{
		"page.mustache": "{{#list}}{{.}},{{/list}}",
		"data.yaml":     "list: [a, b]\n",
	})

	out := filepath.Join(dir, "out.txt")

	r := &Render{
		Template: filepath.Join(dir, "page.mustache"),
		Data:     []string{filepath.Join(dir, "data.yaml")},
		Output:   out,
	}

	if err := r.Run(engineContext()); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}

	if string(got) != "a,b," {
		t.Errorf("output file = %q, want %q", got, "a,b,")
	}
}

func TestCheckRun(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, t.TempDir(), map[string]string{
		"good.mustache":       "{{#a}}{{>part}}{{/a}}",
		"bad.mustache":        "ok\n  {{/x}}",
		"dangling.mustache":   "{{>nowhere}}",
		"part.mustache":       "{{b}}",
		"broken/p.mustache":   "{{#p}}",
		"usesbroken.mustache": "{{>p}}",
	})

	tests := []struct {
		name     string
		files    []string
		resolve  bool
		wantErr  bool
		contains []string
	}{
		{
			name:     "good",
			files:    []string{"good.mustache"},
			resolve:  true,
			contains: []string{"good.mustache: ok"},
		},
		{
			name:     "syntax_error",
			files:    []string{"good.mustache", "bad.mustache"},
			resolve:  true,
			wantErr:  true,
			contains: []string{"good.mustache: ok", "bad.mustache:2:3: unmatched closing tag"},
		},
		{
			name:     "missing_partial",
			files:    []string{"dangling.mustache"},
			resolve:  true,
			wantErr:  true,
			contains: []string{`partial "nowhere" not found`},
		},
		{
			name:     "missing_partial_not_resolved",
			files:    []string{"dangling.mustache"},
			contains: []string{"dangling.mustache: ok"},
		},
		{
			name:     "broken_partial",
			files:    []string{"usesbroken.mustache"},
			resolve:  true,
			wantErr:  true,
			contains: []string{`partial "p"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var files []string
			for _, f := range tt.files {
				files = append(files, filepath.Join(dir, f))
			}

			var out bytes.Buffer

			c := &Check{Templates: files, Resolve: tt.resolve, stdio: stdio{stdout: &out}}

			err := c.Run(engineContext(dir, filepath.Join(dir, "broken")))

			if tt.wantErr != errors.Is(err, ErrCheckFailed) {
				t.Errorf("Check.Run() error = %v, wantErr %v", err, tt.wantErr)
			}

			for _, s := range tt.contains {
				if !strings.Contains(out.String(), s) {
					t.Errorf("output %q does not contain %q", out.String(), s)
				}
			}
		})
	}
}

func TestTreeRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		src   string
		names bool
		want  string
	}{
		{
			name: "canonical",
			src:  "{{=<% %>=}}<% a %> <%{b}%><%! c %>",
			want: "{{a}} {{&b}}",
		},
		{
			name:  "names",
			src:   "{{#list}}{{item}}{{/list}}{{>footer}}",
			names: true,
			want:  "name    list\nname    item\npartial footer\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer

			tr := &Tree{
				Template: stdinSource,
				Names:    tt.names,
				stdio:    stdio{stdin: strings.NewReader(tt.src), stdout: &out},
			}

			if err := tr.Run(engineContext()); err != nil {
				t.Fatal(err)
			}

			if got := out.String(); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}
