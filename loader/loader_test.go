package loader

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/stache/mustache"
)

// tree writes files (by slash-separated relative path) under a new
// temporary directory and returns it.
func tree(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()

	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	return dir
}

func TestSearchPath(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	missing := filepath.Join(a, "missing")

	t.Setenv(PathEnv, b+string(os.PathListSeparator)+missing)

	got := SearchPath(a)
	assert.Equal(t, []string{a, b}, got)

	t.Setenv(PathEnv, "")
	assert.Equal(t, []string{a}, SearchPath(a, missing, a))
}

func TestSearchPath_KeepsFlagOrder(t *testing.T) {
	a, b, c, env := t.TempDir(), t.TempDir(), t.TempDir(), t.TempDir()

	t.Setenv(PathEnv, env)

	assert.Equal(t, []string{a, b, c, env}, SearchPath(a, b, c))
	assert.Equal(t, []string{c, a, env}, SearchPath(c, a))
}

func TestRepository_Load(t *testing.T) {
	t.Setenv(PathEnv, "")

	dir := tree(t, map[string]string{
		"greet.mustache":     "Hello, {{name}}!",
		"page.mustache":      "<{{>greet}}>",
		"sub/item.mustache":  "- {{.}}",
		"notes.txt":          "ignored",
		"raw.html.mustache":  "{{{html}}}",
		"plain.mustache.bak": "x",
	})

	repo := New(WithDirs(dir))

	tests := []struct {
		name  string
		found bool
	}{
		{"greet", true},
		{"page", true},
		{"sub/item", true},
		{"greet.mustache", true},
		{"raw.html", true},
		{"notes", false},
		{"missing", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, ok, err := repo.Load(context.Background(), tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.found, ok)

			if tt.found {
				assert.Equal(t, tt.name, tmpl.Name())
			}
		})
	}

	assert.Equal(t, []string{"greet", "page", "raw.html", "sub/item"}, repo.Names())
}

func TestRepository_NestedPartials(t *testing.T) {
	t.Setenv(PathEnv, "")

	dir := tree(t, map[string]string{
		"layout.mustache": "{{%BLOCKS}}<{{$body}}empty{{/body}}>",
		"list.mustache":   "{{#items}}\n  {{>sub/item}}\n{{/items}}",
		"sub/item.mustache": "* {{.}}\n",
	})

	repo := New(WithDirs(dir), WithCompileOptions(mustache.WithPragmas(mustache.PragmaBlocks)))

	tmpl := mustache.MustCompile(
		"{{<layout}}{{$body}}{{>list}}{{/body}}{{/layout}}",
		mustache.WithPartials(repo),
		mustache.WithPragmas(mustache.PragmaBlocks),
	)

	got, err := tmpl.RenderString(context.Background(), map[string]any{"items": []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, "<  * a\n  * b\n>", got)
}

func TestRepository_Shadowing(t *testing.T) {
	t.Setenv(PathEnv, "")

	first := tree(t, map[string]string{"p.mustache": "first"})
	second := tree(t, map[string]string{"p.mustache": "second", "q.mustache": "q"})

	repo := New(WithDirs(first, second))

	tmpl := mustache.MustCompile("{{>p}}{{>q}}", mustache.WithPartials(repo))

	got, err := tmpl.RenderString(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "firstq", got)
	assert.Equal(t, 2, repo.Len())
}

func TestRepository_Extensions(t *testing.T) {
	t.Setenv(PathEnv, "")

	dir := tree(t, map[string]string{"a.tmpl": "A", "a.mustache": "M"})

	repo := New(WithDirs(dir), WithExtensions(".tmpl", ".mustache"))

	tmpl, ok, err := repo.Lookup("a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A", tmpl.Source())
}

func TestRepository_Errors(t *testing.T) {
	t.Setenv(PathEnv, "")

	dir := tree(t, map[string]string{"bad.mustache": "{{#open}}"})
	repo := New(WithDirs(dir))

	for _, name := range []string{"", "../escape", "/abs"} {
		_, _, err := repo.Lookup(name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}

	_, ok, err := repo.Lookup("bad")
	assert.False(t, ok)
	assert.ErrorIs(t, err, mustache.ErrUnclosedSection)
	assert.Zero(t, repo.Len())
}

func TestRepository_Invalidate(t *testing.T) {
	t.Setenv(PathEnv, "")

	dir := tree(t, map[string]string{"p.mustache": "one"})
	repo := New(WithDirs(dir))

	before, _, err := repo.Lookup("p")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "p.mustache"), []byte("two"), 0o600))

	same, _, err := repo.Lookup("p")
	require.NoError(t, err)
	assert.Same(t, before, same)

	repo.Invalidate("p")

	after, _, err := repo.Lookup("p")
	require.NoError(t, err)
	assert.Equal(t, "two", after.Source())

	repo.Reset()
	assert.Zero(t, repo.Len())
}

func TestRepository_ConcurrentLoad(t *testing.T) {
	t.Setenv(PathEnv, "")

	dir := tree(t, map[string]string{"p.mustache": "{{x}}"})
	repo := New(WithDirs(dir))

	const n = 8

	got := make([]*mustache.Template, n)

	var wg sync.WaitGroup

	for i := range n {
		wg.Go(func() {
			got[i], _, _ = repo.Lookup("p")
		})
	}

	wg.Wait()

	for _, tmpl := range got {
		require.NotNil(t, tmpl)
		assert.Equal(t, "{{x}}", tmpl.Source())
	}
}

func TestRepository_Watch(t *testing.T) {
	t.Setenv(PathEnv, "")

	dir := tree(t, map[string]string{"p.mustache": "one"})

	var changed atomic.Int32

	repo := New(WithDirs(dir), WithOnChange(func(name string) {
		if name == "p" {
			changed.Add(1)
		}
	}))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	require.NoError(t, repo.Watch(ctx))
	t.Cleanup(func() { assert.NoError(t, repo.Close()) })

	_, ok, err := repo.Lookup("p")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "p.mustache"), []byte("two"), 0o600))

	assert.Eventually(t, func() bool { return changed.Load() > 0 }, 5*time.Second, 10*time.Millisecond)

	tmpl, _, err := repo.Lookup("p")
	require.NoError(t, err)
	assert.Equal(t, "two", tmpl.Source())
}
