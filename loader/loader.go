// Package loader resolves partials from template files on disk.
//
// A [Repository] searches a list of directories for "<name><ext>" and
// compiles the first match on demand. Compiled partials are kept until the
// file changes, which [Repository.Watch] detects with fsnotify.
package loader

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"

	"github.com/ardnew/stache/mustache"
)

// Errors returned by a [Repository].
var (
	ErrInvalidName = mustache.NewError("invalid partial name")
	ErrReadFile    = mustache.NewError("failed to read template file")
	ErrWatch       = mustache.NewError("failed to watch template directories")
)

// Repository is a filesystem [mustache.PartialRepository].
// It is safe for concurrent use.
type Repository struct {
	cfg   config
	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]*mustache.Template
	watcher *fsnotify.Watcher
}

// New returns a Repository searching the directories given by [WithDirs]
// and then those listed in [PathEnv].
func New(opts ...Option) *Repository {
	cfg := config{exts: []string{DefaultExtension}}

	for _, opt := range opts {
		opt(&cfg)
	}

	cfg.dirs = SearchPath(cfg.dirs...)

	return &Repository{cfg: cfg, entries: map[string]*mustache.Template{}}
}

// Dirs returns the search path.
func (r *Repository) Dirs() []string { return slices.Clone(r.cfg.dirs) }

// Lookup implements [mustache.PartialRepository].
func (r *Repository) Lookup(name string) (*mustache.Template, bool, error) {
	return r.Load(context.Background(), name)
}

// Load returns the compiled partial called name, reading and compiling its
// file on first use. It returns false if no file matches.
//
// Concurrent loads of the same name share one compile.
func (r *Repository) Load(ctx context.Context, name string) (*mustache.Template, bool, error) {
	r.mu.RLock()
	t, ok := r.entries[name]
	r.mu.RUnlock()

	if ok {
		return t, true, nil
	}

	v, err, _ := r.group.Do(name, func() (any, error) {
		return r.load(ctx, name)
	})
	if err != nil {
		return nil, false, err
	}

	t, _ = v.(*mustache.Template)

	return t, t != nil, nil
}

func (r *Repository) load(ctx context.Context, name string) (*mustache.Template, error) {
	path, err := r.Find(name)
	if err != nil || path == "" {
		return nil, err
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrReadFile.Wrap(err).With(slog.String("path", path))
	}

	opts := slices.Concat(
		r.cfg.compile,
		[]mustache.Option{mustache.WithName(name), mustache.WithPartials(r)},
	)

	t, err := mustache.Compile(ctx, string(src), opts...)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.entries[name] = t
	r.mu.Unlock()

	r.cfg.logger.DebugContext(ctx, "partial loaded",
		slog.String("name", name),
		slog.String("path", path),
	)

	return t, nil
}

// Find returns the path of the first file matching name in the search path,
// or "" if there is none. Names use forward slashes and may not leave the
// search directories.
func (r *Repository) Find(name string) (string, error) {
	rel := filepath.FromSlash(name)
	if name == "" || !filepath.IsLocal(rel) {
		return "", ErrInvalidName.With(slog.String("name", name))
	}

	candidates := make([]string, 0, len(r.cfg.exts)+1)
	for _, ext := range r.cfg.exts {
		candidates = append(candidates, rel+ext)
	}

	if slices.Contains(r.cfg.exts, filepath.Ext(rel)) {
		candidates = append(candidates, rel)
	}

	for _, dir := range r.cfg.dirs {
		for _, c := range candidates {
			path := filepath.Join(dir, c)

			fi, err := os.Stat(path)
			if err == nil && fi.Mode().IsRegular() {
				return path, nil
			}

			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return "", ErrReadFile.Wrap(err).With(slog.String("path", path))
			}
		}
	}

	return "", nil
}

// Names returns the names of all partials in the search path.
// A name shadowed by an earlier directory is listed once.
func (r *Repository) Names() []string {
	seen := map[string]bool{}

	for _, dir := range r.cfg.dirs {
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil //nolint:nilerr
			}

			if name, ok := r.nameOf(dir, path); ok {
				seen[name] = true
			}

			return nil
		})
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// nameOf returns the partial name of path under dir.
func (r *Repository) nameOf(dir, path string) (string, bool) {
	rel, err := filepath.Rel(dir, path)
	if err != nil || !filepath.IsLocal(rel) {
		return "", false
	}

	for _, ext := range r.cfg.exts {
		if base, ok := strings.CutSuffix(rel, ext); ok && base != "" {
			return filepath.ToSlash(base), true
		}
	}

	return "", false
}

// Invalidate drops the compiled partial called name.
func (r *Repository) Invalidate(name string) {
	r.mu.Lock()
	delete(r.entries, name)
	r.mu.Unlock()

	r.group.Forget(name)
}

// Reset drops every compiled partial.
func (r *Repository) Reset() {
	r.mu.Lock()
	clear(r.entries)
	r.mu.Unlock()
}

// Len returns the number of compiled partials held.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}
