package repl

import (
	"context"
	"maps"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/ardnew/stache/data"
	"github.com/ardnew/stache/loader"
	"github.com/ardnew/stache/log"
	"github.com/ardnew/stache/mustache"
)

// Config describes the environment of a playground session.
type Config struct {
	// Options are applied to every template compiled in the session.
	Options []mustache.Option
	// Filters is the outermost scope, usually the bound filter functions.
	Filters map[string]any
	// Data holds the initial data values, outermost first.
	Data []any
	// Partials resolves partial tags. It may be nil.
	Partials *loader.Repository
	// Changes receives the names of partials changed on disk. It may be nil.
	Changes <-chan string
	// CacheDir holds the history file.
	CacheDir string
	Logger   log.Logger
}

// session is the mutable state shared by the model and its commands.
type session struct {
	cfg Config

	mu     sync.RWMutex
	data   []any
	source string // last rendered template source
}

func newSession(cfg Config) *session {
	return &session{cfg: cfg, data: slices.Clone(cfg.Data)}
}

// scopes returns the values pushed onto each render context.
func (s *session) scopes() []any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]any{s.cfg.Filters}, s.data...)
}

// render compiles src and renders it against the session data.
// A successful render becomes the source opened by the edit command.
func (s *session) render(ctx context.Context, src string) (string, error) {
	tmpl, err := mustache.Compile(ctx, src,
		append(slices.Clone(s.cfg.Options), mustache.WithName("repl"))...)
	if err != nil {
		return "", err
	}

	out, err := tmpl.RenderString(ctx, s.scopes()...)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.source = src
	s.mu.Unlock()

	return out, nil
}

// lastSource returns the most recently rendered template source.
func (s *session) lastSource() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.source
}

// load decodes a data file and pushes it as the innermost data scope.
func (s *session) load(path string) error {
	v, err := data.Load(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.data = append(s.data, v)
	s.mu.Unlock()

	return nil
}

// dataKeys returns the names visible at the top of the data stack.
func (s *session) dataKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]bool{}

	for _, v := range s.data {
		for _, k := range keysOf(v) {
			seen[k] = true
		}
	}

	return slices.Sorted(maps.Keys(seen))
}

// filterNames returns the names of the bound filters.
func (s *session) filterNames() []string {
	return slices.Sorted(maps.Keys(s.cfg.Filters))
}

// partialNames returns the templates the partial repository can find.
func (s *session) partialNames() []string {
	if s.cfg.Partials == nil {
		return nil
	}

	return s.cfg.Partials.Names()
}

// childKeys resolves the dotted path in every data scope, innermost first,
// and returns the names of the first value found.
func (s *session) childKeys(path string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range slices.Backward(s.data) {
		if child, ok := walk(v, strings.Split(path, ".")); ok {
			return keysOf(child)
		}
	}

	return nil
}

func walk(v any, segments []string) (any, bool) {
	for _, seg := range segments {
		next, ok := member(v, seg)
		if !ok {
			return nil, false
		}

		v = next
	}

	return v, true
}

func member(v any, name string) (any, bool) {
	switch v := v.(type) {
	case map[string]any:
		m, ok := v[name]

		return m, ok

	case mustache.TreeNode:
		if a, ok := v.Attr(name); ok {
			return a, true
		}

		if kids := v.Children(name); len(kids) > 0 {
			return kids[0], true
		}

		return nil, false
	}

	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		m := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if m.IsValid() {
			return m.Interface(), true
		}
	}

	return nil, false
}

// keysOf returns the member names of a data value in sorted order.
func keysOf(v any) []string {
	switch v := v.(type) {
	case map[string]any:
		return slices.Sorted(maps.Keys(v))

	case *data.Element:
		seen := map[string]bool{}

		for k := range v.Attrs {
			seen[k] = true
		}

		for _, e := range v.Elements {
			seen[e.Name] = true
		}

		return slices.Sorted(maps.Keys(seen))
	}

	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil
	}

	keys := make([]string, 0, rv.Len())
	for _, k := range rv.MapKeys() {
		keys = append(keys, k.String())
	}

	slices.Sort(keys)

	return keys
}
