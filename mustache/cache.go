package mustache

import (
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"sync"

	"github.com/klauspost/readahead"
	"github.com/zeebo/xxh3"
)

// Cache memoizes compiled templates by source text and syntax options.
//
// Templates compiled with a partial repository, escaper, or scope factory
// are never cached, since those options cannot be part of the key. The
// logger of a cached template is the one given on its first compile.
// A Cache is safe for concurrent use; each source is compiled at most once.
type Cache struct {
	entries sync.Map // uint64 -> *cacheEntry
}

type cacheEntry struct {
	tmpl *Template
	err  error
	once sync.Once
}

// defaultCache backs the package-level [CompileCached] and [CompileReader].
var defaultCache Cache

// NewCache returns an empty [Cache].
func NewCache() *Cache { return &Cache{} }

// cacheKey hashes source together with the options that change how it is
// parsed.
func cacheKey(source string, cfg *config) uint64 {
	h := xxh3.New()

	var n [8]byte

	for _, s := range []string{cfg.name, cfg.open, cfg.close} {
		binary.LittleEndian.PutUint64(n[:], uint64(len(s)))
		_, _ = h.Write(n[:])
		_, _ = h.WriteString(s)
	}

	binary.LittleEndian.PutUint64(n[:], uint64(cfg.maxDepth)<<8|uint64(cfg.pragmas))
	_, _ = h.Write(n[:])
	_, _ = h.WriteString(source)

	return h.Sum64()
}

// Compile returns the cached template for source, compiling it on first use.
// Compile errors are cached as well.
// Templates bound to a partial repository, escaper, or scope factory are
// compiled on every call.
func (c *Cache) Compile(ctx context.Context, source string, opts ...Option) (*Template, error) {
	cfg := makeConfig(opts...)
	if cfg.bound {
		cfg.logger.TraceContext(ctx, "cache bypass", slog.String("template", cfg.name))

		return compile(ctx, source, cfg)
	}

	key := cacheKey(source, cfg)

	v, loaded := c.entries.LoadOrStore(key, &cacheEntry{})
	e := v.(*cacheEntry)

	cfg.logger.TraceContext(
		ctx,
		"cache lookup",
		slog.String("template", cfg.name),
		slog.Uint64("key", key),
		slog.Bool("hit", loaded),
	)

	e.once.Do(func() {
		e.tmpl, e.err = compile(ctx, source, cfg)
	})

	return e.tmpl, e.err
}

// CompileReader reads all of r and compiles it through the cache.
func (c *Cache) CompileReader(ctx context.Context, r io.Reader, opts ...Option) (*Template, error) {
	// Read-ahead prefetches the next chunks while earlier ones are copied.
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, ErrReadInput.Wrap(err).With(slog.String("source", "reader"))
	}

	return c.Compile(ctx, string(data), opts...)
}

// Forget removes the entry for source compiled with opts.
func (c *Cache) Forget(source string, opts ...Option) {
	c.entries.Delete(cacheKey(source, makeConfig(opts...)))
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	n := 0

	c.entries.Range(func(any, any) bool {
		n++

		return true
	})

	return n
}

// Clear removes all cached entries.
func (c *Cache) Clear() { c.entries.Clear() }

// CompileCached compiles source through the package-level cache.
func CompileCached(ctx context.Context, source string, opts ...Option) (*Template, error) {
	return defaultCache.Compile(ctx, source, opts...)
}

// CompileReader reads all of r and compiles it through the package-level
// cache.
func CompileReader(ctx context.Context, r io.Reader, opts ...Option) (*Template, error) {
	return defaultCache.CompileReader(ctx, r, opts...)
}

// ClearCache empties the package-level cache.
func ClearCache() { defaultCache.Clear() }
