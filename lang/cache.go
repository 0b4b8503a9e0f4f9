package lang

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/zeebo/xxh3"
)

// Cache memoizes parsed templates by name and source text. Concurrent
// requests for the same source parse it once. A Cache is safe for concurrent
// use; the zero value is ready to use.
type Cache struct {
	entries sync.Map // cacheKey -> *cacheEntry
	size    atomic.Int64
}

type cacheKey struct {
	name string
	sum  xxh3.Uint128
}

type cacheEntry struct {
	tpl  *Template
	err  error
	src  string
	once sync.Once
}

// defaultCache backs ParseCached.
//
//nolint:gochecknoglobals
var defaultCache Cache

// ParseCached parses s through the package-level cache.
func ParseCached(ctx context.Context, s string, opts ...Option) (*Template, error) {
	return defaultCache.Parse(ctx, s, opts...)
}

// ClearCache empties the package-level cache.
func ClearCache() { defaultCache.Clear() }

// Parse returns the template parsed from s, parsing it only on the first
// request for the same name and source. Parse errors are cached as well.
func (c *Cache) Parse(ctx context.Context, s string, opts ...Option) (*Template, error) {
	cfg := makeConfig(opts...)
	key := cacheKey{name: cfg.name, sum: xxh3.HashString128(s)}

	v, loaded := c.entries.LoadOrStore(key, &cacheEntry{src: s})
	ent := v.(*cacheEntry)

	if !loaded {
		c.size.Add(1)
	}

	if ent.src != s {
		// Hash collision; bypass the cache.
		cfg.logger.DebugContext(ctx, "parse cache collision",
			slog.String("name", cfg.name),
		)

		return ParseString(ctx, s, opts...)
	}

	ent.once.Do(func() {
		ent.tpl, ent.err = ParseString(ctx, s, opts...)
	})

	cfg.logger.TraceContext(ctx, "parse cache",
		slog.String("name", cfg.name),
		slog.Bool("hit", loaded),
	)

	return ent.tpl, ent.err
}

// Len returns the number of cached sources.
func (c *Cache) Len() int { return int(c.size.Load()) }

// Clear removes every cached template.
func (c *Cache) Clear() {
	c.entries.Range(func(k, _ any) bool {
		if _, ok := c.entries.LoadAndDelete(k); ok {
			c.size.Add(-1)
		}

		return true
	})
}
