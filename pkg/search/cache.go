package search

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// ResultCache memoises search results per (query, limit, levels).
// The gazetteer never changes, so an entry only leaves by size or age.
type ResultCache struct {
	lru    *lru.LRU[string, []Result]
	flight singleflight.Group

	hits    atomic.Int64
	misses  atomic.Int64
	observe func(hit bool)
}

// NewResultCache creates a cache holding at most size entries for ttl.
func NewResultCache(size int, ttl time.Duration) *ResultCache {
	return &ResultCache{
		lru: lru.NewLRU[string, []Result](size, nil, ttl),
	}
}

// cacheKey keys on the normalized query, so "강남 구" and "강남구" share an entry.
// Query and levels are length prefixed; a NUL or comma inside either cannot
// shift a boundary.
func cacheKey(opts Options) string {
	var b strings.Builder
	writeField(&b, Normalize(opts.Query))
	writeField(&b, strconv.Itoa(opts.limit()))
	if opts.Levels == nil {
		b.WriteByte('*')
		return b.String()
	}
	b.WriteString(strconv.Itoa(len(opts.Levels)))
	b.WriteByte('#')
	for _, l := range opts.Levels {
		writeField(&b, string(l))
	}
	return b.String()
}

func writeField(b *strings.Builder, field string) {
	b.WriteString(strconv.Itoa(len(field)))
	b.WriteByte(':')
	b.WriteString(field)
}

// Get returns the cached results for opts, computing them with fetch on a
// miss. Concurrent misses for the same key run fetch once.
// The returned slice is the caller's own.
func (c *ResultCache) Get(opts Options, fetch func() []Result) []Result {
	key := cacheKey(opts)

	if results, ok := c.lru.Get(key); ok {
		c.record(true)
		return cloneResults(results)
	}
	c.record(false)

	v, _, shared := c.flight.Do(key, func() (any, error) {
		results := fetch()
		c.lru.Add(key, results)
		return results, nil
	})
	if shared {
		log.Debugf("Collapsed concurrent search for %q", opts.Query)
	}
	return cloneResults(v.([]Result))
}

func cloneResults(results []Result) []Result {
	out := make([]Result, len(results))
	copy(out, results)
	return out
}

func (c *ResultCache) record(hit bool) {
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	if c.observe != nil {
		c.observe(hit)
	}
}

// Len returns the number of cached entries.
func (c *ResultCache) Len() int {
	return c.lru.Len()
}

// Purge drops every entry.
func (c *ResultCache) Purge() {
	c.lru.Purge()
}

// Stats reports cache size and hit counts.
func (c *ResultCache) Stats() map[string]int {
	return map[string]int{
		"cacheEntries": c.lru.Len(),
		"cacheHits":    int(c.hits.Load()),
		"cacheMisses":  int(c.misses.Load()),
	}
}
