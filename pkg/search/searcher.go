package search

import (
	"sync/atomic"
	"time"

	"github.com/bastiangx/placeserve/pkg/gazetteer"
	"github.com/charmbracelet/log"
)

// Searcher binds the pure search functions to one gazetteer and an
// optional result cache.
type Searcher struct {
	gazetteer *gazetteer.Gazetteer
	cache     *ResultCache
	searches  atomic.Int64
}

// SearcherOption configures a Searcher.
type SearcherOption func(*Searcher)

// WithCache memoises up to size queries for ttl. A size below one disables it.
func WithCache(size int, ttl time.Duration) SearcherOption {
	return func(s *Searcher) {
		if size < 1 {
			s.cache = nil
			return
		}
		s.cache = NewResultCache(size, ttl)
	}
}

// WithCacheObserver reports every cache lookup, e.g. to metrics.
// It has no effect without WithCache and must come after it.
func WithCacheObserver(observe func(hit bool)) SearcherOption {
	return func(s *Searcher) {
		if s.cache != nil {
			s.cache.observe = observe
		}
	}
}

// NewSearcher creates a Searcher over g.
func NewSearcher(g *gazetteer.Gazetteer, opts ...SearcherOption) *Searcher {
	s := &Searcher{gazetteer: g}
	for _, opt := range opts {
		opt(s)
	}
	log.Debugf("Searcher ready: %d districts, cache=%t", g.Len(), s.cache != nil)
	return s
}

// Search ranks the gazetteer for opts.
func (s *Searcher) Search(opts Options) []Result {
	s.searches.Add(1)
	if IsBlank(opts.Query) {
		return []Result{}
	}
	if s.cache == nil {
		return Search(s.gazetteer.Districts(), opts)
	}
	return s.cache.Get(opts, func() []Result {
		return Search(s.gazetteer.Districts(), opts)
	})
}

// Highlight marks the first match of query inside text.
func (s *Searcher) Highlight(text, query string) []Span {
	return Highlight(text, query)
}

// ResetCache drops every cached result. It reports whether there was a
// cache to drop.
func (s *Searcher) ResetCache() bool {
	if s.cache == nil {
		return false
	}
	s.cache.Purge()
	log.Debug("Search cache purged")
	return true
}

// Gazetteer returns the underlying store.
func (s *Searcher) Gazetteer() *gazetteer.Gazetteer {
	return s.gazetteer
}

// Stats returns dataset and cache counters.
func (s *Searcher) Stats() map[string]int {
	gs := s.gazetteer.Stats()
	stats := map[string]int{
		"totalDistricts": gs.Total,
		"sido":           gs.Sido,
		"sigungu":        gs.Sigungu,
		"eupmyeondong":   gs.Eupmyeondong,
		"searches":       int(s.searches.Load()),
	}

	if s.cache != nil {
		for k, v := range s.cache.Stats() {
			stats[k] = v
		}
		stats["cache"] = 1
	} else {
		stats["cache"] = 0
	}

	return stats
}
