package search

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bastiangx/placeserve/pkg/gazetteer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSearcher(t *testing.T, opts ...SearcherOption) *Searcher {
	t.Helper()
	g, err := gazetteer.New(fixture())
	require.NoError(t, err)
	return NewSearcher(g, opts...)
}

func TestSearcherMatchesSearch(t *testing.T) {
	plain := newTestSearcher(t)
	cached := newTestSearcher(t, WithCache(16, time.Minute))

	for _, q := range []string{"강남", "ㅅㅊ", "부산", "  ", "분당"} {
		opts := Options{Query: q, Limit: Limit(10)}
		want := Search(plain.Gazetteer().Districts(), opts)
		assert.Equal(t, want, plain.Search(opts), q)

		first := cached.Search(opts)
		second := cached.Search(opts)
		assert.Equal(t, len(want), len(first), q)
		assert.Equal(t, first, second, q)
	}
}

func TestSearcherCacheHits(t *testing.T) {
	var hits, misses atomic.Int64
	s := newTestSearcher(t,
		WithCache(16, time.Minute),
		WithCacheObserver(func(hit bool) {
			if hit {
				hits.Add(1)
			} else {
				misses.Add(1)
			}
		}),
	)

	s.Search(Options{Query: "강남"})
	s.Search(Options{Query: "강남"})
	s.Search(Options{Query: " 강 남 "}) // same normalized key
	s.Search(Options{Query: "강남", Limit: Limit(3)})
	s.Search(Options{Query: "   "}) // blank never reaches the cache

	assert.Equal(t, int64(2), hits.Load())
	assert.Equal(t, int64(2), misses.Load())

	stats := s.Stats()
	assert.Equal(t, 1, stats["cache"])
	assert.Equal(t, 2, stats["cacheHits"])
	assert.Equal(t, 2, stats["cacheEntries"])
	assert.Equal(t, 5, stats["searches"])
	assert.Equal(t, len(fixture()), stats["totalDistricts"])
}

func TestSearcherCachedResultsAreCopies(t *testing.T) {
	s := newTestSearcher(t, WithCache(4, time.Minute))

	first := s.Search(Options{Query: "강남"})
	require.NotEmpty(t, first)
	first[0].Score = -1

	second := s.Search(Options{Query: "강남"})
	assert.NotEqual(t, -1, second[0].Score)
}

func TestSearcherWithoutCache(t *testing.T) {
	s := newTestSearcher(t, WithCache(0, time.Minute))
	s.Search(Options{Query: "강남"})
	assert.Equal(t, 0, s.Stats()["cache"])
}

func TestCacheKeySeparatesOptions(t *testing.T) {
	keys := map[string]bool{}
	for _, opts := range []Options{
		{Query: "강남"},
		{Query: "강남", Limit: Limit(DefaultLimit + 1)},
		{Query: "강남", Limit: Limit(0)},
		{Query: "강남", Levels: []gazetteer.Level{}},
		{Query: "강남", Levels: []gazetteer.Level{gazetteer.LevelSido}},
		{Query: "강남", Levels: []gazetteer.Level{gazetteer.LevelSido, gazetteer.LevelSigungu}},
	} {
		keys[cacheKey(opts)] = true
	}
	assert.Len(t, keys, 6)

	assert.Equal(t, cacheKey(Options{Query: "강남"}), cacheKey(Options{Query: "강남", Limit: Limit(DefaultLimit)}))
	assert.Equal(t, cacheKey(Options{Query: "강남", Limit: Limit(-4)}), cacheKey(Options{Query: "강남", Limit: Limit(0)}))
}

func TestCacheKeyEmbeddedSeparators(t *testing.T) {
	pairs := []struct {
		name string
		a, b Options
	}{
		{
			name: "nul in query vs levels",
			a:    Options{Query: "강\x0020"},
			b:    Options{Query: "강", Levels: []gazetteer.Level{"20"}},
		},
		{
			name: "comma in level",
			a:    Options{Query: "강", Levels: []gazetteer.Level{"sido,sigungu"}},
			b:    Options{Query: "강", Levels: []gazetteer.Level{gazetteer.LevelSido, gazetteer.LevelSigungu}},
		},
		{
			name: "digits after query",
			a:    Options{Query: "강1", Limit: Limit(2)},
			b:    Options{Query: "강", Limit: Limit(12)},
		},
	}
	for _, p := range pairs {
		t.Run(p.name, func(t *testing.T) {
			assert.NotEqual(t, cacheKey(p.a), cacheKey(p.b))
		})
	}
}

func TestSearcherResetCache(t *testing.T) {
	s := newTestSearcher(t, WithCache(8, time.Minute))
	s.Search(Options{Query: "강남"})
	s.Search(Options{Query: "부산"})
	require.Equal(t, 2, s.Stats()["cacheEntries"])

	assert.True(t, s.ResetCache())
	assert.Equal(t, 0, s.Stats()["cacheEntries"])

	s.Search(Options{Query: "강남"})
	assert.Equal(t, 3, s.Stats()["cacheMisses"], "purged entries are computed again")

	assert.False(t, newTestSearcher(t).ResetCache())
}

// Concurrent readers share one immutable gazetteer; run with -race.
func TestSearcherConcurrent(t *testing.T) {
	configs := []struct {
		workers             int
		iterationsPerWorker int
	}{
		{workers: 1, iterationsPerWorker: 200},
		{workers: 4, iterationsPerWorker: 100},
		{workers: 8, iterationsPerWorker: 50},
	}
	queries := []string{"ㄱ", "강", "강남", "서", "서울", "부산", "ㅂㄷ", "동"}

	for _, withCache := range []bool{false, true} {
		for _, config := range configs {
			name := fmt.Sprintf("cache_%t_workers_%d_iter_%d", withCache, config.workers, config.iterationsPerWorker)
			t.Run(name, func(t *testing.T) {
				var opts []SearcherOption
				if withCache {
					opts = append(opts, WithCache(4, time.Minute))
				}
				s := newTestSearcher(t, opts...)

				want := make(map[string][]Result, len(queries))
				for _, q := range queries {
					want[q] = Search(s.Gazetteer().Districts(), Options{Query: q})
				}

				var wg sync.WaitGroup
				errs := make(chan string, config.workers)
				for w := 0; w < config.workers; w++ {
					wg.Add(1)
					go func(worker int) {
						defer wg.Done()
						for i := 0; i < config.iterationsPerWorker; i++ {
							q := queries[(worker+i)%len(queries)]
							got := s.Search(Options{Query: q})
							if len(got) != len(want[q]) {
								errs <- fmt.Sprintf("worker %d: %q got %d results, want %d", worker, q, len(got), len(want[q]))
								return
							}
							if i%25 == 0 {
								runtime.Gosched()
							}
						}
					}(w)
				}
				wg.Wait()
				close(errs)

				for msg := range errs {
					t.Error(msg)
				}
			})
		}
	}
}
