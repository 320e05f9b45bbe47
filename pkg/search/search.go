// Package search ranks gazetteer districts against a free-text query.
//
// Matching is whitespace- and case-insensitive and runs through an ordered
// tier table (exact, prefix, substring, then Korean initial consonants).
// Every function here is pure; the gazetteer is only read.
package search

import (
	"sort"

	"github.com/bastiangx/placeserve/pkg/gazetteer"
)

// DefaultLimit caps results when Options.Limit is unset.
const DefaultLimit = 20

// Options configures one query.
type Options struct {
	Query string
	// Limit caps the number of results. Nil selects DefaultLimit; zero or
	// a negative cap returns nothing.
	Limit *int
	// Levels, when non-nil, restricts results to the listed levels.
	// An empty non-nil slice admits nothing.
	Levels []gazetteer.Level
}

// Limit returns n as an Options.Limit value.
func Limit(n int) *int {
	return &n
}

func (o Options) limit() int {
	if o.Limit == nil {
		return DefaultLimit
	}
	return max(*o.Limit, 0)
}

// Admits reports whether l passes the level allow-list.
func (o Options) Admits(l gazetteer.Level) bool {
	if o.Levels == nil {
		return true
	}
	for _, allowed := range o.Levels {
		if allowed == l {
			return true
		}
	}
	return false
}

// Result is one scored match. District points into the searched slice.
type Result struct {
	District    *gazetteer.District
	MatchedText string
	Score       int
}

// Search scores every district, drops non-matches and level-filtered rows,
// and returns the best results first. Equal scores keep dataset order.
func Search(districts []gazetteer.District, opts Options) []Result {
	if IsBlank(opts.Query) {
		return []Result{}
	}
	q := Normalize(opts.Query)

	results := make([]Result, 0)
	for i := range districts {
		d := &districts[i]
		score := Score(d, q)
		if score == ScoreNone {
			continue
		}
		results = append(results, Result{
			District:    d,
			MatchedText: d.FullName,
			Score:       score,
		})
	}

	// filtered after scoring so the tiers never depend on the filter
	if opts.Levels != nil {
		kept := results[:0]
		for _, r := range results {
			if opts.Admits(r.District.Level) {
				kept = append(kept, r)
			}
		}
		results = kept
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit := opts.limit(); len(results) > limit {
		results = results[:limit]
	}
	return results
}
