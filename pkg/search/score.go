package search

import (
	"strings"

	"github.com/bastiangx/placeserve/pkg/gazetteer"
)

// Tier scores. A higher score is a better match.
const (
	ScoreExactName     = 1000
	ScoreExactFullName = 900
	ScoreNamePrefix    = 800
	ScoreFullPrefix    = 700
	ScoreNameContains  = 600
	ScoreFullContains  = 500
	ScoreChosung       = 400
	ScoreNone          = 0
)

// candidate is a district reduced to the forms the tiers compare against.
type candidate struct {
	name     string // normalized short name
	fullName string // normalized full name
	chosung  string // consonant skeleton of the raw full name
}

func newCandidate(d *gazetteer.District) candidate {
	return candidate{
		name:     Normalize(d.Name),
		fullName: Normalize(d.FullName),
		chosung:  Chosung(d.FullName),
	}
}

// Tier is one row of the scoring table.
type Tier struct {
	Name  string
	Score int
	match func(c candidate, q string) bool
}

// tiers is evaluated top to bottom; the first match decides the score.
var tiers = []Tier{
	{"exact name", ScoreExactName, func(c candidate, q string) bool { return c.name == q }},
	{"exact full name", ScoreExactFullName, func(c candidate, q string) bool { return c.fullName == q }},
	{"name prefix", ScoreNamePrefix, func(c candidate, q string) bool { return strings.HasPrefix(c.name, q) }},
	{"full name prefix", ScoreFullPrefix, func(c candidate, q string) bool { return strings.HasPrefix(c.fullName, q) }},
	{"name substring", ScoreNameContains, func(c candidate, q string) bool { return strings.Contains(c.name, q) }},
	{"full name substring", ScoreFullContains, func(c candidate, q string) bool { return strings.Contains(c.fullName, q) }},
	{"chosung", ScoreChosung, func(c candidate, q string) bool { return strings.Contains(c.chosung, q) }},
}

// Tiers returns the scoring table in evaluation order.
func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

// Score rates how well d matches an already normalized query.
// It returns ScoreNone when no tier applies.
func Score(d *gazetteer.District, normalizedQuery string) int {
	c := newCandidate(d)
	for _, t := range tiers {
		if t.match(c, normalizedQuery) {
			return t.Score
		}
	}
	return ScoreNone
}

// TierFor names the tier a score belongs to, or "" for ScoreNone.
func TierFor(score int) string {
	for _, t := range tiers {
		if t.Score == score {
			return t.Name
		}
	}
	return ""
}
