package search

import "github.com/bastiangx/placeserve/pkg/gazetteer"

// ISearcher is what the IPC server and CLI need from a search engine.
type ISearcher interface {
	// Search ranks districts for a query
	Search(opts Options) []Result

	// Highlight marks the first match of query inside text
	Highlight(text, query string) []Span

	// Gazetteer exposes the read-only district store
	Gazetteer() *gazetteer.Gazetteer

	// Stats returns counters about the dataset and cache
	Stats() map[string]int

	// ResetCache drops cached results, if any
	ResetCache() bool
}
