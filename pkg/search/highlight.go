package search

import (
	"unicode"
	"unicode/utf8"
)

// Span is one piece of a highlighted string.
type Span struct {
	Text      string
	Highlight bool
}

// Highlight splits text around the first occurrence of query.
//
// The query is normalized (whitespace removed, lower-cased) but text is only
// lower-cased, so a query that spans a space in text is not found and the
// whole text comes back unhighlighted even though Search matched it.
// Spans are slices of the original text and never empty; joined, they
// reproduce text exactly.
func Highlight(text, query string) []Span {
	plain := []Span{{Text: text, Highlight: false}}
	if IsBlank(query) {
		return plain
	}

	needle := []rune(Normalize(query))

	// lower-case rune by rune and remember byte offsets, so the match is
	// cut from the original bytes even when case mapping changes widths
	lowered := make([]rune, 0, len(text))
	offsets := make([]int, 0, len(text)+1)
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		lowered = append(lowered, unicode.ToLower(r))
		offsets = append(offsets, i)
		i += size
	}
	offsets = append(offsets, len(text))

	index := indexRunes(lowered, needle)
	if index < 0 {
		return plain
	}
	start, end := offsets[index], offsets[index+len(needle)]

	spans := make([]Span, 0, 3)
	if start > 0 {
		spans = append(spans, Span{Text: text[:start]})
	}
	spans = append(spans, Span{Text: text[start:end], Highlight: true})
	if end < len(text) {
		spans = append(spans, Span{Text: text[end:]})
	}
	return spans
}

// indexRunes returns the first index of needle in haystack, or -1.
func indexRunes(haystack, needle []rune) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j, r := range needle {
			if haystack[i+j] != r {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
