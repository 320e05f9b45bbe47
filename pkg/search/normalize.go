package search

import (
	"strings"
	"unicode"
)

// Normalize removes every whitespace rune and lower-cases the rest.
// Queries and candidate names go through it before any comparison.
func Normalize(text string) string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	return strings.ToLower(stripped)
}

// IsBlank reports whether a query has nothing to search for.
func IsBlank(query string) bool {
	return strings.TrimSpace(query) == ""
}

const (
	hangulBase      = 0xAC00
	hangulCount     = 11172 // 19 * 21 * 28 precomposed syllables
	syllablesPerCho = 588   // 21 * 28
)

var chosungTable = [19]rune{
	'ㄱ', 'ㄲ', 'ㄴ', 'ㄷ', 'ㄸ', 'ㄹ', 'ㅁ', 'ㅂ', 'ㅃ', 'ㅅ',
	'ㅆ', 'ㅇ', 'ㅈ', 'ㅉ', 'ㅊ', 'ㅋ', 'ㅌ', 'ㅍ', 'ㅎ',
}

// Chosung replaces every precomposed Hangul syllable with its leading
// consonant, so "강남구" becomes "ㄱㄴㄱ". Other runes pass through.
func Chosung(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		code := r - hangulBase
		if code >= 0 && code < hangulCount {
			b.WriteRune(chosungTable[code/syllablesPerCho])
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ShortenAddress folds the special self-governing suffixes that geocoders
// tend not to know: 특별자치도 -> 도, 특별자치시 -> 시.
func ShortenAddress(address string) string {
	shortened := strings.ReplaceAll(address, "특별자치도", "도")
	return strings.ReplaceAll(shortened, "특별자치시", "시")
}

// LastSegment returns the narrowest part of a space separated full name,
// or "" when there is only one part.
func LastSegment(fullName string) string {
	segments := strings.Fields(fullName)
	if len(segments) < 2 {
		return ""
	}
	return segments[len(segments)-1]
}

// GeocodeCandidates lists the address strings to try, in order, when
// resolving a district to coordinates: the full name, its shortened form,
// then its last segment. Duplicates are dropped.
func GeocodeCandidates(fullName string) []string {
	candidates := make([]string, 0, 3)
	seen := make(map[string]bool, 3)
	for _, c := range []string{fullName, ShortenAddress(fullName), LastSegment(fullName)} {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		candidates = append(candidates, c)
	}
	return candidates
}
