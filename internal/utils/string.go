package utils

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// RuneLength counts characters rather than bytes; Hangul is 3 bytes each.
func RuneLength(s string) int {
	return utf8.RuneCountInString(s)
}

// IsPrintable reports whether s has no control characters.
// Tabs count as whitespace and are allowed.
func IsPrintable(s string) bool {
	for _, r := range s {
		if r == '\t' {
			continue
		}
		if unicode.IsControl(r) || r == utf8.RuneError {
			return false
		}
	}
	return true
}

// IsValidQuery checks if a query should reach the search engine.
// Blank queries are valid: they simply have no results.
func IsValidQuery(s string, maxRunes int) bool {
	if maxRunes > 0 && RuneLength(s) > maxRunes {
		return false
	}
	return IsPrintable(s)
}

// FormatWithCommas renders n with thousands separators, e.g. 20,554.
func FormatWithCommas(n int) string {
	digits := strconv.Itoa(n)
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}
	if len(digits) <= 3 {
		return sign + digits
	}

	var b strings.Builder
	b.WriteString(sign)
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > len(sign) {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
