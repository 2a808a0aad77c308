// Package matcher scores name similarity for watchlist screening. Scores are
// percentages: 100 is an exact match after case folding, 0 shares nothing.
package matcher

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Similarity returns the normalized Levenshtein similarity between two
// strings as a percentage. Comparison is case-insensitive and the distance
// is normalized by the longer string's rune count, so transliterated names
// of different lengths still score proportionally. Two empty strings are
// identical by definition.
func Similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 100
	}
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	return (1 - float64(dist)/float64(maxLen)) * 100
}
