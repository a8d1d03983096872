// Package utils provides shared utilities for text, math, and logging.
package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NFKC folds Unicode compatibility variants (full-width/half-width forms,
// composed characters) to a single canonical representation.
func NFKC(s string) string {
	return norm.NFKC.String(s)
}

// Normalize returns the canonical matching form of s: NFKC folded,
// lower-cased, with whitespace runs collapsed to a single space.
// Normalize is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	t := strings.ToLower(norm.NFKC.String(s))
	var b strings.Builder
	b.Grow(len(t))
	wasSpace := false
	for _, r := range strings.TrimSpace(t) {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}

// Truncate returns s truncated to maxLen runes, with "…" appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "…"
}
