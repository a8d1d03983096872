package rules

import "regexp"

// Simple polarity check: a term hit whose surrounding text reads as
// "absent/normal" must not count as evidence.
const polarityWidth = 12

var (
	okWindowRe  = regexp.MustCompile(`なし|ない|良好|維持|保た|正常|安定|問題なし|みられず|陰性|改善`)
	badWindowRe = regexp.MustCompile(`悪化|不良|低下|障害|困難|不足|増悪|異常|陽性|上昇|増加`)
)

// isNegatedWindow reports whether the ±polarityWidth runes around idx read
// as normal or negated. Worsening vocabulary in the same window keeps the
// hit affirmed ("改善なく悪化" style phrasing).
func isNegatedWindow(text []rune, idx int) bool {
	a := idx - polarityWidth
	if a < 0 {
		a = 0
	}
	b := idx + polarityWidth
	if b > len(text) {
		b = len(text)
	}
	win := string(text[a:b])
	return okWindowRe.MatchString(win) && !badWindowRe.MatchString(win)
}
