// Package rules implements the keyword side of candidate scoring: catalogue
// term splitting, synonym expansion, fuzzy matching with polarity windows,
// and the weighted rule score with its numeric bonuses.
package rules

import (
	"regexp"

	"github.com/hyperjump/shindan/pkg/utils"
)

var (
	pipeRe = regexp.MustCompile(`[|｜]`)
	sepRe  = regexp.MustCompile(`[、,;／/・]|[　\s]+`)

	// wordPat picks candidate evidence words out of definition prose:
	// kanji runs, katakana runs, longer hiragana runs, and Latin or
	// alphanumeric words.
	wordPat = regexp.MustCompile(`[一-龥]{2,}|[ァ-ヶー]{2,}|[ぁ-ん]{3,}|[A-Za-z][A-Za-z\-]{2,}|[A-Za-z][0-9][A-Za-z0-9\-]{1,}`)
)

var jpStop = map[string]bool{
	"こと": true, "もの": true, "ため": true, "および": true, "また": true,
	"など": true, "よう": true, "これ": true, "それ": true, "にて": true,
	"により": true, "について": true, "とは": true, "的": true,
}

// SplitTerms splits a delimited catalogue cell into individual terms. Cells
// use | or ｜ between entries and may further separate with punctuation or
// whitespace. Terms shorter than minLen runes are dropped; order is kept
// and duplicates removed.
func SplitTerms(s string, minLen int) []string {
	if s == "" {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, chunk := range pipeRe.Split(s, -1) {
		for _, sub := range sepRe.Split(chunk, -1) {
			term := utils.NFKC(sub)
			if term == "" || len([]rune(term)) < minLen || seen[term] {
				continue
			}
			seen[term] = true
			out = append(out, term)
		}
	}
	return out
}

// DefinitionTerms extracts up to maxTerms representative words from a
// definition's prose, skipping grammatical stopwords and short fragments.
func DefinitionTerms(defText string, minLen, maxTerms int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range wordPat.FindAllString(utils.NFKC(defText), -1) {
		if jpStop[w] || len([]rune(w)) < minLen || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if len(out) >= maxTerms {
			break
		}
	}
	return out
}
