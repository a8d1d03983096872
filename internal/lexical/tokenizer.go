// Package lexical builds a TF-IDF vector space over diagnosis definitions
// and scores cosine similarity against the assessment text.
package lexical

import (
	"math"
	"regexp"
	"strings"
)

const (
	ngramMin = 2
	ngramMax = 4
	// maxTokens caps tokens per document so one verbose definition cannot
	// dominate the space.
	maxTokens = 120
)

var (
	ideographicSeq = regexp.MustCompile(`[一-龥ぁ-んァ-ン]+`)
	latinSeq       = regexp.MustCompile(`[a-zA-Z][a-zA-Z\-]+`)
	latinWord      = regexp.MustCompile(`[a-zA-Z]{3,}`)
)

var stopTokens = map[string]bool{
	"こと": true, "もの": true, "ため": true, "および": true,
	"また": true, "とは": true, "的": true, "など": true, "にくい": true,
}

// charNGrams returns overlapping character n-grams (sizes nmin..nmax) over
// seq with whitespace removed.
func charNGrams(seq string, nmin, nmax int) []string {
	runes := []rune(strings.Join(strings.Fields(seq), ""))
	var out []string
	for n := nmin; n <= nmax; n++ {
		for i := 0; i+n <= len(runes); i++ {
			out = append(out, string(runes[i:i+n]))
		}
	}
	return out
}

// Tokenize produces the mixed-script token multiset for text: character
// n-grams over ideographic/syllabic runs, whole words over Latin runs, and
// adjacent bigram pairs of Latin words, minus stopwords, capped at maxTokens.
func Tokenize(text string) []string {
	var toks []string
	for _, m := range ideographicSeq.FindAllString(text, -1) {
		toks = append(toks, charNGrams(m, ngramMin, ngramMax)...)
	}
	lower := strings.ToLower(text)
	toks = append(toks, latinSeq.FindAllString(lower, -1)...)
	words := latinWord.FindAllString(lower, -1)
	for i := 0; i+1 < len(words); i++ {
		toks = append(toks, words[i]+"_"+words[i+1])
	}

	kept := toks[:0]
	for _, tok := range toks {
		if len([]rune(tok)) < 2 || stopTokens[tok] {
			continue
		}
		kept = append(kept, tok)
		if len(kept) >= maxTokens {
			break
		}
	}
	return kept
}

// TermFrequency counts token occurrences.
func TermFrequency(tokens []string) map[string]float64 {
	tf := make(map[string]float64, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}
	return tf
}

// InverseDocFrequency computes smoothed IDF weights across documents:
// ln((N+1)/(df+1)) + 1.
func InverseDocFrequency(docs [][]string) map[string]float64 {
	n := float64(len(docs))
	df := make(map[string]float64)
	for _, toks := range docs {
		seen := make(map[string]bool, len(toks))
		for _, tok := range toks {
			if !seen[tok] {
				seen[tok] = true
				df[tok]++
			}
		}
	}
	idf := make(map[string]float64, len(df))
	for tok, d := range df {
		idf[tok] = math.Log((n+1)/(d+1)) + 1.0
	}
	return idf
}

// Vector builds a TF-IDF weighted sparse vector for tokens. Tokens absent
// from the IDF map are dropped (they carry no comparable weight).
func Vector(tokens []string, idf map[string]float64) map[string]float64 {
	tf := TermFrequency(tokens)
	vec := make(map[string]float64, len(tf))
	for tok, f := range tf {
		if w, ok := idf[tok]; ok {
			vec[tok] = f * w
		}
	}
	return vec
}

// Cosine returns the cosine similarity of two sparse vectors over the
// intersection of present dimensions. Returns 0 if either vector is empty.
func Cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	var dot float64
	for tok, v := range small {
		if w, ok := large[tok]; ok {
			dot += v * w
		}
	}
	var na, nb float64
	for _, v := range a {
		na += v * v
	}
	for _, v := range b {
		nb += v * v
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
