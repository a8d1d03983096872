package rules

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/shindan/internal/models"
	"github.com/hyperjump/shindan/pkg/utils"
)

// Options carries the tunable weights and thresholds for rule matching.
type Options struct {
	WeightDC       float64
	WeightRF       float64
	WeightRK       float64
	WeightHint     float64
	FuzzyThreshold float64
	TokenMinLen    int
}

// Matcher scores one definition's term lists against an assessment.
type Matcher struct {
	opts Options
}

func NewMatcher(opts Options) *Matcher {
	return &Matcher{opts: opts}
}

// Result is one definition's rule-matching outcome.
type Result struct {
	RawScore float64
	Evidence models.Evidence
	Negated  models.TermMatches
	Reasons  []string
}

// Match computes the weighted rule score for def against the assessment:
// affirmed DC/RF/RK hits times their weights, plus NRS and priority-hint
// bonuses. Hits in a normal/negated context are reported but not scored.
func (m *Matcher) Match(in *models.AssessmentInput, def *models.DiagnosisDefinition) Result {
	var res Result

	dcTerms := SplitTerms(def.DefiningCharacteristics, m.opts.TokenMinLen)
	rfTerms := SplitTerms(def.RelatedFactors, m.opts.TokenMinLen)
	rkTerms := SplitTerms(def.RiskFactors, m.opts.TokenMinLen)

	posDC, negDC := m.fuzzyHits(in.Normalized, dcTerms)
	posRF, negRF := m.fuzzyHits(in.Normalized, rfTerms)
	posRK, negRK := m.fuzzyHits(in.Normalized, rkTerms)

	res.RawScore = m.opts.WeightDC*float64(len(posDC)) +
		m.opts.WeightRF*float64(len(posRF)) +
		m.opts.WeightRK*float64(len(posRK))

	res.Evidence = models.Evidence{
		DefinitionTerms: DefinitionTerms(def.Definition, m.opts.TokenMinLen, 16),
		TermMatches: models.TermMatches{
			DefiningCharacteristics: posDC,
			RelatedFactors:          posRF,
			RiskFactors:             posRK,
		},
	}
	res.Negated = models.TermMatches{
		DefiningCharacteristics: negDC,
		RelatedFactors:          negRF,
		RiskFactors:             negRK,
	}
	if res.Negated.Total() > 0 {
		res.Reasons = append(res.Reasons,
			fmt.Sprintf("正常/陰性と判断: DC%d RF%d RK%d", len(negDC), len(negRF), len(negRK)))
	}

	if strings.Contains(def.Label, "痛") && in.Vitals.NRS != nil {
		switch n := *in.Vitals.NRS; {
		case n >= 7:
			res.RawScore += 1.5
			res.Reasons = append(res.Reasons, "数値:NRS≥7")
		case n >= 4:
			res.RawScore += 0.8
			res.Reasons = append(res.Reasons, "数値:NRS≥4")
		}
	}

	hint := utils.Normalize(def.PriorityHint)
	if containsAny(hint, "呼吸", "airway", "breathing") {
		bonus := 1.0
		if in.Vitals.SpO2 != nil && *in.Vitals.SpO2 < 90 {
			bonus = 2.0
			res.Reasons = append(res.Reasons, "数値:SpO2<90")
		}
		res.RawScore += m.opts.WeightHint * bonus
	}
	if containsAny(hint, "循環", "circulation") {
		bonus := 1.0
		if in.Vitals.MAP != nil && *in.Vitals.MAP < 65 {
			bonus = 2.0
			res.Reasons = append(res.Reasons, "数値:MAP<65")
		}
		res.RawScore += m.opts.WeightHint * bonus
	}

	return res
}

// fuzzyHits looks for each term (plus synonyms) in the normalized text,
// first by substring then by token similarity, and splits the hits by
// polarity of the surrounding window.
func (m *Matcher) fuzzyHits(textNorm string, terms []string) (pos, neg []string) {
	runes := []rune(textNorm)
	tokens := strings.Fields(textNorm)
	seenPos := make(map[string]bool)
	seenNeg := make(map[string]bool)
	for _, term := range terms {
		foundIdx := -1
		for _, exp := range ExpandTerm(term) {
			e := utils.Normalize(exp)
			if e == "" {
				continue
			}
			if i := strings.Index(textNorm, e); i != -1 {
				foundIdx = utf8.RuneCountInString(textNorm[:i])
				break
			}
		}
		if foundIdx == -1 {
		fuzzy:
			for _, exp := range ExpandTerm(term) {
				e := utils.Normalize(exp)
				if e == "" {
					continue
				}
				for _, tok := range tokens {
					if Ratio(e, tok) >= m.opts.FuzzyThreshold {
						if i := strings.Index(textNorm, tok); i != -1 {
							foundIdx = utf8.RuneCountInString(textNorm[:i])
						} else {
							foundIdx = 0
						}
						break fuzzy
					}
				}
			}
		}
		if foundIdx == -1 {
			continue
		}
		if isNegatedWindow(runes, foundIdx) {
			if !seenNeg[term] {
				seenNeg[term] = true
				neg = append(neg, term)
			}
		} else if !seenPos[term] {
			seenPos[term] = true
			pos = append(pos, term)
		}
	}
	return pos, neg
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
