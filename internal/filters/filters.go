// Package filters applies the eligibility gates and soft penalties that
// adjust rule/similarity scores: hard sex/age/care-target/category filters
// and the setting, weak-evidence and contradiction penalties.
package filters

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hyperjump/shindan/internal/assess"
	"github.com/hyperjump/shindan/internal/models"
)

// Options carries the strictness flags and penalty amounts.
type Options struct {
	StrictSex        bool
	StrictAge        bool
	StrictCareTarget bool
	StrictCategory   bool

	PenaltySetting    float64
	PenaltyWeakHits   float64
	PenaltyContradict float64
}

// Engine evaluates one definition against one assessment.
type Engine struct {
	opts Options
}

func New(opts Options) *Engine {
	return &Engine{opts: opts}
}

var (
	familyTargetRe = regexp.MustCompile(`家族|介護者|保護者|親|配偶者`)
	femaleOrganRe  = regexp.MustCompile(`子宮|卵巣|膣|会陰|産褥|授乳|母乳|乳房|乳腺|妊娠|産科`)
	maleOrganRe    = regexp.MustCompile(`前立腺|精巣|陰嚢`)
)

// Evaluate runs every hard filter and returns the per-filter results plus
// the combined pass. In permissive mode a failing filter still passes but
// keeps its reason for the audit trail.
func (e *Engine) Evaluate(in *models.AssessmentInput, def *models.DiagnosisDefinition) ([]models.FilterResult, bool) {
	results := []models.FilterResult{
		e.careTarget(in, def),
		e.age(in, def),
		e.sex(in, def),
		e.category(in, def),
	}
	pass := true
	for _, r := range results {
		pass = pass && r.Pass
	}
	return results, pass
}

func (e *Engine) careTarget(in *models.AssessmentInput, def *models.DiagnosisDefinition) models.FilterResult {
	r := models.FilterResult{Name: "care_target", Pass: true}
	ct := strings.TrimSpace(def.CareTarget)
	if ct == "" {
		return r
	}
	if familyTargetRe.MatchString(ct) && !in.Demographics.HasFamily {
		r.Reason = "ケア対象が家族だが本文に家族介入記載なし"
		r.Pass = !e.opts.StrictCareTarget
	}
	return r
}

func (e *Engine) age(in *models.AssessmentInput, def *models.DiagnosisDefinition) models.FilterResult {
	r := models.FilterResult{Name: "age", Pass: true}
	amin := parseBound(def.AgeMin)
	amax := parseBound(def.AgeMax)
	age := in.Demographics.Age
	if age == nil || (amin == nil && amax == nil) {
		return r
	}
	if amin != nil && *age < *amin {
		r.Reason = fmt.Sprintf("年齢%d<最小%d", *age, *amin)
		r.Pass = !e.opts.StrictAge
	} else if amax != nil && *age > *amax {
		r.Reason = fmt.Sprintf("年齢%d>最大%d", *age, *amax)
		r.Pass = !e.opts.StrictAge
	}
	return r
}

func (e *Engine) sex(in *models.AssessmentInput, def *models.DiagnosisDefinition) models.FilterResult {
	r := models.FilterResult{Name: "sex", Pass: true}
	src := def.SexSource()
	switch {
	case femaleOrganRe.MatchString(src) && in.Demographics.Sex == models.SexMale:
		r.Reason = "男性×女性特異診断"
		r.Pass = !e.opts.StrictSex
	case maleOrganRe.MatchString(src) && in.Demographics.Sex == models.SexFemale:
		r.Reason = "女性×男性特異診断"
		r.Pass = !e.opts.StrictSex
	}
	return r
}

func (e *Engine) category(in *models.AssessmentInput, def *models.DiagnosisDefinition) models.FilterResult {
	r := models.FilterResult{Name: "category", Pass: true}
	if !e.opts.StrictCategory {
		return r
	}
	defCats := assess.CategoriesOfDefinition(def)
	if len(in.Categories) == 0 || len(defCats) == 0 {
		return r
	}
	var both []string
	for _, c := range assess.SortedTags(in.Categories) {
		if defCats[c] {
			both = append(both, c)
		}
	}
	if len(both) > 0 {
		r.Reason = "カテゴリ一致(" + strings.Join(both, ", ") + ")"
		return r
	}
	r.Pass = false
	r.Reason = fmt.Sprintf("カテゴリ不一致(本文:%s vs 候補:%s)",
		strings.Join(assess.SortedTags(in.Categories), "/"),
		strings.Join(assess.SortedTags(defCats), "/"))
	return r
}

// CategoryMatched reports whether the category filter passed with an
// explicit overlap, which earns the small category bonus.
func CategoryMatched(results []models.FilterResult) bool {
	for _, r := range results {
		if r.Name == "category" && r.Pass && strings.Contains(r.Reason, "一致") {
			return true
		}
	}
	return false
}

func parseBound(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
