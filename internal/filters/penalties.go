package filters

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperjump/shindan/internal/assess"
	"github.com/hyperjump/shindan/internal/models"
)

var (
	respLabelRe = regexp.MustCompile(`呼吸|酸素|気道|SpO2|息切|喘`)
	// Numeric SpO2/RR readings alone are not complaint vocabulary; only
	// worded respiratory findings clear the contradiction.
	respTextRe = regexp.MustCompile(`呼吸|息|喘`)
	painLabelRe = regexp.MustCompile(`痛|疼痛|pain`)
	painTextRe  = regexp.MustCompile(`痛|nrs|鎮痛`)
)

// SettingPenalty deducts when the definition implies a care setting the
// assessment never mentions.
func (e *Engine) SettingPenalty(in *models.AssessmentInput, def *models.DiagnosisDefinition) (models.Penalty, bool) {
	required := assess.SettingsOfDefinition(def)
	if len(required) == 0 {
		return models.Penalty{}, false
	}
	var lacking []string
	for _, k := range assess.SortedTags(required) {
		if !in.Settings[k] {
			lacking = append(lacking, k)
		}
	}
	if len(lacking) == 0 {
		return models.Penalty{}, false
	}
	return models.Penalty{
		Amount: e.opts.PenaltySetting,
		Reason: "場面根拠弱(" + strings.Join(lacking, ", ") + ")",
	}, true
}

// WeakEvidencePenalty deducts when the hit counts do not support the
// diagnosis state: risk-type definitions want at least one risk-factor hit,
// problem-focused ones at least one defining-characteristic hit. Counts
// include both rule-based and classifier evidence.
func (e *Engine) WeakEvidencePenalty(def *models.DiagnosisDefinition, dcHits, rkHits int) (models.Penalty, bool) {
	var p models.Penalty
	if strings.Contains(def.DiagnosisState, "リスク") && rkHits < 1 {
		p = models.Penalty{
			Amount: e.opts.PenaltyWeakHits,
			Reason: fmt.Sprintf("危険因子ヒット弱(%d/1)", rkHits),
		}
	}
	if strings.Contains(def.DiagnosisState, "問題焦点") && dcHits < 1 {
		p = models.Penalty{
			Amount: e.opts.PenaltyWeakHits,
			Reason: fmt.Sprintf("診断指標ヒット弱(%d/1)", dcHits),
		}
	}
	return p, p.Amount > 0
}

// ContradictionPenalty deducts when the assessment actively contradicts the
// diagnosis: respiratory diagnoses against silent lungs and normal oxygen
// numbers, pain diagnoses with no pain vocabulary at all.
func (e *Engine) ContradictionPenalty(in *models.AssessmentInput, def *models.DiagnosisDefinition) (models.Penalty, bool) {
	label := def.Label + " " + def.Definition
	if respLabelRe.MatchString(label) {
		noWords := !respTextRe.MatchString(in.Normalized)
		spo2OK := in.Vitals.SpO2 != nil && *in.Vitals.SpO2 >= 95
		rrOK := in.Vitals.RR != nil && *in.Vitals.RR >= 12 && *in.Vitals.RR <= 20
		if noWords && (spo2OK || rrOK) {
			return models.Penalty{Amount: e.opts.PenaltyContradict, Reason: "呼吸所見/語彙が弱く矛盾"}, true
		}
	}
	if painLabelRe.MatchString(label) && !painTextRe.MatchString(in.Normalized) {
		return models.Penalty{Amount: e.opts.PenaltyContradict, Reason: "疼痛所見/語彙が弱い"}, true
	}
	return models.Penalty{}, false
}
