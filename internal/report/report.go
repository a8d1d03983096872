// Package report renders the ranking outcome: the reviewable text report
// with per-candidate score breakdowns, the one-line narrative summary, and
// the machine-readable run record consumed by the review step.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hyperjump/shindan/internal/config"
	"github.com/hyperjump/shindan/internal/models"
)

const rulerWidth = 100

// NewRunMeta stamps one ranking run with a fresh ID and the thresholds it
// ran under.
func NewRunMeta(cfg *config.Config, model string, classifierOK bool) models.RunMeta {
	return models.RunMeta{
		RunID:               uuid.NewString(),
		GeneratedAt:         time.Now(),
		CataloguePath:       cfg.Storage.CataloguePath,
		Model:               model,
		ClassifierReachable: classifierOK,
		TopK:                cfg.Classify.TopK,
		CoarseMinPass:       cfg.Classify.CoarseMinPass,
		FineMinPass:         cfg.Classify.FineMinPass,
		MinDefSim:           cfg.Cutoff.MinDefSim,
		MinRuleScore:        cfg.Cutoff.MinRuleScore,
		OnlyRelated:         cfg.Output.OnlyRelatedOrDefault(),
	}
}

// Render produces the full text report for the visible candidates.
func Render(cfg *config.Config, in *models.AssessmentInput, visible []*models.Candidate, meta models.RunMeta) string {
	var lines []string
	ruler := strings.Repeat("=", rulerWidth)
	lines = append(lines, ruler)
	lines = append(lines, fmt.Sprintf("看護診断 候補（性別/年齢 厳格・カテゴリは明確NGのみ除外・上位のみAI評価） %s",
		meta.GeneratedAt.Format("2006-01-02 15:04")))
	lines = append(lines, ruler)
	lines = append(lines, "[入力] アセスメント本文 (+ S/O があれば反映)")
	lines = append(lines, fmt.Sprintf("[カタログ] %s", meta.CataloguePath))
	lines = append(lines, fmt.Sprintf("[設定] AI_TOPK=%d, coarse≥%g, fine≥%g, MIN_DEF_SIM=%g, MIN_RULE_SCORE=%g, SHOW_N=%d",
		meta.TopK, meta.CoarseMinPass, meta.FineMinPass, meta.MinDefSim, meta.MinRuleScore, cfg.Output.ShowN))
	lines = append(lines, "")

	if len(visible) == 0 {
		lines = append(lines, "（候補なし：条件が厳し過ぎる可能性。S/O記載や語彙を見直すか、足切り設定を緩めてください）")
		return strings.Join(lines, "\n") + "\n"
	}

	shown := visible
	if cfg.Output.ShowN > 0 && len(shown) > cfg.Output.ShowN {
		shown = shown[:cfg.Output.ShowN]
	}
	for _, c := range shown {
		lines = append(lines, fmt.Sprintf("(順位:%d)", c.Rank))
		lines = append(lines, FormatBlock(c, cfg.Weights))
		lines = append(lines, "")
	}

	dash := strings.Repeat("—", rulerWidth)
	lines = append(lines, dash)
	lines = append(lines, "【診断ナラティブ（要約）】")
	lines = append(lines, Narrative(in, shown[0]))
	lines = append(lines, dash)
	lines = append(lines, "")
	lines = append(lines, "（レビュー手順）候補にチェック → 選択を確定すると最終版テキストへ保存されます")
	return strings.Join(lines, "\n") + "\n"
}

// FormatBlock renders one candidate as a checkbox block with its score
// breakdown, evidence lists and audit reasons.
func FormatBlock(c *models.Candidate, w config.WeightsConfig) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("- [ ] %s\t%s", c.Code, c.Label))
	if c.Definition != "" {
		lines = append(lines, "    定義: "+c.Definition)
	}
	lines = append(lines, fmt.Sprintf("    総合スコア: %.2f  (rank: %d)", c.TotalScore, c.Rank))
	lines = append(lines, fmt.Sprintf("    内訳: ai_fine %.2f ×%g / ai_coarse %.2f ×%g / 定義適合 %.2f ×%g / ルール(raw): %.1f",
		c.FineScore, w.FineAI, c.CoarseScore, w.CoarseAI, c.DefinitionSimilarity, w.DefSim, c.RuleRawScore))

	if len(c.Matched.DefinitionTerms) > 0 || c.Matched.Total() > 0 {
		lines = append(lines, "    ①曖昧一致（文字/同義/定義語）:")
		if len(c.Matched.DefinitionTerms) > 0 {
			lines = append(lines, "       定義語:   "+joinList(c.Matched.DefinitionTerms))
		}
		if len(c.Matched.DefiningCharacteristics) > 0 {
			lines = append(lines, "       診断指標: "+joinList(c.Matched.DefiningCharacteristics))
		}
		if len(c.Matched.RelatedFactors) > 0 {
			lines = append(lines, "       関連因子: "+joinList(c.Matched.RelatedFactors))
		}
		if len(c.Matched.RiskFactors) > 0 {
			lines = append(lines, "       危険因子: "+joinList(c.Matched.RiskFactors))
		}
	}
	if c.SemanticMatched.Total() > 0 {
		lines = append(lines, "    ②AI意味一致（言い換え/含意）:")
		if len(c.SemanticMatched.DefiningCharacteristics) > 0 {
			lines = append(lines, "       指標ヒット: "+joinList(c.SemanticMatched.DefiningCharacteristics))
		}
		if len(c.SemanticMatched.RelatedFactors) > 0 {
			lines = append(lines, "       関連因子ヒット: "+joinList(c.SemanticMatched.RelatedFactors))
		}
		if len(c.SemanticMatched.RiskFactors) > 0 {
			lines = append(lines, "       危険因子ヒット: "+joinList(c.SemanticMatched.RiskFactors))
		}
	}
	if len(c.Reasons) > 0 {
		lines = append(lines, "       └ 根拠/ペナルティ内訳:")
		reasons := c.Reasons
		if len(reasons) > 12 {
			reasons = reasons[:12]
		}
		for _, r := range reasons {
			lines = append(lines, "         - "+r)
		}
	}
	return strings.Join(lines, "\n")
}

// Narrative summarizes the top candidate with its strongest evidence and
// the abnormal vitals pulled from the assessment.
func Narrative(in *models.AssessmentInput, top *models.Candidate) string {
	v := in.Vitals
	var abn []string
	if v.Temp != nil && (*v.Temp >= 38 || *v.Temp <= 35) {
		abn = append(abn, fmt.Sprintf("T%.1f", *v.Temp))
	}
	if v.HR != nil && (*v.HR >= 100 || *v.HR <= 50) {
		abn = append(abn, fmt.Sprintf("HR%d", int(*v.HR)))
	}
	if v.RR != nil && (*v.RR >= 22 || *v.RR <= 10) {
		abn = append(abn, fmt.Sprintf("RR%d", int(*v.RR)))
	}
	if v.SpO2 != nil && *v.SpO2 < 94 {
		abn = append(abn, fmt.Sprintf("SpO2%d%%", int(*v.SpO2)))
	}
	if v.SBP != nil && *v.SBP <= 100 {
		abn = append(abn, fmt.Sprintf("SBP%d", int(*v.SBP)))
	}
	if v.MAP != nil && *v.MAP < 65 {
		abn = append(abn, fmt.Sprintf("MAP%d", int(*v.MAP)))
	}
	if v.NRS != nil && *v.NRS >= 4 {
		abn = append(abn, fmt.Sprintf("NRS%d", int(*v.NRS)))
	}

	var evid []string
	evid = append(evid, top.Matched.DefiningCharacteristics...)
	evid = append(evid, top.SemanticMatched.DefiningCharacteristics...)
	evid = append(evid, top.Matched.RelatedFactors...)
	if len(evid) > 3 {
		evid = evid[:3]
	}

	parts := []string{fmt.Sprintf("%s[%s] を最有力（総合 %.2f）。", top.Label, top.Code, top.TotalScore)}
	if len(evid) > 0 {
		parts = append(parts, "根拠: "+joinList(evid))
	}
	if len(abn) > 0 {
		parts = append(parts, "所見: "+strings.Join(abn, " "))
	}
	return strings.Join(parts, " ")
}

// BuildRecord assembles the machine-readable run record over the full
// candidate list, not just the visible subset.
func BuildRecord(meta models.RunMeta, cands []*models.Candidate) models.RunRecord {
	return models.RunRecord{Meta: meta, Candidates: cands}
}

func joinList(xs []string) string {
	return strings.Join(xs, "・")
}
