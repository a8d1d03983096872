// Package review turns a human's checked-off selection back into a final
// report: it matches selected lines against the run record and renders the
// confirmed diagnoses with their full detail.
package review

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/hyperjump/shindan/internal/models"
)

// unmatchedRank sorts selections the record does not know about last.
const unmatchedRank = 999999

// Selection is one checked line from the review input.
type Selection struct {
	Code  string
	Label string
}

var selectionRe = regexp.MustCompile(`^[-*]\s*\[[xX]\]\s*(\S+)\s+(.+)$`)

// ParseSelection extracts "- [x] CODE<TAB or spaces>LABEL" lines, keeping
// input order and dropping duplicates. Unchecked boxes are ignored.
func ParseSelection(text string) []Selection {
	var out []Selection
	seen := make(map[Selection]bool)
	for _, line := range strings.Split(text, "\n") {
		m := selectionRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		sel := Selection{Code: strings.TrimSpace(m[1]), Label: strings.TrimSpace(m[2])}
		if !seen[sel] {
			seen[sel] = true
			out = append(out, sel)
		}
	}
	return out
}

// Pick resolves a selection against the candidate list: exact code match
// first, then exact label, then a loose label containment with whitespace
// ignored. Ties resolve to the best-ranked candidate. Returns nil when
// nothing matches.
func Pick(sel Selection, cands []*models.Candidate) *models.Candidate {
	best := func(match func(*models.Candidate) bool) *models.Candidate {
		var found *models.Candidate
		for _, c := range cands {
			if !match(c) {
				continue
			}
			if found == nil || c.Rank < found.Rank {
				found = c
			}
		}
		return found
	}

	if c := best(func(c *models.Candidate) bool { return c.Code == sel.Code }); c != nil {
		return c
	}
	label := strings.TrimSpace(sel.Label)
	if c := best(func(c *models.Candidate) bool { return strings.TrimSpace(c.Label) == label }); c != nil {
		return c
	}
	squeezed := strings.ReplaceAll(label, " ", "")
	if squeezed == "" {
		return nil
	}
	return best(func(c *models.Candidate) bool {
		return strings.Contains(strings.ReplaceAll(c.Label, " ", ""), squeezed)
	})
}

// RenderFinal builds the confirmed-diagnoses report from the selections and
// the run record, ordered by the original ranking. Selections missing from
// the record still appear with minimal detail. An empty selection produces
// an empty document, which clears a previously confirmed file.
func RenderFinal(record models.RunRecord, selections []Selection, now time.Time) string {
	if len(selections) == 0 {
		return ""
	}

	var chosen []*models.Candidate
	for _, sel := range selections {
		c := Pick(sel, record.Candidates)
		if c == nil {
			c = &models.Candidate{Code: sel.Code, Label: sel.Label, Rank: unmatchedRank}
		}
		chosen = append(chosen, c)
	}
	sort.SliceStable(chosen, func(a, b int) bool { return chosen[a].Rank < chosen[b].Rank })

	header := []string{
		"===== 診断（確定版） =====",
		"作成: " + now.Format("2006-01-02 15:04"),
		fmt.Sprintf("実行ID: %s / 件数: %d", record.Meta.RunID, len(chosen)),
		fmt.Sprintf("ソース情報: model=%s, catalogue=%s", record.Meta.Model, record.Meta.CataloguePath),
	}

	blocks := make([]string, 0, len(chosen))
	for i, c := range chosen {
		blocks = append(blocks, entryBlock(c, i+1))
	}
	return strings.Join(header, "\n") + "\n\n" + strings.Join(blocks, "\n\n") + "\n"
}

func entryBlock(c *models.Candidate, idx int) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("%d. [%s] %s", idx, c.Code, c.Label))
	if c.Definition != "" {
		lines = append(lines, "    定義: "+c.Definition)
	}
	lines = append(lines, fmt.Sprintf("    AI順位: %d / AI類似度: %.3f / スコア: %.1f",
		c.Rank, c.FineScore, c.TotalScore))

	var loose []string
	if len(c.Matched.DefiningCharacteristics) > 0 {
		loose = append(loose, "診断指標: "+joinList(c.Matched.DefiningCharacteristics))
	}
	if len(c.Matched.RelatedFactors) > 0 {
		loose = append(loose, "関連因子: "+joinList(c.Matched.RelatedFactors))
	}
	if len(c.Matched.RiskFactors) > 0 {
		loose = append(loose, "危険因子: "+joinList(c.Matched.RiskFactors))
	}
	if len(c.Matched.DefinitionTerms) > 0 {
		loose = append(loose, "定義語: "+joinList(c.Matched.DefinitionTerms))
	}
	if len(loose) > 0 {
		lines = append(lines, "    曖昧一致:")
		for _, b := range loose {
			lines = append(lines, "      - "+b)
		}
	}

	if len(c.Reasons) > 0 {
		lines = append(lines, "    スコア根拠:")
		reasons := c.Reasons
		if len(reasons) > 10 {
			reasons = reasons[:10]
		}
		for _, r := range reasons {
			lines = append(lines, "      - "+r)
		}
	}

	var sem []string
	if len(c.SemanticMatched.DefiningCharacteristics) > 0 {
		sem = append(sem, "指標ヒット: "+joinList(c.SemanticMatched.DefiningCharacteristics))
	}
	if len(c.SemanticMatched.RelatedFactors) > 0 {
		sem = append(sem, "関連因子ヒット: "+joinList(c.SemanticMatched.RelatedFactors))
	}
	if len(c.SemanticMatched.RiskFactors) > 0 {
		sem = append(sem, "危険因子ヒット: "+joinList(c.SemanticMatched.RiskFactors))
	}
	if len(sem) > 0 {
		lines = append(lines, "    AI根拠:")
		for _, b := range sem {
			lines = append(lines, "      - "+b)
		}
	}

	var meta []string
	addMeta := func(name, value string) {
		if value != "" {
			meta = append(meta, name+":"+value)
		}
	}
	src := c.Source
	addMeta("一次焦点", src.PrimaryFocus)
	addMeta("二次焦点", src.SecondaryFocus)
	addMeta("ケア対象", src.CareTarget)
	addMeta("解剖学的部位", src.AnatomicalSite)
	addMeta("年齢下限", src.AgeMin)
	addMeta("年齢上限", src.AgeMax)
	addMeta("臨床経過", src.ClinicalCourse)
	addMeta("診断の状態", src.DiagnosisState)
	addMeta("状況的制約", src.SituationalConstraints)
	addMeta("領域", src.Domain)
	addMeta("分類", src.Class)
	addMeta("判断", src.Judge)
	if len(meta) > 0 {
		lines = append(lines, "    メタ情報: "+strings.Join(meta, " / "))
	}
	return strings.Join(lines, "\n")
}

func joinList(xs []string) string {
	var keep []string
	for _, x := range xs {
		if s := strings.TrimSpace(x); s != "" {
			keep = append(keep, s)
		}
	}
	return strings.Join(keep, "・")
}
