package rules

import (
	"math"
	"strings"
	"testing"

	"github.com/hyperjump/shindan/internal/assess"
	"github.com/hyperjump/shindan/internal/models"
)

func testOptions() Options {
	return Options{
		WeightDC:       1.6,
		WeightRF:       1.2,
		WeightRK:       1.4,
		WeightHint:     1.0,
		FuzzyThreshold: 0.86,
		TokenMinLen:    2,
	}
}

func TestMatch_AffirmedHit(t *testing.T) {
	m := NewMatcher(testOptions())
	in := assess.New("呼吸困難あり。SpO2 88%。")
	def := &models.DiagnosisDefinition{
		Label:                   "非効果的呼吸パターン",
		Definition:              "換気が不十分な状態",
		DefiningCharacteristics: "呼吸困難|咳嗽",
	}
	res := m.Match(in, def)
	if got := res.Evidence.DefiningCharacteristics; len(got) != 1 || got[0] != "呼吸困難" {
		t.Fatalf("defining characteristic hits = %v", got)
	}
	if math.Abs(res.RawScore-1.6) > 1e-9 {
		t.Errorf("raw score = %v, want 1.6", res.RawScore)
	}
	if res.Negated.Total() != 0 {
		t.Errorf("unexpected negated hits: %+v", res.Negated)
	}
}

func TestMatch_NegatedHitDoesNotScore(t *testing.T) {
	m := NewMatcher(testOptions())
	in := assess.New("発熱なし。呼吸音清。")
	def := &models.DiagnosisDefinition{
		Label:                   "感染リスク状態",
		DefiningCharacteristics: "発熱",
	}
	res := m.Match(in, def)
	if res.RawScore != 0 {
		t.Errorf("raw score = %v, want 0 for negated hit", res.RawScore)
	}
	if got := res.Negated.DefiningCharacteristics; len(got) != 1 || got[0] != "発熱" {
		t.Fatalf("negated hits = %v, want [発熱]", got)
	}
	if len(res.Evidence.DefiningCharacteristics) != 0 {
		t.Errorf("negated hit leaked into evidence: %v", res.Evidence.DefiningCharacteristics)
	}
	found := false
	for _, r := range res.Reasons {
		if strings.Contains(r, "正常/陰性") {
			found = true
		}
	}
	if !found {
		t.Errorf("reasons should report the negated hit: %v", res.Reasons)
	}
}

func TestMatch_SynonymExpansion(t *testing.T) {
	m := NewMatcher(testOptions())
	in := assess.New("労作時に息切れが強い。")
	def := &models.DiagnosisDefinition{
		Label:                   "活動耐性低下",
		DefiningCharacteristics: "呼吸困難",
	}
	res := m.Match(in, def)
	if got := res.Evidence.DefiningCharacteristics; len(got) != 1 || got[0] != "呼吸困難" {
		t.Fatalf("synonym hit should credit the catalogue term, got %v", got)
	}
}

func TestMatch_FuzzyTokenMatch(t *testing.T) {
	m := NewMatcher(testOptions())
	in := assess.New("aspirasion noted overnight")
	def := &models.DiagnosisDefinition{
		Label:       "誤嚥リスク状態",
		RiskFactors: "aspiration",
	}
	res := m.Match(in, def)
	if got := res.Evidence.RiskFactors; len(got) != 1 || got[0] != "aspiration" {
		t.Fatalf("fuzzy token hit = %v", got)
	}
	if math.Abs(res.RawScore-1.4) > 1e-9 {
		t.Errorf("raw score = %v, want 1.4", res.RawScore)
	}
}

func TestMatch_NRSBonus(t *testing.T) {
	m := NewMatcher(testOptions())
	in := assess.New("創部の疼痛あり。NRS 8。")
	def := &models.DiagnosisDefinition{
		Label:                   "急性疼痛",
		DefiningCharacteristics: "疼痛",
	}
	res := m.Match(in, def)
	if math.Abs(res.RawScore-3.1) > 1e-9 {
		t.Errorf("raw score = %v, want 1.6 hit + 1.5 NRS bonus", res.RawScore)
	}
}

func TestMatch_RespiratoryHintBonus(t *testing.T) {
	m := NewMatcher(testOptions())
	in := assess.New("SpO2 88%で入院。")
	def := &models.DiagnosisDefinition{
		Label:        "ガス交換障害",
		PriorityHint: "呼吸",
	}
	res := m.Match(in, def)
	if math.Abs(res.RawScore-2.0) > 1e-9 {
		t.Errorf("raw score = %v, want doubled hint bonus for SpO2<90", res.RawScore)
	}
}

func TestSplitTerms(t *testing.T) {
	got := SplitTerms("呼吸困難|頻呼吸、起坐呼吸 努力呼吸|頻呼吸", 2)
	want := []string{"呼吸困難", "頻呼吸", "起坐呼吸", "努力呼吸"}
	if len(got) != len(want) {
		t.Fatalf("terms = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("terms[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitTerms_DropsShort(t *testing.T) {
	if got := SplitTerms("あ、咳", 2); len(got) != 0 {
		t.Errorf("single-rune terms should be dropped, got %v", got)
	}
}

func TestDefinitionTerms(t *testing.T) {
	got := DefinitionTerms("気道の分泌物を排出できない状態のこと", 2, 16)
	has := func(w string) bool {
		for _, g := range got {
			if g == w {
				return true
			}
		}
		return false
	}
	if !has("気道") || !has("状態") {
		t.Errorf("definition terms missing expected words: %v", got)
	}
	if has("こと") {
		t.Errorf("stopword leaked into definition terms: %v", got)
	}
}

func TestDefinitionTerms_Cap(t *testing.T) {
	got := DefinitionTerms(strings.Repeat("肺炎 咳嗽 喀痰 発熱 悪寒 頻脈 頻呼吸 低酸素 倦怠 脱水 ", 4), 2, 4)
	if len(got) != 4 {
		t.Errorf("terms should cap at 4, got %d", len(got))
	}
}

func TestExpandTerm(t *testing.T) {
	got := ExpandTerm("息切れ")
	if got[0] != "息切れ" {
		t.Errorf("first expansion should be the input, got %v", got)
	}
	found := false
	for _, e := range got {
		if e == "呼吸困難" {
			found = true
		}
	}
	if !found {
		t.Errorf("expansion should include the group head: %v", got)
	}
	if got := ExpandTerm("歩行"); len(got) != 1 || got[0] != "歩行" {
		t.Errorf("terms outside any group expand to themselves, got %v", got)
	}
}

func TestRatio(t *testing.T) {
	if Ratio("dyspnea", "dyspnea") != 1 {
		t.Error("identical strings should score 1")
	}
	if Ratio("abc", "xyz") != 0 {
		t.Error("disjoint strings should score 0")
	}
	if r := Ratio("dyspnea", "dyspneas"); r < 0.86 {
		t.Errorf("one-edit similarity = %v, want >= 0.86", r)
	}
}
