package ranker

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/hyperjump/shindan/internal/assess"
	"github.com/hyperjump/shindan/internal/config"
	"github.com/hyperjump/shindan/internal/lexical"
	"github.com/hyperjump/shindan/internal/models"
)

type fakeScorer struct {
	mu        sync.Mutex
	online    bool
	coarse    map[string]float64
	fine      map[string]float64
	fineEv    map[string]models.TermMatches
	fineCalls []string
}

func (f *fakeScorer) Model() string                        { return "fake" }
func (f *fakeScorer) Available(_ context.Context) bool     { return f.online }
func (f *fakeScorer) Coarse(_ context.Context, _ string, def *models.DiagnosisDefinition) float64 {
	return f.coarse[def.Label]
}

func (f *fakeScorer) Fine(_ context.Context, _ string, def *models.DiagnosisDefinition, _, _, _ []string) (float64, models.TermMatches) {
	f.mu.Lock()
	f.fineCalls = append(f.fineCalls, def.Label)
	f.mu.Unlock()
	return f.fine[def.Label], f.fineEv[def.Label]
}

func testCatalogue() []models.DiagnosisDefinition {
	return []models.DiagnosisDefinition{
		{
			Code:                    "00032",
			Label:                   "非効果的呼吸パターン",
			Definition:              "呼吸数や換気のパターンが正常範囲にない状態",
			DefiningCharacteristics: "呼吸困難|頻呼吸",
			PriorityHint:            "呼吸",
			DiagnosisState:          "問題焦点型",
		},
		{
			Code:                    "00132",
			Label:                   "急性疼痛",
			Definition:              "実在する組織損傷に伴う痛みの不快な感覚",
			DefiningCharacteristics: "疼痛",
			DiagnosisState:          "問題焦点型",
		},
		{
			Code:       "00104",
			Label:      "非効果的母乳栄養",
			Definition: "母乳による授乳の継続が困難な状態",
		},
		{
			Code:           "00011",
			Label:          "便秘",
			Definition:     "排便回数の減少と排便困難を伴う状態",
			DiagnosisState: "問題焦点型",
			Domain:         "排泄",
		},
	}
}

func newTestRanker(t *testing.T, scorer *fakeScorer) *Ranker {
	t.Helper()
	defs := testCatalogue()
	index := lexical.BuildIndex(defs, "test")
	return New(config.Default(), defs, index, scorer, nil)
}

func TestRank_RespiratoryCase(t *testing.T) {
	scorer := &fakeScorer{
		online: true,
		coarse: map[string]float64{"非効果的呼吸パターン": 0.8},
		fine:   map[string]float64{"非効果的呼吸パターン": 0.7},
		fineEv: map[string]models.TermMatches{},
	}
	r := newTestRanker(t, scorer)
	in := assess.New("78歳 男性。呼吸困難あり。頻呼吸。SpO2 88%。")

	out := r.Rank(context.Background(), in)
	if !out.ClassifierAvailable {
		t.Fatal("classifier was online, outcome should record it")
	}
	top := out.Candidates[0]
	if top.Label != "非効果的呼吸パターン" {
		t.Fatalf("top candidate = %s, want 非効果的呼吸パターン", top.Label)
	}
	if !top.Related || top.Rank != 1 {
		t.Errorf("top candidate related=%v rank=%d", top.Related, top.Rank)
	}
	if len(top.Matched.DefiningCharacteristics) != 2 {
		t.Errorf("expected both defining characteristics to hit: %+v", top.Matched)
	}
	if top.TotalScore <= 0 {
		t.Errorf("total score = %v", top.TotalScore)
	}
}

func TestRank_SexFilterExcludes(t *testing.T) {
	r := newTestRanker(t, &fakeScorer{})
	in := assess.New("78歳 男性。呼吸困難あり。")

	out := r.Rank(context.Background(), in)
	for _, c := range out.Candidates {
		if c.Label != "非効果的母乳栄養" {
			continue
		}
		if c.HardPass {
			t.Error("female-specific diagnosis must fail hard filters for a male patient")
		}
		if c.Related {
			t.Error("hard-filtered candidate must never be related")
		}
		return
	}
	t.Fatal("filtered candidate missing from the full list")
}

func TestRank_ClassifierOffline(t *testing.T) {
	r := newTestRanker(t, &fakeScorer{online: false})
	in := assess.New("呼吸困難あり。頻呼吸。SpO2 88%。")

	out := r.Rank(context.Background(), in)
	if out.ClassifierAvailable {
		t.Fatal("offline classifier must be recorded as unavailable")
	}
	top := out.Candidates[0]
	if top.Label != "非効果的呼吸パターン" {
		t.Fatalf("lexical+rule ordering should still rank the respiratory candidate first, got %s", top.Label)
	}
	if top.CoarseScore != 0 || top.FineScore != 0 {
		t.Errorf("semantic scores must stay zero offline: coarse=%v fine=%v", top.CoarseScore, top.FineScore)
	}
	if !top.Related {
		t.Error("strong rule evidence should keep the candidate related without the classifier")
	}
}

func TestRank_TotalScoreDecomposition(t *testing.T) {
	cfg := config.Default()
	defs := testCatalogue()
	index := lexical.BuildIndex(defs, "test")
	scorer := &fakeScorer{
		online: true,
		coarse: map[string]float64{"非効果的呼吸パターン": 0.8, "急性疼痛": 0.5},
		fine:   map[string]float64{"非効果的呼吸パターン": 0.7, "急性疼痛": 0.4},
	}
	r := New(cfg, defs, index, scorer, nil)
	in := assess.New("呼吸困難あり。頻呼吸。創部痛あり。NRS 5。SpO2 88%。")

	out := r.Rank(context.Background(), in)
	w := cfg.Weights
	for _, c := range out.Candidates {
		want := w.FineAI*c.FineScore + w.CoarseAI*c.CoarseScore +
			w.DefSim*c.DefinitionSimilarity + c.RuleRawScore +
			c.CategoryBonus - c.PenaltyTotal()
		if math.Abs(c.TotalScore-want) > 1e-9 {
			t.Errorf("%s: total %.6f != weighted components %.6f", c.Label, c.TotalScore, want)
		}
	}
}

func TestRank_FinePoolSkipsWeakCoarse(t *testing.T) {
	scorer := &fakeScorer{
		online: true,
		coarse: map[string]float64{"非効果的呼吸パターン": 0.8, "急性疼痛": 0.1},
		fine:   map[string]float64{"非効果的呼吸パターン": 0.6},
	}
	r := newTestRanker(t, scorer)
	in := assess.New("呼吸困難と創部痛あり。NRS 5。")

	r.Rank(context.Background(), in)
	for _, label := range scorer.fineCalls {
		if label == "急性疼痛" {
			t.Error("candidates below the coarse threshold must not reach the fine stage")
		}
	}
	found := false
	for _, label := range scorer.fineCalls {
		if label == "非効果的呼吸パターン" {
			found = true
		}
	}
	if !found {
		t.Error("coarse-passing candidate should reach the fine stage")
	}
}

func TestRank_NegationRecordedNotScored(t *testing.T) {
	defs := []models.DiagnosisDefinition{
		{
			Code:                    "00004",
			Label:                   "感染リスク状態",
			Definition:              "病原体が侵入しやすい状態",
			DefiningCharacteristics: "発熱",
			RiskFactors:             "免疫低下",
			DiagnosisState:          "リスク型",
		},
	}
	index := lexical.BuildIndex(defs, "test")
	r := New(config.Default(), defs, index, &fakeScorer{}, nil)
	in := assess.New("発熱なし。経過良好。")

	out := r.Rank(context.Background(), in)
	c := out.Candidates[0]
	if c.RuleRawScore != 0 {
		t.Errorf("negated hit must not score: %v", c.RuleRawScore)
	}
	if got := c.NegatedMatched.DefiningCharacteristics; len(got) != 1 || got[0] != "発熱" {
		t.Errorf("negated hit should be recorded: %+v", c.NegatedMatched)
	}
	weak := false
	for _, p := range c.Penalties {
		if p.Amount > 0 {
			weak = true
		}
	}
	if !weak {
		t.Error("risk-type candidate with no risk hits should carry the weak-evidence penalty")
	}
}

func TestVisible(t *testing.T) {
	cands := []*models.Candidate{
		{Label: "a", Related: true, TotalScore: 3.0},
		{Label: "b", Related: false, TotalScore: 2.0},
		{Label: "c", Related: true, TotalScore: 0},
	}
	vis := Visible(cands, true, 0.20)
	if len(vis) != 1 || vis[0].Label != "a" {
		t.Errorf("visible = %v", vis)
	}
	if got := Visible(cands, false, 0.20); len(got) != 3 {
		t.Errorf("only_related=false must show all, got %d", len(got))
	}
}

func TestVisible_FallbackKeepsTop(t *testing.T) {
	var cands []*models.Candidate
	for i := 0; i < 10; i++ {
		cands = append(cands, &models.Candidate{Related: false, TotalScore: float64(10 - i)})
	}
	vis := Visible(cands, true, 0.20)
	if len(vis) != 3 {
		t.Fatalf("fallback should keep max(3, 20%%) candidates, got %d", len(vis))
	}
	if vis[0].TotalScore != 10 {
		t.Error("fallback must keep the highest-ranked candidates")
	}
}

func TestSortCandidates_TupleOrder(t *testing.T) {
	cands := []*models.Candidate{
		{Label: "low", Related: false, TotalScore: 9},
		{Label: "tie-b", Related: true, TotalScore: 2, FineScore: 0.2},
		{Label: "tie-a", Related: true, TotalScore: 2, FineScore: 0.4},
	}
	sortCandidates(cands)
	if cands[0].Label != "tie-a" || cands[1].Label != "tie-b" || cands[2].Label != "low" {
		t.Errorf("order = %s, %s, %s", cands[0].Label, cands[1].Label, cands[2].Label)
	}
}
