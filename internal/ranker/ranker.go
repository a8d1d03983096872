// Package ranker runs the candidate pipeline: lexical and rule pre-scoring,
// hard filtering, the staged semantic classification of the top candidates,
// penalty application and the final composite ordering.
package ranker

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/shindan/internal/classifier"
	"github.com/hyperjump/shindan/internal/config"
	"github.com/hyperjump/shindan/internal/filters"
	"github.com/hyperjump/shindan/internal/lexical"
	"github.com/hyperjump/shindan/internal/models"
	"github.com/hyperjump/shindan/internal/rules"
)

// Ranker scores a whole catalogue against one assessment.
type Ranker struct {
	cfg     *config.Config
	defs    []models.DiagnosisDefinition
	index   *lexical.Index
	matcher *rules.Matcher
	gate    *filters.Engine
	scorer  classifier.Scorer
	logger  *zap.Logger
}

func New(cfg *config.Config, defs []models.DiagnosisDefinition, index *lexical.Index, scorer classifier.Scorer, logger *zap.Logger) *Ranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	matcher := rules.NewMatcher(rules.Options{
		WeightDC:       cfg.Weights.RuleDC,
		WeightRF:       cfg.Weights.RuleRF,
		WeightRK:       cfg.Weights.RuleRK,
		WeightHint:     cfg.Weights.HintResp,
		FuzzyThreshold: cfg.Match.FuzzyThreshold,
		TokenMinLen:    cfg.Match.TokenMinLen,
	})
	gate := filters.New(filters.Options{
		StrictSex:         cfg.Filters.StrictSexOrDefault(),
		StrictAge:         cfg.Filters.StrictAgeOrDefault(),
		StrictCareTarget:  cfg.Filters.StrictCareTargetOrDefault(),
		StrictCategory:    cfg.Filters.StrictCategoryOrDefault(),
		PenaltySetting:    cfg.Weights.PenaltySetting,
		PenaltyWeakHits:   cfg.Weights.PenaltyWeakHits,
		PenaltyContradict: cfg.Weights.PenaltyContradict,
	})
	return &Ranker{
		cfg:     cfg,
		defs:    defs,
		index:   index,
		matcher: matcher,
		gate:    gate,
		scorer:  scorer,
		logger:  logger,
	}
}

// Outcome is one full ranking run over the catalogue.
type Outcome struct {
	// Candidates holds every definition, scored, sorted and ranked.
	Candidates []*models.Candidate
	// ClassifierAvailable records whether the semantic stages ran.
	ClassifierAvailable bool
}

// Rank scores every definition against the assessment and returns the full
// sorted candidate list. The classifier stages only run for the top
// pre-scored candidates; when the classifier is unreachable the lexical and
// rule scores still produce a complete ordering.
func (r *Ranker) Rank(ctx context.Context, in *models.AssessmentInput) *Outcome {
	n := len(r.defs)
	inputVec := r.index.InputVector(in.Normalized)

	defSim := make([]float64, n)
	ruleRes := make([]rules.Result, n)
	filterRes := make([][]models.FilterResult, n)
	hardOK := make([]bool, n)
	catBonus := make([]float64, n)
	for i := range r.defs {
		defSim[i] = r.index.Score(inputVec, i)
		ruleRes[i] = r.matcher.Match(in, &r.defs[i])
		filterRes[i], hardOK[i] = r.gate.Evaluate(in, &r.defs[i])
		if filters.CategoryMatched(filterRes[i]) {
			catBonus[i] = r.cfg.Weights.CatMatch
		}
	}

	eligible := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if hardOK[i] {
			eligible = append(eligible, i)
		}
	}
	if len(eligible) == 0 {
		r.logger.Warn("every candidate failed the hard filters, keeping all")
		for i := 0; i < n; i++ {
			eligible = append(eligible, i)
		}
	}

	kept := make([]int, 0, len(eligible))
	for _, i := range eligible {
		if defSim[i] < r.cfg.Cutoff.MinDefSim && ruleRes[i].RawScore < r.cfg.Cutoff.MinRuleScore {
			continue
		}
		kept = append(kept, i)
	}
	if len(kept) == 0 {
		kept = eligible
	}

	quick := func(i int) float64 {
		return 0.6*defSim[i] +
			0.4*math.Min(1.0, ruleRes[i].RawScore/4.0) +
			0.1*catBonus[i]
	}
	sort.SliceStable(kept, func(a, b int) bool { return quick(kept[a]) > quick(kept[b]) })

	var aiTargets []int
	if k := r.cfg.Classify.TopK; k > 0 {
		if k > len(kept) {
			k = len(kept)
		}
		aiTargets = kept[:k]
	}

	coarse := make([]float64, n)
	fineScore := make([]float64, n)
	fineEv := make([]models.TermMatches, n)
	fineDone := make([]bool, n)

	available := len(aiTargets) > 0 && r.scorer.Available(ctx)
	if available {
		r.runStage(ctx, r.cfg.Classify.CoarseBudgetSec, r.cfg.Classify.CoarseConcurrency, aiTargets,
			func(ctx context.Context, i int) {
				coarse[i] = r.scorer.Coarse(ctx, in.Text, &r.defs[i])
			})

		byCoarse := append([]int(nil), aiTargets...)
		sort.SliceStable(byCoarse, func(a, b int) bool { return coarse[byCoarse[a]] > coarse[byCoarse[b]] })
		cut := int(math.Ceil(0.6 * float64(len(byCoarse))))
		if cut < 1 {
			cut = 1
		}
		finePool := make([]int, 0, cut)
		for _, i := range byCoarse[:cut] {
			if coarse[i] >= r.cfg.Classify.CoarseMinPass {
				finePool = append(finePool, i)
			}
		}
		r.logger.Debug("classifier stages selected",
			zap.Int("coarse_targets", len(aiTargets)), zap.Int("fine_pool", len(finePool)))

		minLen := r.cfg.Match.TokenMinLen
		r.runStage(ctx, r.cfg.Classify.FineBudgetSec, r.cfg.Classify.FineConcurrency, finePool,
			func(ctx context.Context, i int) {
				def := &r.defs[i]
				dc := rules.SplitTerms(def.DefiningCharacteristics, minLen)
				rf := rules.SplitTerms(def.RelatedFactors, minLen)
				rk := rules.SplitTerms(def.RiskFactors, minLen)
				fineScore[i], fineEv[i] = r.scorer.Fine(ctx, in.Text, def, dc, rf, rk)
				fineDone[i] = true
			})

		// A very strong coarse score stands in for a fine score the budget
		// never produced.
		for _, i := range aiTargets {
			if !fineDone[i] && coarse[i] >= r.cfg.Classify.EarlyAccept {
				fineScore[i] = coarse[i]
			}
		}
	}

	cands := make([]*models.Candidate, n)
	for i := range r.defs {
		cands[i] = r.buildCandidate(in, i, defSim[i], ruleRes[i], filterRes[i], hardOK[i],
			coarse[i], fineScore[i], fineEv[i], catBonus[i])
	}

	sortCandidates(cands)
	for rank, c := range cands {
		c.Rank = rank + 1
	}
	return &Outcome{Candidates: cands, ClassifierAvailable: available}
}

func (r *Ranker) buildCandidate(in *models.AssessmentInput, i int, ds float64, rule rules.Result,
	eligibility []models.FilterResult, hardPass bool, coarse, fine float64,
	semEv models.TermMatches, catBonus float64) *models.Candidate {

	def := &r.defs[i]
	c := &models.Candidate{
		Code:                 orDefault(strings.TrimSpace(def.Code), "00000"),
		Label:                orDefault(strings.TrimSpace(def.Label), "(診断名未設定)"),
		Definition:           def.Definition,
		DefinitionSimilarity: ds,
		RuleRawScore:         rule.RawScore,
		CoarseScore:          coarse,
		FineScore:            fine,
		Matched:              rule.Evidence,
		SemanticMatched:      semEv,
		NegatedMatched:       rule.Negated,
		Eligibility:          eligibility,
		HardPass:             hardPass,
		CategoryBonus:        catBonus,
		Source:               *def,
	}

	if p, ok := r.gate.SettingPenalty(in, def); ok {
		c.Penalties = append(c.Penalties, p)
	}
	dcHits := len(rule.Evidence.DefiningCharacteristics) + len(semEv.DefiningCharacteristics)
	rkHits := len(rule.Evidence.RiskFactors) + len(semEv.RiskFactors)
	if p, ok := r.gate.WeakEvidencePenalty(def, dcHits, rkHits); ok {
		c.Penalties = append(c.Penalties, p)
	}
	if p, ok := r.gate.ContradictionPenalty(in, def); ok {
		c.Penalties = append(c.Penalties, p)
	}

	w := r.cfg.Weights
	c.TotalScore = w.FineAI*fine + w.CoarseAI*coarse + w.DefSim*ds +
		rule.RawScore + catBonus - c.PenaltyTotal()

	relatedBasic := fine >= r.cfg.Classify.FineMinPass ||
		(coarse >= r.cfg.Classify.CoarseMinPass &&
			(ds >= w.RelatedMinDefSim || rule.RawScore >= w.RelatedMinRule))
	c.Related = hardPass && (relatedBasic || c.TotalScore >= w.RelatedFloor)

	c.Reasons = append(c.Reasons, rule.Reasons...)
	for _, f := range eligibility {
		if f.Reason == "" {
			continue
		}
		prefix := "OK: "
		if !f.Pass {
			prefix = "NG: "
		}
		c.Reasons = append(c.Reasons, prefix+f.Reason)
	}
	for _, p := range c.Penalties {
		c.Reasons = append(c.Reasons, fmt.Sprintf("penalty: %s (-%.1f)", p.Reason, p.Amount))
	}
	return c
}

// runStage fans targets out over a bounded worker pool. A positive budget
// becomes a stage deadline; jobs that have not started when it expires are
// skipped, leaving their slots at zero.
func (r *Ranker) runStage(ctx context.Context, budgetSec float64, workers int, targets []int, fn func(context.Context, int)) {
	if len(targets) == 0 {
		return
	}
	if workers < 1 {
		workers = 1
	}
	if budgetSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(budgetSec*float64(time.Second)))
		defer cancel()
	}
	jobs := make(chan int, len(targets))
	for _, i := range targets {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				fn(ctx, i)
			}
		}()
	}
	wg.Wait()
}

// sortCandidates orders by the ranking tuple: related first, then total
// score, fine, coarse, definition similarity and raw rule score, all
// descending. Scores are rounded so float noise cannot flip near-ties.
func sortCandidates(cands []*models.Candidate) {
	sort.SliceStable(cands, func(a, b int) bool {
		ca, cb := cands[a], cands[b]
		if ca.Related != cb.Related {
			return ca.Related
		}
		if x, y := round3(ca.TotalScore), round3(cb.TotalScore); x != y {
			return x > y
		}
		if x, y := round3(ca.FineScore), round3(cb.FineScore); x != y {
			return x > y
		}
		if x, y := round3(ca.CoarseScore), round3(cb.CoarseScore); x != y {
			return x > y
		}
		if x, y := round4(ca.DefinitionSimilarity), round4(cb.DefinitionSimilarity); x != y {
			return x > y
		}
		return round3(ca.RuleRawScore) > round3(cb.RuleRawScore)
	})
}

// Visible applies the output policy: related candidates with a positive
// score, falling back to the top slice when nothing qualifies so the report
// is never empty.
func Visible(cands []*models.Candidate, onlyRelated bool, topFraction float64) []*models.Candidate {
	if !onlyRelated {
		return cands
	}
	var vis []*models.Candidate
	for _, c := range cands {
		if c.Related && c.TotalScore > 0 {
			vis = append(vis, c)
		}
	}
	if len(vis) == 0 && len(cands) > 0 {
		k := int(float64(len(cands)) * topFraction)
		if k < 3 {
			k = 3
		}
		if k > len(cands) {
			k = len(cands)
		}
		vis = cands[:k]
	}
	return vis
}

func round3(x float64) float64 { return math.Round(x*1000) / 1000 }
func round4(x float64) float64 { return math.Round(x*10000) / 10000 }

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
