package models

import "time"

// TermMatches holds matched phrases per catalogue term category.
type TermMatches struct {
	DefiningCharacteristics []string `json:"defining_characteristics"`
	RelatedFactors          []string `json:"related_factors"`
	RiskFactors             []string `json:"risk_factors"`
}

// Total returns the total number of matched terms across all categories.
func (t TermMatches) Total() int {
	return len(t.DefiningCharacteristics) + len(t.RelatedFactors) + len(t.RiskFactors)
}

// Evidence is the rule-matcher evidence bundle: terms drawn from the
// definition prose plus the affirmed hits per term category. Each list is
// deduplicated and insertion-ordered.
type Evidence struct {
	DefinitionTerms []string `json:"definition_terms"`
	TermMatches
}

// FilterResult records one hard-filter outcome with its audit reason.
type FilterResult struct {
	Name   string `json:"name"`
	Pass   bool   `json:"pass"`
	Reason string `json:"reason,omitempty"`
}

// Penalty is one soft deduction from the total score.
type Penalty struct {
	Amount float64 `json:"amount"`
	Reason string  `json:"reason"`
}

// Candidate is one scored pairing of a diagnosis definition with the
// assessment input. Fully recomputed each run.
type Candidate struct {
	Code       string `json:"code"`
	Label      string `json:"label"`
	Definition string `json:"definition"`

	DefinitionSimilarity float64 `json:"definition_similarity"`
	RuleRawScore         float64 `json:"rule_raw_score"`
	// CoarseScore/FineScore default to 0 when the stage was never attempted.
	CoarseScore float64 `json:"coarse_score"`
	FineScore   float64 `json:"fine_score"`

	// Matched is the rule-based (literal/synonym/fuzzy) evidence.
	Matched Evidence `json:"matched"`
	// SemanticMatched is the fine-stage classifier evidence.
	SemanticMatched TermMatches `json:"semantic_matched"`
	// NegatedMatched are term hits whose context read as normal/negated;
	// reported for audit but excluded from the rule score.
	NegatedMatched TermMatches `json:"negated_matched"`

	Eligibility []FilterResult `json:"eligibility"`
	// HardPass is true when every hard filter passed.
	HardPass bool `json:"hard_pass"`

	Penalties     []Penalty `json:"penalties"`
	CategoryBonus float64   `json:"category_bonus"`
	TotalScore    float64   `json:"total_score"`
	// Related is the "worth showing" heuristic outcome.
	Related bool `json:"related"`
	// Rank is the 1-based position after sorting.
	Rank int `json:"rank"`

	Reasons []string `json:"reasons"`
	// Source carries the remaining catalogue metadata for downstream review.
	Source DiagnosisDefinition `json:"source"`
}

// PenaltyTotal sums this candidate's penalty amounts.
func (c *Candidate) PenaltyTotal() float64 {
	var sum float64
	for _, p := range c.Penalties {
		sum += p.Amount
	}
	return sum
}

// RunMeta is the run metadata attached to the machine-readable record.
type RunMeta struct {
	RunID               string    `json:"run_id"`
	GeneratedAt         time.Time `json:"generated_at"`
	CataloguePath       string    `json:"catalogue_path"`
	Model               string    `json:"model"`
	ClassifierReachable bool      `json:"classifier_reachable"`
	TopK                int       `json:"top_k"`
	CoarseMinPass       float64   `json:"coarse_min_pass"`
	FineMinPass         float64   `json:"fine_min_pass"`
	MinDefSim           float64   `json:"min_def_sim"`
	MinRuleScore        float64   `json:"min_rule_score"`
	OnlyRelated         bool      `json:"only_related"`
}

// RunRecord is the machine-readable output: every scored candidate (not
// just the visible subset) plus run metadata. A downstream review step
// matches human selections against it.
type RunRecord struct {
	Meta       RunMeta      `json:"meta"`
	Candidates []*Candidate `json:"candidates"`
}
