package config

import (
	"os"
	"strconv"
	"strings"
)

// ApplyEnv overlays environment overrides onto cfg. Unset or unparsable
// variables leave the existing value in place.
func ApplyEnv(cfg *Config) {
	envInt("SHINDAN_AI_TOPK", &cfg.Classify.TopK)
	envFloat("SHINDAN_COARSE_MIN_PASS", &cfg.Classify.CoarseMinPass)
	envFloat("SHINDAN_FINE_MIN_PASS", &cfg.Classify.FineMinPass)
	envFloat("SHINDAN_EARLY_ACCEPT", &cfg.Classify.EarlyAccept)
	envInt("SHINDAN_COARSE_CONCURRENCY", &cfg.Classify.CoarseConcurrency)
	envInt("SHINDAN_FINE_CONCURRENCY", &cfg.Classify.FineConcurrency)
	envFloat("SHINDAN_COARSE_BUDGET_SEC", &cfg.Classify.CoarseBudgetSec)
	envFloat("SHINDAN_FINE_BUDGET_SEC", &cfg.Classify.FineBudgetSec)
	envInt("SHINDAN_AI_SNIPPET", &cfg.Classify.SnippetChars)

	envFloat("SHINDAN_MIN_DEF_SIM", &cfg.Cutoff.MinDefSim)
	envFloat("SHINDAN_MIN_RULE", &cfg.Cutoff.MinRuleScore)

	envFloat("SHINDAN_FUZZY_TH", &cfg.Match.FuzzyThreshold)
	envInt("SHINDAN_TOKEN_MINLEN", &cfg.Match.TokenMinLen)

	envFloat("SHINDAN_RELATED_FLOOR", &cfg.Weights.RelatedFloor)

	envInt("SHINDAN_SHOW_N", &cfg.Output.ShowN)
	envBoolPtr("SHINDAN_ONLY_RELATED", &cfg.Output.OnlyRelated)
	envFloat("SHINDAN_TOP_FRAC", &cfg.Output.TopFraction)

	envBoolPtr("SHINDAN_STRICT_SEX", &cfg.Filters.StrictSex)
	envBoolPtr("SHINDAN_STRICT_AGE", &cfg.Filters.StrictAge)
	envBoolPtr("SHINDAN_STRICT_CATEGORY", &cfg.Filters.StrictCategory)
	envBoolPtr("SHINDAN_STRICT_CARETARGET", &cfg.Filters.StrictCareTarget)

	if v := os.Getenv("OLLAMA_BASE"); v != "" {
		cfg.Ollama.BaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		cfg.Ollama.Model = v
	}
	envFloat("OLLAMA_CONNECT_TIMEOUT", &cfg.Ollama.ConnectTimeoutSec)
	envFloat("OLLAMA_READ_TIMEOUT", &cfg.Ollama.ReadTimeoutSec)
	envInt("OLLAMA_RETRY", &cfg.Ollama.Retry)
}

func envInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(name string, dst *float64) {
	if v := os.Getenv(name); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

// envBoolPtr accepts "1"/"true"/"0"/"false" (case-insensitive).
func envBoolPtr(name string, dst **bool) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		t := true
		*dst = &t
	case "0", "false", "no":
		f := false
		*dst = &f
	}
}
