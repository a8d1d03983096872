// Package config provides configuration loading and structs for the shindan engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Classify ClassifyConfig `yaml:"classify"`
	Cutoff   CutoffConfig   `yaml:"cutoff"`
	Weights  WeightsConfig  `yaml:"weights"`
	Match    MatchConfig    `yaml:"match"`
	Filters  FiltersConfig  `yaml:"filters"`
	Output   OutputConfig   `yaml:"output"`
	Ollama   OllamaConfig   `yaml:"ollama"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the catalogue source, caches and outputs.
type StorageConfig struct {
	CataloguePath     string `yaml:"catalogue_path"`
	RowCachePath      string `yaml:"row_cache_path"`
	VectorCachePath   string `yaml:"vector_cache_path"`
	ResponseCachePath string `yaml:"response_cache_path"`
	ResultTextPath    string `yaml:"result_text_path"`
	ResultJSONPath    string `yaml:"result_json_path"`
	FinalTextPath     string `yaml:"final_text_path"`
}

// ClassifyConfig holds semantic-classifier staging settings.
type ClassifyConfig struct {
	// TopK is the number of pre-ranked candidates eligible for the coarse stage.
	TopK          int     `yaml:"top_k"`
	CoarseMinPass float64 `yaml:"coarse_min_pass"`
	FineMinPass   float64 `yaml:"fine_min_pass"`
	// EarlyAccept is the coarse score at which a candidate skips the fine stage.
	EarlyAccept       float64 `yaml:"early_accept"`
	CoarseConcurrency int     `yaml:"coarse_concurrency"`
	FineConcurrency   int     `yaml:"fine_concurrency"`
	// Budgets are aggregate wall-clock limits per stage in seconds; 0 disables.
	CoarseBudgetSec float64 `yaml:"coarse_budget_sec"`
	FineBudgetSec   float64 `yaml:"fine_budget_sec"`
	// SnippetChars caps the assessment excerpt sent to the classifier.
	SnippetChars int `yaml:"snippet_chars"`
}

// CutoffConfig holds the loose topical cutoff thresholds.
type CutoffConfig struct {
	MinDefSim    float64 `yaml:"min_def_sim"`
	MinRuleScore float64 `yaml:"min_rule_score"`
}

// WeightsConfig holds score weights, penalties and the related floor.
type WeightsConfig struct {
	DefSim   float64 `yaml:"def_sim"`
	CoarseAI float64 `yaml:"coarse_ai"`
	FineAI   float64 `yaml:"fine_ai"`
	RuleDC   float64 `yaml:"rule_dc"`
	RuleRF   float64 `yaml:"rule_rf"`
	RuleRK   float64 `yaml:"rule_rk"`
	HintResp float64 `yaml:"hint_resp"`
	CatMatch float64 `yaml:"cat_match"`

	PenaltySetting    float64 `yaml:"penalty_setting"`
	PenaltyWeakHits   float64 `yaml:"penalty_weak_hits"`
	PenaltyContradict float64 `yaml:"penalty_contradict"`

	// RelatedFloor is the absolute total-score floor of the "worth showing"
	// heuristic. Tunable; not clinically validated.
	RelatedFloor float64 `yaml:"related_floor"`
	// RelatedMinDefSim/RelatedMinRule gate the coarse-based related clause.
	RelatedMinDefSim float64 `yaml:"related_min_def_sim"`
	RelatedMinRule   float64 `yaml:"related_min_rule"`
}

// MatchConfig holds fuzzy-matching settings.
type MatchConfig struct {
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
	TokenMinLen    int     `yaml:"token_min_len"`
}

// FiltersConfig holds strict/permissive flags for the hard filters.
// Unset flags default to strict.
type FiltersConfig struct {
	StrictSex        *bool `yaml:"strict_sex"`
	StrictAge        *bool `yaml:"strict_age"`
	StrictCategory   *bool `yaml:"strict_category"`
	StrictCareTarget *bool `yaml:"strict_care_target"`
}

// StrictSexOrDefault returns the sex-filter strictness; defaults to true.
func (f *FiltersConfig) StrictSexOrDefault() bool { return boolOrTrue(f.StrictSex) }

// StrictAgeOrDefault returns the age-filter strictness; defaults to true.
func (f *FiltersConfig) StrictAgeOrDefault() bool { return boolOrTrue(f.StrictAge) }

// StrictCategoryOrDefault returns the category-filter strictness; defaults to true.
func (f *FiltersConfig) StrictCategoryOrDefault() bool { return boolOrTrue(f.StrictCategory) }

// StrictCareTargetOrDefault returns the care-target strictness; defaults to true.
func (f *FiltersConfig) StrictCareTargetOrDefault() bool { return boolOrTrue(f.StrictCareTarget) }

func boolOrTrue(p *bool) bool {
	if p != nil {
		return *p
	}
	return true
}

// OutputConfig holds visibility settings for the rendered report.
type OutputConfig struct {
	// ShowN caps the candidates rendered in the text report.
	ShowN int `yaml:"show_n"`
	// OnlyRelated hides candidates that fail the related heuristic.
	// Defaults to true when unset.
	OnlyRelated *bool `yaml:"only_related"`
	// TopFraction is the fallback fraction shown when the related set is empty.
	TopFraction float64 `yaml:"top_fraction"`
}

// OnlyRelatedOrDefault returns the visibility mode; defaults to true.
func (o *OutputConfig) OnlyRelatedOrDefault() bool { return boolOrTrue(o.OnlyRelated) }

// OllamaConfig holds the external classifier endpoint settings.
type OllamaConfig struct {
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	ConnectTimeoutSec float64 `yaml:"connect_timeout_sec"`
	ReadTimeoutSec    float64 `yaml:"read_timeout_sec"`
	Retry             int     `yaml:"retry"`
}

// Load reads and parses the config file at path, applies defaults, expands
// relative storage paths against the config directory, and overlays
// environment overrides. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	ApplyEnv(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.CataloguePath = expandPath(cfg.Storage.CataloguePath, configDir)
	cfg.Storage.RowCachePath = expandPath(cfg.Storage.RowCachePath, configDir)
	cfg.Storage.VectorCachePath = expandPath(cfg.Storage.VectorCachePath, configDir)
	cfg.Storage.ResponseCachePath = expandPath(cfg.Storage.ResponseCachePath, configDir)
	cfg.Storage.ResultTextPath = expandPath(cfg.Storage.ResultTextPath, configDir)
	cfg.Storage.ResultJSONPath = expandPath(cfg.Storage.ResultJSONPath, configDir)
	cfg.Storage.FinalTextPath = expandPath(cfg.Storage.FinalTextPath, configDir)

	return &cfg, nil
}

// Default returns a configuration with all defaults and environment
// overrides applied, without reading a file. Used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	ApplyEnv(cfg)
	return cfg
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are left for the working directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	return path
}
