package config

// ApplyDefaults sets default values for any zero values in cfg.
// Weight and threshold defaults follow the tuning the engine shipped with;
// none of them is clinically validated.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8086
	}
	if cfg.Storage.CataloguePath == "" {
		cfg.Storage.CataloguePath = "nanda_db.xlsx"
	}
	if cfg.Storage.RowCachePath == "" {
		cfg.Storage.RowCachePath = "nanda_rows_cache.json"
	}
	if cfg.Storage.VectorCachePath == "" {
		cfg.Storage.VectorCachePath = "nanda_vec_cache.json"
	}
	if cfg.Storage.ResponseCachePath == "" {
		cfg.Storage.ResponseCachePath = "diagnosis_ai_cache.db"
	}
	if cfg.Storage.ResultTextPath == "" {
		cfg.Storage.ResultTextPath = "diagnosis_result.txt"
	}
	if cfg.Storage.ResultJSONPath == "" {
		cfg.Storage.ResultJSONPath = "diagnosis_candidates.json"
	}
	if cfg.Storage.FinalTextPath == "" {
		cfg.Storage.FinalTextPath = "diagnosis_final.txt"
	}

	if cfg.Classify.TopK == 0 {
		cfg.Classify.TopK = 40
	}
	if cfg.Classify.CoarseMinPass == 0 {
		cfg.Classify.CoarseMinPass = 0.30
	}
	if cfg.Classify.FineMinPass == 0 {
		cfg.Classify.FineMinPass = 0.35
	}
	if cfg.Classify.EarlyAccept == 0 {
		cfg.Classify.EarlyAccept = 0.82
	}
	if cfg.Classify.CoarseConcurrency == 0 {
		cfg.Classify.CoarseConcurrency = 4
	}
	if cfg.Classify.FineConcurrency == 0 {
		cfg.Classify.FineConcurrency = 3
	}
	if cfg.Classify.SnippetChars == 0 {
		cfg.Classify.SnippetChars = 1500
	}

	if cfg.Cutoff.MinDefSim == 0 {
		cfg.Cutoff.MinDefSim = 0.05
	}
	if cfg.Cutoff.MinRuleScore == 0 {
		cfg.Cutoff.MinRuleScore = 0.60
	}

	if cfg.Weights.DefSim == 0 {
		cfg.Weights.DefSim = 2.0
	}
	if cfg.Weights.CoarseAI == 0 {
		cfg.Weights.CoarseAI = 3.5
	}
	if cfg.Weights.FineAI == 0 {
		cfg.Weights.FineAI = 4.5
	}
	if cfg.Weights.RuleDC == 0 {
		cfg.Weights.RuleDC = 1.6
	}
	if cfg.Weights.RuleRF == 0 {
		cfg.Weights.RuleRF = 1.2
	}
	if cfg.Weights.RuleRK == 0 {
		cfg.Weights.RuleRK = 1.4
	}
	if cfg.Weights.HintResp == 0 {
		cfg.Weights.HintResp = 1.0
	}
	if cfg.Weights.CatMatch == 0 {
		cfg.Weights.CatMatch = 0.8
	}
	if cfg.Weights.PenaltySetting == 0 {
		cfg.Weights.PenaltySetting = 0.8
	}
	if cfg.Weights.PenaltyWeakHits == 0 {
		cfg.Weights.PenaltyWeakHits = 0.8
	}
	if cfg.Weights.PenaltyContradict == 0 {
		cfg.Weights.PenaltyContradict = 1.0
	}
	if cfg.Weights.RelatedFloor == 0 {
		cfg.Weights.RelatedFloor = 2.0
	}
	if cfg.Weights.RelatedMinDefSim == 0 {
		cfg.Weights.RelatedMinDefSim = 0.12
	}
	if cfg.Weights.RelatedMinRule == 0 {
		cfg.Weights.RelatedMinRule = 1.5
	}

	if cfg.Match.FuzzyThreshold == 0 {
		cfg.Match.FuzzyThreshold = 0.86
	}
	if cfg.Match.TokenMinLen == 0 {
		cfg.Match.TokenMinLen = 2
	}

	if cfg.Output.ShowN == 0 {
		cfg.Output.ShowN = 40
	}
	if cfg.Output.TopFraction == 0 {
		cfg.Output.TopFraction = 0.20
	}

	if cfg.Ollama.BaseURL == "" {
		cfg.Ollama.BaseURL = "http://127.0.0.1:11434"
	}
	if cfg.Ollama.Model == "" {
		cfg.Ollama.Model = "qwen2.5:7b-instruct"
	}
	if cfg.Ollama.ConnectTimeoutSec == 0 {
		cfg.Ollama.ConnectTimeoutSec = 5
	}
	if cfg.Ollama.ReadTimeoutSec == 0 {
		cfg.Ollama.ReadTimeoutSec = 20
	}
	if cfg.Ollama.Retry == 0 {
		cfg.Ollama.Retry = 1
	}
}
