package classifier

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/shindan/internal/models"
	"github.com/hyperjump/shindan/pkg/utils"
)

// Scorer is the semantic-match surface the ranking pipeline consumes.
type Scorer interface {
	Model() string
	Available(ctx context.Context) bool
	Coarse(ctx context.Context, assess string, def *models.DiagnosisDefinition) float64
	Fine(ctx context.Context, assess string, def *models.DiagnosisDefinition, dc, rf, rk []string) (float64, models.TermMatches)
}

// Gateway combines the Ollama client with a response cache.
type Gateway struct {
	client  *Client
	cache   Cache
	snippet int
	logger  *zap.Logger
}

func NewGateway(client *Client, cache Cache, snippetChars int, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Gateway{client: client, cache: cache, snippet: snippetChars, logger: logger}
}

func (g *Gateway) Model() string { return g.client.Model() }

func (g *Gateway) Available(ctx context.Context) bool { return g.client.Available(ctx) }

// Coarse returns the cached or freshly evaluated coarse score. Any failure
// returns 0 without caching, so the next run retries.
func (g *Gateway) Coarse(ctx context.Context, assess string, def *models.DiagnosisDefinition) float64 {
	key := CoarseKey(g.client.Model(), assess, def.Label, def.Definition)
	if score, ok, err := g.cache.GetCoarse(key); err == nil && ok {
		return score
	} else if err != nil {
		g.logger.Debug("coarse cache read failed", zap.Error(err))
	}

	var parsed struct {
		Score float64 `json:"score"`
	}
	user := coarseUser(def.Label, def.Definition, TrimAssessment(assess, g.snippet))
	if err := g.client.askJSON(ctx, systemCoarse, user, 80, &parsed); err != nil {
		g.logger.Debug("coarse evaluation failed",
			zap.String("label", def.Label), zap.Error(err))
		return 0
	}
	score := utils.Clamp01(parsed.Score)
	if err := g.cache.PutCoarse(key, score); err != nil {
		g.logger.Debug("coarse cache write failed", zap.Error(err))
	}
	return score
}

// Fine returns the cached or freshly evaluated fine score plus the per-term
// evidence the model claims to have found. Failures return zero evidence.
func (g *Gateway) Fine(ctx context.Context, assess string, def *models.DiagnosisDefinition, dc, rf, rk []string) (float64, models.TermMatches) {
	key := FineKey(g.client.Model(), assess, def.Label, def.Definition, dc, rf, rk)
	if res, ok, err := g.cache.GetFine(key); err == nil && ok {
		return res.Score, res.Evidence
	} else if err != nil {
		g.logger.Debug("fine cache read failed", zap.Error(err))
	}

	var parsed struct {
		Score   float64 `json:"score"`
		Matched struct {
			DC []string `json:"診断指標"`
			RF []string `json:"関連因子"`
			RK []string `json:"危険因子"`
		} `json:"matched"`
	}
	user := fineUser(def.Label, def.Definition, dc, rf, rk, TrimAssessment(assess, g.snippet))
	if err := g.client.askJSON(ctx, systemFine, user, 80, &parsed); err != nil {
		g.logger.Debug("fine evaluation failed",
			zap.String("label", def.Label), zap.Error(err))
		return 0, models.TermMatches{}
	}
	res := FineResult{
		Score: utils.Clamp01(parsed.Score),
		Evidence: models.TermMatches{
			DefiningCharacteristics: cleanTerms(parsed.Matched.DC),
			RelatedFactors:          cleanTerms(parsed.Matched.RF),
			RiskFactors:             cleanTerms(parsed.Matched.RK),
		},
	}
	if err := g.cache.PutFine(key, res); err != nil {
		g.logger.Debug("fine cache write failed", zap.Error(err))
	}
	return res.Score, res.Evidence
}

func cleanTerms(raw []string) []string {
	var out []string
	for _, t := range raw {
		if s := strings.TrimSpace(utils.NFKC(t)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
