package lexical

import (
	"encoding/json"
	"os"

	"go.uber.org/zap"

	"github.com/hyperjump/shindan/internal/models"
	"github.com/hyperjump/shindan/pkg/utils"
)

// Index is the TF-IDF space over all definition prose: the shared IDF
// weights plus one cached vector per definition, in catalogue order.
type Index struct {
	// Sig is the catalogue signature the index was built from.
	Sig     string               `json:"sig"`
	IDF     map[string]float64   `json:"idf"`
	Vectors []map[string]float64 `json:"vectors"`
}

// BuildIndex tokenizes every definition's prose and computes the IDF
// weights and per-definition TF-IDF vectors.
func BuildIndex(defs []models.DiagnosisDefinition, sig string) *Index {
	docs := make([][]string, len(defs))
	for i, d := range defs {
		docs[i] = Tokenize(utils.NFKC(d.Definition))
	}
	idf := InverseDocFrequency(docs)
	vecs := make([]map[string]float64, len(defs))
	for i, toks := range docs {
		vecs[i] = Vector(toks, idf)
	}
	return &Index{Sig: sig, IDF: idf, Vectors: vecs}
}

// Score returns the cosine similarity between the input vector and the
// definition vector at position i. Out-of-range positions score 0.
func (ix *Index) Score(input map[string]float64, i int) float64 {
	if i < 0 || i >= len(ix.Vectors) {
		return 0
	}
	return Cosine(input, ix.Vectors[i])
}

// InputVector tokenizes and vectorizes the normalized assessment text
// against this index's IDF weights.
func (ix *Index) InputVector(normalizedText string) map[string]float64 {
	return Vector(Tokenize(normalizedText), ix.IDF)
}

// LoadOrBuild returns a cached index from cachePath when its signature
// matches sig, otherwise builds a fresh index and writes the cache. The
// cache shares the catalogue signature, so both invalidate together.
func LoadOrBuild(defs []models.DiagnosisDefinition, sig, cachePath string, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cachePath != "" {
		if data, err := os.ReadFile(cachePath); err == nil {
			var ix Index
			if json.Unmarshal(data, &ix) == nil && ix.Sig == sig && len(ix.Vectors) == len(defs) {
				logger.Debug("definition vector cache hit", zap.String("path", cachePath))
				return &ix
			}
		}
	}
	ix := BuildIndex(defs, sig)
	if cachePath != "" {
		if data, err := json.Marshal(ix); err == nil {
			_ = os.WriteFile(cachePath, data, 0644)
		}
	}
	logger.Info("definition vector space built",
		zap.Int("definitions", len(defs)), zap.Int("terms", len(ix.IDF)))
	return ix
}
