package catalog

import (
	"encoding/json"
	"os"

	"github.com/hyperjump/shindan/internal/models"
)

// rowCache is the on-disk row-cache format: the source signature plus the
// parsed definitions.
type rowCache struct {
	Sig  string                       `json:"sig"`
	Rows []models.DiagnosisDefinition `json:"rows"`
}

// readCache returns the cached definitions when the cache exists and its
// signature matches sig. A corrupt cache is treated as a miss.
func (l *Loader) readCache(sig string) ([]models.DiagnosisDefinition, bool) {
	if l.cachePath == "" {
		return nil, false
	}
	data, err := os.ReadFile(l.cachePath)
	if err != nil {
		return nil, false
	}
	var c rowCache
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, false
	}
	if c.Sig != sig || c.Rows == nil {
		return nil, false
	}
	return c.Rows, true
}

// writeCache persists the parse result keyed by sig. Write failures are
// ignored; the cache is an optimization, not a requirement.
func (l *Loader) writeCache(sig string, defs []models.DiagnosisDefinition) {
	if l.cachePath == "" {
		return
	}
	data, err := json.Marshal(rowCache{Sig: sig, Rows: defs})
	if err != nil {
		return
	}
	_ = os.WriteFile(l.cachePath, data, 0644)
}
