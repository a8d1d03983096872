// Package assess derives the immutable per-run AssessmentInput from the
// free-text S/O body: demographics, vitals, care settings and topical
// categories, all computed once and passed explicitly downstream.
package assess

import (
	"github.com/hyperjump/shindan/internal/models"
	"github.com/hyperjump/shindan/pkg/utils"
)

// New derives an AssessmentInput from the assembled assessment text.
// The result is treated as read-only for the rest of the run.
func New(text string) *models.AssessmentInput {
	normalized := utils.Normalize(text)
	return &models.AssessmentInput{
		Text:         text,
		Normalized:   normalized,
		Demographics: ParseDemographics(utils.NFKC(text)),
		Vitals:       ParseVitals(normalized),
		Settings:     SettingsInText(text),
		Categories:   CategoriesInText(text),
	}
}
