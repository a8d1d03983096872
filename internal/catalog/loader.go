// Package catalog loads the diagnosis-definition catalogue from its xlsx
// source into typed records, with a signature-keyed cache to avoid
// re-parsing unchanged data.
package catalog

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/shindan/internal/models"
)

// columnSynonyms maps catalogue column headers (English canonical names and
// the Japanese authoring-language headers) to struct field keys.
var columnSynonyms = map[string]string{
	"code": "code", "コード": "code", "diagnosis_code": "code",
	"label": "label", "診断名": "label", "name": "label",
	"definition": "definition", "定義": "definition",
	"defining_characteristics": "defining_characteristics", "診断指標": "defining_characteristics",
	"related_factors": "related_factors", "関連因子": "related_factors",
	"risk_factors": "risk_factors", "危険因子": "risk_factors",
	"priority_hint": "priority_hint", "優先ヒント": "priority_hint",
	"primary_focus": "primary_focus", "一次焦点": "primary_focus",
	"secondary_focus": "secondary_focus", "二次焦点": "secondary_focus",
	"care_target": "care_target", "ケア対象": "care_target",
	"anatomical_site": "anatomical_site", "解剖学的部位": "anatomical_site",
	"age_min": "age_min", "年齢下限": "age_min",
	"age_max": "age_max", "年齢上限": "age_max",
	"clinical_course": "clinical_course", "臨床経過": "clinical_course",
	"diagnosis_state": "diagnosis_state", "診断の状態": "diagnosis_state",
	"situational_constraints": "situational_constraints", "状況的制約": "situational_constraints",
	"domain": "domain", "領域": "domain",
	"class": "class", "分類": "class",
	"judge": "judge", "判断": "judge",
}

var headerJunk = regexp.MustCompile(`[（）()\s]`)

// canonicalColumn resolves a raw header cell to its canonical field key.
// Unknown headers resolve to themselves (and are then ignored).
func canonicalColumn(header string) string {
	h := strings.TrimSpace(header)
	if key, ok := columnSynonyms[h]; ok {
		return key
	}
	h2 := strings.ToLower(headerJunk.ReplaceAllString(h, ""))
	if key, ok := columnSynonyms[h2]; ok {
		return key
	}
	return h
}

// Signature returns a content signature for the catalogue source, derived
// from its modification time and size. Changing the file changes the
// signature, invalidating both the row cache and the derived vector cache.
func Signature(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("catalogue source missing: %w", err)
	}
	h := sha1.New()
	fmt.Fprintf(h, "%d", info.ModTime().UnixNano())
	fmt.Fprintf(h, "%d", info.Size())
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Loader loads and caches the diagnosis catalogue.
type Loader struct {
	path      string
	cachePath string
	logger    *zap.Logger
}

// NewLoader creates a loader for the catalogue at path, with a JSON row
// cache at cachePath. A nil logger is replaced with a no-op logger.
func NewLoader(path, cachePath string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{path: path, cachePath: cachePath, logger: logger}
}

// Load returns the catalogue definitions and the source signature.
// A cache hit on the exact signature skips the xlsx parse. The source file
// being absent is a fatal error; no diagnosis matching is possible without it.
func (l *Loader) Load() ([]models.DiagnosisDefinition, string, error) {
	sig, err := Signature(l.path)
	if err != nil {
		return nil, "", err
	}

	if defs, ok := l.readCache(sig); ok {
		l.logger.Debug("catalogue row cache hit",
			zap.String("path", l.cachePath), zap.Int("rows", len(defs)))
		return defs, sig, nil
	}

	defs, err := parseXLSX(l.path)
	if err != nil {
		return nil, "", err
	}
	l.writeCache(sig, defs)
	l.logger.Info("catalogue parsed",
		zap.String("path", l.path), zap.Int("rows", len(defs)))
	return defs, sig, nil
}

// parseXLSX reads the first sheet column-by-column using the header synonym
// map. Missing cells are coerced to the empty string rather than rejected.
func parseXLSX(path string) ([]models.DiagnosisDefinition, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open catalogue: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("catalogue %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	// Column index -> canonical field key.
	fields := make(map[int]string, len(rows[0]))
	for i, header := range rows[0] {
		fields[i] = canonicalColumn(header)
	}

	defs := make([]models.DiagnosisDefinition, 0, len(rows)-1)
	for _, row := range rows[1:] {
		cells := make(map[string]string, len(fields))
		for i, key := range fields {
			if i < len(row) {
				cells[key] = strings.TrimSpace(row[i])
			}
		}
		defs = append(defs, definitionFromCells(cells))
	}
	return defs, nil
}

func definitionFromCells(cells map[string]string) models.DiagnosisDefinition {
	get := func(key string) string {
		v := cells[key]
		// Spreadsheet NaN artifacts count as missing.
		if v == "nan" || v == "NaN" {
			return ""
		}
		return v
	}
	return models.DiagnosisDefinition{
		Code:                    get("code"),
		Label:                   get("label"),
		Definition:              get("definition"),
		DefiningCharacteristics: get("defining_characteristics"),
		RelatedFactors:          get("related_factors"),
		RiskFactors:             get("risk_factors"),
		PriorityHint:            get("priority_hint"),
		PrimaryFocus:            get("primary_focus"),
		SecondaryFocus:          get("secondary_focus"),
		CareTarget:              get("care_target"),
		AnatomicalSite:          get("anatomical_site"),
		AgeMin:                  get("age_min"),
		AgeMax:                  get("age_max"),
		ClinicalCourse:          get("clinical_course"),
		DiagnosisState:          get("diagnosis_state"),
		SituationalConstraints:  get("situational_constraints"),
		Domain:                  get("domain"),
		Class:                   get("class"),
		Judge:                   get("judge"),
	}
}
