// Package models defines the core data types shared across the engine.
package models

// DiagnosisDefinition is one catalogue entry. All fields are plain strings
// as authored in the catalogue; missing cells are coerced to "". The struct
// is immutable once loaded.
type DiagnosisDefinition struct {
	Code  string `json:"code"`
	Label string `json:"label"`
	// Definition is the prose definition of the diagnosis.
	Definition string `json:"definition"`
	// DefiningCharacteristics, RelatedFactors and RiskFactors are raw
	// delimited term lists, split into phrases at match time.
	DefiningCharacteristics string `json:"defining_characteristics"`
	RelatedFactors          string `json:"related_factors"`
	RiskFactors             string `json:"risk_factors"`
	PriorityHint            string `json:"priority_hint"`
	PrimaryFocus            string `json:"primary_focus"`
	SecondaryFocus          string `json:"secondary_focus"`
	CareTarget              string `json:"care_target"`
	AnatomicalSite          string `json:"anatomical_site"`
	// AgeMin/AgeMax stay raw; blank or unparsable bounds mean "no bound".
	AgeMin         string `json:"age_min"`
	AgeMax         string `json:"age_max"`
	ClinicalCourse string `json:"clinical_course"`
	// DiagnosisState is one of problem-focused (問題焦点), risk-type (リスク)
	// or health-promotion (ヘルスプロモーション).
	DiagnosisState         string `json:"diagnosis_state"`
	SituationalConstraints string `json:"situational_constraints"`
	Domain                 string `json:"domain"`
	Class                  string `json:"class"`
	Judge                  string `json:"judge"`
}

// CategorySource concatenates the fields a topical-category lookup should
// inspect for this definition.
func (d *DiagnosisDefinition) CategorySource() string {
	return d.PrimaryFocus + " " + d.SecondaryFocus + " " + d.Domain + " " +
		d.Class + " " + d.Label + " " + d.Definition
}

// SexSource concatenates the fields inspected for sex-specific anatomy.
func (d *DiagnosisDefinition) SexSource() string {
	return d.Label + " " + d.Definition + " " + d.AnatomicalSite
}

// SettingSource concatenates the fields inspected for implied care settings.
func (d *DiagnosisDefinition) SettingSource() string {
	return d.SituationalConstraints + " " + d.Domain + " " + d.Class + " " +
		d.PriorityHint + " " + d.Definition
}
