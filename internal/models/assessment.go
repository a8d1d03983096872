package models

// Sex is the demographic sex derived from the assessment text.
type Sex string

const (
	SexUnknown Sex = ""
	SexMale    Sex = "M"
	SexFemale  Sex = "F"
)

// Demographics holds patient attributes derived from the assessment text.
type Demographics struct {
	Sex Sex `json:"sex"`
	// Age is nil when no age is stated.
	Age *int `json:"age"`
	// HasFamily reports whether the text shows family/caregiver involvement.
	HasFamily bool `json:"has_family"`
}

// Vitals holds vital signs parsed from the assessment text. A nil field
// means the value was absent or unparsable, never zero.
type Vitals struct {
	Temp *float64 `json:"temp"`
	HR   *float64 `json:"hr"`
	RR   *float64 `json:"rr"`
	SpO2 *float64 `json:"spo2"`
	SBP  *float64 `json:"sbp"`
	DBP  *float64 `json:"dbp"`
	// MAP is derived as (SBP + 2*DBP) / 3 when both pressures are present.
	MAP *float64 `json:"map"`
	// NRS is the 0-10 numeric pain score.
	NRS *float64 `json:"nrs"`
}

// AssessmentInput is the immutable per-run input: the assembled S/O body
// plus everything derived from it once at the start of a run.
type AssessmentInput struct {
	// Text is the raw assembled assessment body.
	Text string `json:"text"`
	// Normalized is the canonical matching form of Text.
	Normalized   string          `json:"normalized"`
	Demographics Demographics    `json:"demographics"`
	Vitals       Vitals          `json:"vitals"`
	// Settings are care-context tags present in the text (ICU, 在宅, ...).
	Settings map[string]bool `json:"settings"`
	// Categories are topical tags present in the text (呼吸, 栄養, ...).
	Categories map[string]bool `json:"categories"`
}
