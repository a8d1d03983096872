package assess

import (
	"math"
	"testing"

	"github.com/hyperjump/shindan/internal/models"
)

func TestParseVitals(t *testing.T) {
	in := New("体温 37.8 HR 102 RR 24 SpO2 88% BP 90/60 NRS 6 の状態")
	v := in.Vitals
	if v.Temp == nil || *v.Temp != 37.8 {
		t.Errorf("temp: %+v", v.Temp)
	}
	if v.HR == nil || *v.HR != 102 {
		t.Errorf("hr: %+v", v.HR)
	}
	if v.RR == nil || *v.RR != 24 {
		t.Errorf("rr: %+v", v.RR)
	}
	if v.SpO2 == nil || *v.SpO2 != 88 {
		t.Errorf("spo2: %+v", v.SpO2)
	}
	if v.SBP == nil || *v.SBP != 90 || v.DBP == nil || *v.DBP != 60 {
		t.Errorf("bp: sbp=%v dbp=%v", v.SBP, v.DBP)
	}
	if v.MAP == nil || math.Abs(*v.MAP-70) > 1e-9 {
		t.Errorf("map: %+v, want 70", v.MAP)
	}
	if v.NRS == nil || *v.NRS != 6 {
		t.Errorf("nrs: %+v", v.NRS)
	}
}

func TestParseVitals_FullWidthInput(t *testing.T) {
	in := New("ＳｐＯ２　８８％")
	if in.Vitals.SpO2 == nil || *in.Vitals.SpO2 != 88 {
		t.Errorf("full-width spo2 should parse: %+v", in.Vitals.SpO2)
	}
}

func TestParseVitals_AbsentStaysNil(t *testing.T) {
	v := ParseVitals("特記事項なし")
	if v.Temp != nil || v.SpO2 != nil || v.MAP != nil || v.NRS != nil {
		t.Errorf("absent vitals must stay nil: %+v", v)
	}
}

func TestParseDemographics(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		sex     models.Sex
		age     int
		hasAge  bool
		family  bool
	}{
		{"male_with_age", "78歳 男性。独居。", models.SexMale, 78, true, false},
		{"female", "54歳 女性。夫と二人暮らし。", models.SexFemale, 54, true, true},
		{"pregnancy_implies_female", "妊娠32週。", models.SexFemale, 0, false, false},
		{"unknown", "本日入院。", models.SexUnknown, 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ParseDemographics(tt.text)
			if d.Sex != tt.sex {
				t.Errorf("sex = %q, want %q", d.Sex, tt.sex)
			}
			if tt.hasAge {
				if d.Age == nil || *d.Age != tt.age {
					t.Errorf("age = %v, want %d", d.Age, tt.age)
				}
			} else if d.Age != nil {
				t.Errorf("age should be unknown, got %d", *d.Age)
			}
			if d.HasFamily != tt.family {
				t.Errorf("hasFamily = %v, want %v", d.HasFamily, tt.family)
			}
		})
	}
}

func TestSettingsAndCategories(t *testing.T) {
	in := New("術後2日目。SpO2 90%、呼吸困難あり。創部に発赤。")
	if !in.Settings["術後"] {
		t.Errorf("settings should include 術後: %v", in.Settings)
	}
	if !in.Categories["呼吸"] {
		t.Errorf("categories should include 呼吸: %v", in.Categories)
	}
	if !in.Categories["皮膚/創傷"] {
		t.Errorf("categories should include 皮膚/創傷: %v", in.Categories)
	}
	if in.Categories["妊娠/産科"] {
		t.Errorf("categories should not include 妊娠/産科: %v", in.Categories)
	}
}

func TestCategoriesOfDefinition(t *testing.T) {
	d := &models.DiagnosisDefinition{
		Label:      "非効果的呼吸パターン",
		Definition: "換気が不十分な状態",
		Domain:     "活動/休息",
	}
	cats := CategoriesOfDefinition(d)
	if !cats["呼吸"] {
		t.Errorf("definition categories should include 呼吸: %v", cats)
	}
}

func TestSortedTags(t *testing.T) {
	got := SortedTags(map[string]bool{"呼吸": true, "安全": true, "ICU": true})
	if len(got) != 3 || got[0] != "ICU" {
		t.Errorf("sorted tags: %v", got)
	}
}
