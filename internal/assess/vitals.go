package assess

import (
	"regexp"
	"strconv"

	"github.com/hyperjump/shindan/internal/models"
)

const numPat = `(\d+(?:\.\d+)?)`

var (
	tempRe = regexp.MustCompile(`(?:体温|t)\s*[:=]?\s*` + numPat)
	hrRe   = regexp.MustCompile(`(?:hr|心拍|脈拍)\s*[:=]?\s*` + numPat)
	rrRe   = regexp.MustCompile(`(?:rr|呼吸数)\s*[:=]?\s*` + numPat)
	spo2Re = regexp.MustCompile(`(?:spo2|サチュ)\s*[:=]?\s*` + numPat)
	bpRe   = regexp.MustCompile(`\b(\d{2,3})\s*/\s*(\d{2,3})\b`)
	sbpRe  = regexp.MustCompile(`(?:sbp|収縮期|上の血圧)\s*[:=]?\s*` + numPat)
	dbpRe  = regexp.MustCompile(`(?:dbp|拡張期|下の血圧)\s*[:=]?\s*` + numPat)
	nrsRe  = regexp.MustCompile(`(?:nrs|疼痛(?:スケール)?)\D{0,6}` + numPat)
)

// findNum returns the first captured number for re in text, or nil when the
// pattern is absent or unparsable. Unparsable values stay unknown, never zero.
func findNum(re *regexp.Regexp, text string) *float64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &f
}

// ParseVitals extracts vital signs from the normalized assessment text.
// MAP is derived as (SBP + 2*DBP) / 3 when both pressures are present.
func ParseVitals(normalized string) models.Vitals {
	v := models.Vitals{
		Temp: findNum(tempRe, normalized),
		HR:   findNum(hrRe, normalized),
		RR:   findNum(rrRe, normalized),
		SpO2: findNum(spo2Re, normalized),
		NRS:  findNum(nrsRe, normalized),
	}
	if m := bpRe.FindStringSubmatch(normalized); m != nil {
		sbp, err1 := strconv.ParseFloat(m[1], 64)
		dbp, err2 := strconv.ParseFloat(m[2], 64)
		if err1 == nil && err2 == nil {
			v.SBP, v.DBP = &sbp, &dbp
		}
	} else {
		v.SBP = findNum(sbpRe, normalized)
		v.DBP = findNum(dbpRe, normalized)
	}
	if v.SBP != nil && v.DBP != nil {
		mean := (*v.SBP + 2**v.DBP) / 3
		v.MAP = &mean
	}
	return v
}
