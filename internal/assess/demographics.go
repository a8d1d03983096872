package assess

import (
	"regexp"
	"strconv"

	"github.com/hyperjump/shindan/internal/models"
)

var (
	maleRe   = regexp.MustCompile(`(?:^|[^ぁ-んァ-ヶ一-龥])男(?:性|児)?|♂`)
	femaleRe = regexp.MustCompile(`(?:^|[^ぁ-んァ-ヶ一-龥])女(?:性|児)?|♀|妊娠|産褥|授乳|母乳`)
	ageRe    = regexp.MustCompile(`(\d{1,3})\s*歳`)
	familyRe = regexp.MustCompile(`家族|妻|夫|母|父|娘|息子|介護者|保護者|親|配偶者`)
)

// ParseDemographics derives sex, age and family involvement from the
// assessment text. Female-implying vocabulary (妊娠, 産褥, ...) overrides a
// male hit, matching the catalogue's authoring conventions.
func ParseDemographics(text string) models.Demographics {
	d := models.Demographics{Sex: models.SexUnknown}
	if maleRe.MatchString(text) {
		d.Sex = models.SexMale
	}
	if femaleRe.MatchString(text) {
		d.Sex = models.SexFemale
	}
	if m := ageRe.FindStringSubmatch(text); m != nil {
		if age, err := strconv.Atoi(m[1]); err == nil {
			d.Age = &age
		}
	}
	d.HasFamily = familyRe.MatchString(text)
	return d
}
