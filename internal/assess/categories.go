package assess

import (
	"strings"

	"github.com/hyperjump/shindan/internal/models"
	"github.com/hyperjump/shindan/pkg/utils"
)

// settingKeywords maps care-context tags to the vocabulary that implies them.
var settingKeywords = map[string][]string{
	"ICU": {"ICU", "HCU", "集中治療", "人工呼吸器", "挿管", "人工呼吸"},
	"在宅":  {"在宅", "訪問", "家屋", "家族介護"},
	"外来":  {"外来", "クリニック"},
	"精神":  {"精神科", "うつ", "不安障害", "幻覚", "妄想", "向精神薬"},
	"術後":  {"術後", "手術後", "POD", "ドレーン", "創部"},
	"リハ":  {"リハ", "リハビリ", "PT", "OT", "ST"},
}

// categoryKeywords maps topical tags to the vocabulary that implies them.
var categoryKeywords = map[string][]string{
	"呼吸":      {"呼吸", "気道", "酸素", "SpO2", "喘", "RR", "息切", "酸素化", "airway", "breathing", "oxygenation", "COPD", "喘息"},
	"循環":      {"循環", "ショック", "血圧", "SBP", "MAP", "脈拍", "HR", "出血", "末梢冷感", "circulation"},
	"排泄":      {"排尿", "排便", "失禁", "尿閉", "便秘", "下痢", "ストーマ", "カテーテル", "尿量"},
	"栄養":      {"栄養", "食事", "食欲", "経口", "嚥下", "摂食", "摂取", "飲水", "脱水", "経管", "BMI", "体重"},
	"活動/ADL":  {"歩行", "移動", "ADL", "更衣", "起居", "セルフケア", "活動", "耐久", "リハ", "PT", "OT", "ST"},
	"睡眠/休息":   {"睡眠", "不眠", "入眠", "中途覚醒", "休息", "昼夜逆転"},
	"安全":      {"転倒", "転落", "誤嚥", "出血リスク", "皮膚損傷", "褥瘡", "感染予防", "安全", "拘束"},
	"疼痛":      {"痛み", "疼痛", "NRS", "鎮痛"},
	"皮膚/創傷":   {"褥瘡", "発赤", "びらん", "皮膚", "スキン", "創部", "創傷", "ドレッシング", "滲出"},
	"感染":      {"感染", "発熱", "抗菌薬", "白血球", "CRP", "敗血症"},
	"精神/情緒":   {"不安", "うつ", "混乱", "不穏", "幻覚", "妄想", "ストレス", "気分"},
	"知識/自己管理": {"教育", "説明", "理解", "自己管理", "アドヒアランス", "服薬", "指導", "知識不足"},
	"妊娠/産科":   {"妊娠", "産褥", "分娩", "胎児", "授乳", "母乳", "産科"},
	"コミュニケーション": {"コミュニケーション", "意思疎通", "聴力", "視力", "言語"},
	"手術/周術期": {"術前", "術後", "手術", "麻酔", "POD", "ドレーン", "創部"},
}

// matchTags returns the tags whose keyword list has at least one hit in the
// NFKC-folded text.
func matchTags(text string, table map[string][]string) map[string]bool {
	folded := utils.NFKC(text)
	hits := make(map[string]bool)
	for tag, kws := range table {
		for _, kw := range kws {
			if strings.Contains(folded, kw) {
				hits[tag] = true
				break
			}
		}
	}
	return hits
}

// SettingsInText returns the care-context tags present in text.
func SettingsInText(text string) map[string]bool {
	return matchTags(text, settingKeywords)
}

// CategoriesInText returns the topical tags present in text.
func CategoriesInText(text string) map[string]bool {
	return matchTags(text, categoryKeywords)
}

// CategoriesOfDefinition resolves the topical tags implied by a diagnosis
// definition's focus, domain, class, label and prose.
func CategoriesOfDefinition(d *models.DiagnosisDefinition) map[string]bool {
	return CategoriesInText(d.CategorySource())
}

// SettingsOfDefinition resolves the care settings a definition implies.
func SettingsOfDefinition(d *models.DiagnosisDefinition) map[string]bool {
	return matchTags(d.SettingSource(), settingKeywords)
}

// SortedTags returns a tag set as a sorted slice for stable display.
func SortedTags(tags map[string]bool) []string {
	out := make([]string, 0, len(tags))
	for tag := range tags {
		out = append(out, tag)
	}
	// Insertion sort: tag sets are tiny.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
