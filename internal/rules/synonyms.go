package rules

import "github.com/hyperjump/shindan/pkg/utils"

// synonyms groups catalogue vocabulary with the colloquial phrasings that
// appear in ward notes. Expansion is bidirectional: hitting any member of a
// group credits the catalogue term.
var synonyms = map[string][]string{
	"疼痛":    {"痛い", "痛み", "苦痛", "圧痛", "腰痛", "腹痛", "胸痛", "頭痛", "創部痛", "痛覚過敏"},
	"呼吸困難":  {"息苦しさ", "息切れ", "呼吸苦", "呼吸困難感", "起坐呼吸", "労作時呼吸困難"},
	"不安":    {"心配", "落ち着かない", "そわそわ", "緊張", "恐れ", "恐怖"},
	"倦怠感":   {"だるい", "疲労", "しんどい", "易疲労", "脱力"},
	"脱水":    {"口渇", "尿量低下", "皮膚乾燥", "尿濃縮", "飲水不足"},
	"転倒リスク": {"ふらつき", "歩行不安定", "易転倒", "失神既往"},
	"嚥下障害":  {"dysphagia", "誤嚥", "むせ", "咽頭残留", "嚥下機能低下"},
}

// ExpandTerm returns the term plus every member of any synonym group it
// belongs to, the term itself first, without duplicates.
func ExpandTerm(term string) []string {
	t := utils.NFKC(term)
	out := []string{t}
	seen := map[string]bool{t: true}
	for key, vals := range synonyms {
		member := t == key
		if !member {
			for _, v := range vals {
				if t == v {
					member = true
					break
				}
			}
		}
		if !member {
			continue
		}
		for _, v := range append([]string{key}, vals...) {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}
