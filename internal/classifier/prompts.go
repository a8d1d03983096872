package classifier

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperjump/shindan/pkg/utils"
)

const systemCoarse = "あなたは看護診断の意味一致チェッカーです。" +
	"以下の『アセスメント本文(要旨)』と『看護診断(診断名/定義)』が臨床的に一致する可能性を 0.0〜1.0 で評価し、" +
	`厳密JSON {"score": 0.0} のみを返してください。言い換え・含意の一致も評価してください。`

const systemFine = "あなたは看護診断の意味一致チェッカーです。" +
	"『アセスメント本文(要旨)』に、提示する診断名/定義/診断指標/関連因子/危険因子が意味的に表れているかを評価し、" +
	`厳密JSON {"matched":{"診断指標":[],"関連因子":[],"危険因子":[]}, "score":0.0} だけ返してください。` +
	" matched は文字一致でなくても意味等価ならOK。score は 0.0〜1.0。"

// screeningSectionRe isolates the screening-assessment section of a
// structured note when one is present.
var screeningSectionRe = regexp.MustCompile(`◆スクリー[\s\S]*?アセスメント[\s\S]*?◆データ分析`)

// TrimAssessment cuts the assessment down to the snippet sent to the model:
// the screening section if the note is structured, otherwise the whole
// text, capped at limit runes.
func TrimAssessment(src string, limit int) string {
	t := utils.NFKC(src)
	if m := screeningSectionRe.FindString(t); m != "" {
		t = m
	}
	return utils.Truncate(t, limit)
}

func coarseUser(label, definition, snippet string) string {
	return fmt.Sprintf("【看護診断】%s\n【定義】%s\n\n【アセスメント本文(要旨)】\n%s", label, definition, snippet)
}

func fineUser(label, definition string, dc, rf, rk []string, snippet string) string {
	return fmt.Sprintf(
		"【看護診断】%s\n【定義】%s\n\n【診断指標リスト】%s\n【関連因子リスト】%s\n【危険因子リスト】%s\n\n【アセスメント本文(要旨)】\n%s",
		label, definition, termList(dc), termList(rf), termList(rk), snippet)
}

func termList(terms []string) string {
	if len(terms) == 0 {
		return "(なし)"
	}
	return strings.Join(terms, ", ")
}
