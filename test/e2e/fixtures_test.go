package e2e

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/shindan/internal/config"
	"github.com/hyperjump/shindan/internal/pipeline"
)

// catalogueColumns is the header row of the fixture catalogue, using the
// Japanese authoring-language headers the loader resolves via its synonym map.
var catalogueColumns = []string{
	"コード", "診断名", "定義", "診断指標", "関連因子", "危険因子",
	"優先ヒント", "領域", "診断の状態", "状況的制約",
}

// catalogueRows is a small but realistic slice of the diagnosis catalogue:
// a respiratory problem, a pain problem, a female-anatomy diagnosis, a
// risk-type diagnosis and a topically unrelated one.
var catalogueRows = [][]string{
	{
		"00032", "非効果的呼吸パターン",
		"呼吸数や換気のパターンが正常範囲にない状態",
		"呼吸困難|頻呼吸|起座呼吸", "", "",
		"呼吸", "活動/休息", "問題焦点型", "",
	},
	{
		"00132", "急性疼痛",
		"実在する組織損傷に伴う不快な感覚的および情動的体験",
		"疼痛|痛み", "", "",
		"", "安楽", "問題焦点型", "",
	},
	{
		"00104", "非効果的母乳栄養",
		"母乳を乳房から直接与えることが困難な状態",
		"吸着不良", "", "",
		"", "栄養", "問題焦点型", "",
	},
	{
		"00004", "感染リスク状態",
		"病原体が侵入し増殖しやすい状態",
		"", "", "発熱|創部発赤|カテーテル留置",
		"", "安全/防御", "リスク型", "",
	},
	{
		"00011", "便秘",
		"排便回数の減少と排便困難を伴う状態",
		"排便困難|硬便", "", "",
		"", "排泄", "問題焦点型", "",
	},
}

func writeCatalogue(t *testing.T, path string, rows [][]string) {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, h := range catalogueColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(sheet, cell, v)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to write catalogue fixture: %v", err)
	}
}

// newPipeline builds a pipeline over a temp workspace with the fixture
// catalogue. The classifier endpoint points at a closed port, so the
// semantic stages degrade and every assertion holds offline.
func newPipeline(t *testing.T) (*pipeline.Pipeline, *config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.CataloguePath = filepath.Join(dir, "catalogue.xlsx")
	cfg.Storage.RowCachePath = filepath.Join(dir, "rows.json")
	cfg.Storage.VectorCachePath = filepath.Join(dir, "vectors.json")
	cfg.Storage.ResponseCachePath = filepath.Join(dir, "cache.db")
	cfg.Storage.ResultTextPath = filepath.Join(dir, "diagnosis_result.txt")
	cfg.Storage.ResultJSONPath = filepath.Join(dir, "diagnosis_candidates.json")
	cfg.Storage.FinalTextPath = filepath.Join(dir, "diagnosis_final.txt")
	cfg.Ollama.BaseURL = "http://127.0.0.1:1"
	writeCatalogue(t, cfg.Storage.CataloguePath, catalogueRows)

	p, err := pipeline.New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p, cfg, dir
}

func writeInput(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
