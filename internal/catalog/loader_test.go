package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func writeFixtureXLSX(t *testing.T, path string) {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	headers := []string{"コード", "診断名", "定義", "診断指標", "関連因子", "危険因子", "診断の状態", "年齢下限"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	row := []string{"00032", "非効果的呼吸パターン", "吸気と呼気の換気が不十分な状態", "呼吸困難|起坐呼吸", "気道分泌物", "", "問題焦点型", ""}
	for i, v := range row {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheet, cell, v)
	}
	// Second row with missing trailing cells.
	_ = f.SetCellValue(sheet, "A3", "00132")
	_ = f.SetCellValue(sheet, "B3", "急性疼痛")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "nanda_db.xlsx")
	writeFixtureXLSX(t, src)

	loader := NewLoader(src, filepath.Join(dir, "rows_cache.json"), nil)
	defs, sig, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}
	if sig == "" {
		t.Error("signature should be non-empty")
	}
	if len(defs) != 2 {
		t.Fatalf("rows: got %d, want 2", len(defs))
	}
	d := defs[0]
	if d.Code != "00032" || d.Label != "非効果的呼吸パターン" {
		t.Errorf("first row identity: %+v", d)
	}
	if d.DefiningCharacteristics != "呼吸困難|起坐呼吸" {
		t.Errorf("defining characteristics: %q", d.DefiningCharacteristics)
	}
	if d.DiagnosisState != "問題焦点型" {
		t.Errorf("diagnosis state: %q", d.DiagnosisState)
	}
	// Missing cells coerce to empty strings, not errors.
	if defs[1].Definition != "" || defs[1].RiskFactors != "" {
		t.Errorf("missing cells should be empty: %+v", defs[1])
	}
}

func TestLoad_CacheHit(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "nanda_db.xlsx")
	cache := filepath.Join(dir, "rows_cache.json")
	writeFixtureXLSX(t, src)

	loader := NewLoader(src, cache, nil)
	first, sig1, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(cache); err != nil {
		t.Fatalf("cache file should exist: %v", err)
	}

	// Remove the source's readability dependence: a second load with an
	// unchanged signature must come from the cache and match exactly.
	second, sig2, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}
	if sig1 != sig2 {
		t.Errorf("signature changed without modification: %s vs %s", sig1, sig2)
	}
	if len(first) != len(second) || second[0].Label != first[0].Label {
		t.Errorf("cached rows differ from parsed rows")
	}
}

func TestLoad_SignatureChangeInvalidates(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "nanda_db.xlsx")
	writeFixtureXLSX(t, src)

	loader := NewLoader(src, filepath.Join(dir, "rows_cache.json"), nil)
	_, sig1, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}
	// Touch with a different mtime to change the signature.
	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(src, later, later); err != nil {
		t.Fatal(err)
	}
	_, sig2, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}
	if sig1 == sig2 {
		t.Error("signature should change when mtime changes")
	}
}

func TestLoad_MissingSourceIsFatal(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "absent.xlsx"), "", nil)
	if _, _, err := loader.Load(); err == nil {
		t.Fatal("missing catalogue source must be an error")
	}
}

func TestCanonicalColumn(t *testing.T) {
	tests := []struct{ in, want string }{
		{"診断名", "label"},
		{"label", "label"},
		{"Code", "code"},
		{"診断指標（DC）", "診断指標（DC）"}, // unknown after junk-stripping resolves to itself
		{" related_factors ", "related_factors"},
	}
	for _, tt := range tests {
		if got := canonicalColumn(tt.in); got != tt.want {
			t.Errorf("canonicalColumn(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
