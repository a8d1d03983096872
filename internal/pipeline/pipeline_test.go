package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/shindan/internal/config"
	"github.com/hyperjump/shindan/internal/models"
)

func TestReadAssessment(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("s_input.txt", "息苦しい\n")
	write("o_input.txt", "SpO2 88%")
	write("assessment_final.txt", "呼吸状態の悪化が疑われる。")

	got, err := ReadAssessment(dir)
	if err != nil {
		t.Fatalf("ReadAssessment: %v", err)
	}
	want := "S: 息苦しい\nO: SpO2 88%\n呼吸状態の悪化が疑われる。"
	if got != want {
		t.Errorf("assembled = %q, want %q", got, want)
	}
}

func TestReadAssessment_SideFilesOnly(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "S.txt"), []byte("痛い"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := ReadAssessment(dir)
	if err != nil {
		t.Fatalf("S-only input should work: %v", err)
	}
	if got != "S: 痛い" {
		t.Errorf("assembled = %q", got)
	}
}

func TestReadAssessment_AllMissingIsError(t *testing.T) {
	if _, err := ReadAssessment(t.TempDir()); err == nil {
		t.Fatal("missing inputs must be an error")
	}
}

func testPipeline(t *testing.T) (*Pipeline, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.ResponseCachePath = filepath.Join(dir, "cache.db")
	cfg.Storage.ResultJSONPath = filepath.Join(dir, "candidates.json")
	cfg.Storage.ResultTextPath = filepath.Join(dir, "result.txt")
	cfg.Storage.FinalTextPath = filepath.Join(dir, "final.txt")
	p, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p, dir
}

func TestReview(t *testing.T) {
	p, dir := testPipeline(t)

	record := models.RunRecord{
		Meta: models.RunMeta{RunID: "run-1"},
		Candidates: []*models.Candidate{
			{Code: "00032", Label: "非効果的呼吸パターン", Rank: 1},
			{Code: "00132", Label: "急性疼痛", Rank: 2},
		},
	}
	data, err := json.Marshal(record)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p.cfg.Storage.ResultJSONPath, data, 0644); err != nil {
		t.Fatal(err)
	}

	final, err := p.Review("- [x] 00032\t非効果的呼吸パターン\n")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if !strings.Contains(final, "非効果的呼吸パターン") {
		t.Errorf("final report missing selection:\n%s", final)
	}
	saved, err := os.ReadFile(filepath.Join(dir, "final.txt"))
	if err != nil || string(saved) != final {
		t.Errorf("confirmed report should be persisted, err=%v", err)
	}
}

func TestReview_EmptySelectionClearsFile(t *testing.T) {
	p, dir := testPipeline(t)
	final, err := p.Review("メモのみ\n")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if final != "" {
		t.Errorf("no selection should clear, got %q", final)
	}
	if saved, err := os.ReadFile(filepath.Join(dir, "final.txt")); err != nil || len(saved) != 0 {
		t.Errorf("cleared file expected, err=%v content=%q", err, saved)
	}
}

func TestLoadRecord_CorruptFallsBackEmpty(t *testing.T) {
	p, _ := testPipeline(t)
	if err := os.WriteFile(p.cfg.Storage.ResultJSONPath, []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}
	record, err := p.LoadRecord()
	if err != nil {
		t.Fatalf("corrupt record should degrade, not fail: %v", err)
	}
	if len(record.Candidates) != 0 {
		t.Errorf("expected empty record, got %d candidates", len(record.Candidates))
	}
}
