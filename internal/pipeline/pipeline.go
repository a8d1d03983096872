// Package pipeline wires the engine together: assessment assembly from the
// input files, catalogue and vector-space loading, the ranking run, and the
// report/record/review outputs.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/shindan/internal/assess"
	"github.com/hyperjump/shindan/internal/catalog"
	"github.com/hyperjump/shindan/internal/classifier"
	"github.com/hyperjump/shindan/internal/config"
	"github.com/hyperjump/shindan/internal/lexical"
	"github.com/hyperjump/shindan/internal/models"
	"github.com/hyperjump/shindan/internal/ranker"
	"github.com/hyperjump/shindan/internal/report"
	"github.com/hyperjump/shindan/internal/review"
)

// assessmentFile is the required core input; the S/O side files are
// optional and prefixed into the assembled text when present.
const assessmentFile = "assessment_final.txt"

var (
	sFileCandidates = []string{"s_input.txt", "S.txt", "s.txt"}
	oFileCandidates = []string{"o_input.txt", "O.txt", "o.txt"}
)

// Pipeline owns the long-lived engine state shared between CLI runs and
// server handlers: the catalogue, the vector space and the response cache.
type Pipeline struct {
	cfg    *config.Config
	loader *catalog.Loader
	cache  classifier.Cache
	scorer classifier.Scorer
	logger *zap.Logger

	mu    sync.Mutex
	defs  []models.DiagnosisDefinition
	index *lexical.Index
	sig   string
}

// New builds a pipeline from the configuration, opening the response cache
// eagerly so a broken cache path fails the start instead of the first run.
func New(cfg *config.Config, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := classifier.NewSQLiteCache(cfg.Storage.ResponseCachePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open response cache: %w", err)
	}
	client := classifier.NewClient(classifier.Options{
		BaseURL:        cfg.Ollama.BaseURL,
		Model:          cfg.Ollama.Model,
		ConnectTimeout: secs(cfg.Ollama.ConnectTimeoutSec),
		ReadTimeout:    secs(cfg.Ollama.ReadTimeoutSec),
		Retry:          cfg.Ollama.Retry,
	}, logger)
	return &Pipeline{
		cfg:    cfg,
		loader: catalog.NewLoader(cfg.Storage.CataloguePath, cfg.Storage.RowCachePath, logger),
		cache:  cache,
		scorer: classifier.NewGateway(client, cache, cfg.Classify.SnippetChars, logger),
		logger: logger,
	}, nil
}

// Close releases the response cache.
func (p *Pipeline) Close() error {
	return p.cache.Close()
}

// Invalidate drops the cached catalogue and vector space; the next run
// reloads from disk. Called when the catalogue file changes.
func (p *Pipeline) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.defs = nil
	p.index = nil
	p.sig = ""
	p.logger.Info("catalogue state invalidated")
}

// ensureCatalogue loads the catalogue and definition vector space, reusing
// the in-memory copy while the source signature is unchanged.
func (p *Pipeline) ensureCatalogue() ([]models.DiagnosisDefinition, *lexical.Index, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sig, err := catalog.Signature(p.cfg.Storage.CataloguePath)
	if err != nil {
		return nil, nil, err
	}
	if p.defs != nil && p.sig == sig {
		return p.defs, p.index, nil
	}

	defs, loadedSig, err := p.loader.Load()
	if err != nil {
		return nil, nil, err
	}
	if len(defs) == 0 {
		return nil, nil, fmt.Errorf("catalogue %s has no usable rows", p.cfg.Storage.CataloguePath)
	}
	p.defs = defs
	p.sig = loadedSig
	p.index = lexical.LoadOrBuild(defs, loadedSig, p.cfg.Storage.VectorCachePath, p.logger)
	return p.defs, p.index, nil
}

// RunResult is one completed ranking run.
type RunResult struct {
	Text    string
	Record  models.RunRecord
	Visible []*models.Candidate
}

// RunText ranks the given assessment text without touching the input or
// output files. Server handlers use this directly.
func (p *Pipeline) RunText(ctx context.Context, text string) (*RunResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("assessment text is empty")
	}
	defs, index, err := p.ensureCatalogue()
	if err != nil {
		return nil, err
	}

	in := assess.New(text)
	r := ranker.New(p.cfg, defs, index, p.scorer, p.logger)

	started := time.Now()
	out := r.Rank(ctx, in)
	p.logger.Info("ranking complete",
		zap.Int("candidates", len(out.Candidates)),
		zap.Bool("classifier", out.ClassifierAvailable),
		zap.Duration("elapsed", time.Since(started)))

	meta := report.NewRunMeta(p.cfg, p.scorer.Model(), out.ClassifierAvailable)
	visible := ranker.Visible(out.Candidates,
		p.cfg.Output.OnlyRelatedOrDefault(), p.cfg.Output.TopFraction)

	return &RunResult{
		Text:    report.Render(p.cfg, in, visible, meta),
		Record:  report.BuildRecord(meta, out.Candidates),
		Visible: visible,
	}, nil
}

// Run executes the full file-based flow: assemble the assessment from the
// working directory, rank, and write the text report and run record.
func (p *Pipeline) Run(ctx context.Context, dir string) (*RunResult, error) {
	text, err := ReadAssessment(dir)
	if err != nil {
		return nil, err
	}
	res, err := p.RunText(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(p.cfg.Storage.ResultTextPath, []byte(res.Text), 0644); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}
	data, err := json.MarshalIndent(res.Record, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run record: %w", err)
	}
	if err := os.WriteFile(p.cfg.Storage.ResultJSONPath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write run record: %w", err)
	}
	p.logger.Info("outputs written",
		zap.String("report", p.cfg.Storage.ResultTextPath),
		zap.String("record", p.cfg.Storage.ResultJSONPath))
	return res, nil
}

// Review matches a selection text against the last run record and writes
// the confirmed report. Returns the rendered text.
func (p *Pipeline) Review(selectionText string) (string, error) {
	record, err := p.LoadRecord()
	if err != nil {
		return "", err
	}
	selections := review.ParseSelection(selectionText)
	final := review.RenderFinal(record, selections, time.Now())
	if err := os.WriteFile(p.cfg.Storage.FinalTextPath, []byte(final), 0644); err != nil {
		return "", fmt.Errorf("failed to write confirmed report: %w", err)
	}
	p.logger.Info("confirmed report written",
		zap.String("path", p.cfg.Storage.FinalTextPath),
		zap.Int("selected", len(selections)))
	return final, nil
}

// LoadRecord reads the run record from the last Run. A missing or corrupt
// record returns an empty one so review degrades to minimal entries.
func (p *Pipeline) LoadRecord() (models.RunRecord, error) {
	var record models.RunRecord
	data, err := os.ReadFile(p.cfg.Storage.ResultJSONPath)
	if err != nil {
		if os.IsNotExist(err) {
			return record, nil
		}
		return record, fmt.Errorf("failed to read run record: %w", err)
	}
	if err := json.Unmarshal(data, &record); err != nil {
		p.logger.Warn("run record unreadable, reviewing without detail", zap.Error(err))
		return models.RunRecord{}, nil
	}
	return record, nil
}

// ReadAssessment assembles the assessment text from dir: optional S and O
// side files first, prefixed with their section markers, then the core
// assessment file. Fails when everything is empty or missing.
func ReadAssessment(dir string) (string, error) {
	core := readOptional(filepath.Join(dir, assessmentFile))
	s := firstNonEmpty(dir, sFileCandidates)
	o := firstNonEmpty(dir, oFileCandidates)

	var parts []string
	if s != "" {
		parts = append(parts, "S: "+s)
	}
	if o != "" {
		parts = append(parts, "O: "+o)
	}
	if core != "" {
		parts = append(parts, core)
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%s が見つからない/空、S/O もなし", assessmentFile)
	}
	return strings.Join(parts, "\n"), nil
}

func readOptional(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func firstNonEmpty(dir string, names []string) string {
	for _, name := range names {
		if t := readOptional(filepath.Join(dir, name)); t != "" {
			return t
		}
	}
	return ""
}

func secs(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
