package classifier

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/shindan/internal/models"
)

// FineResult is one cached fine evaluation.
type FineResult struct {
	Score    float64            `json:"score"`
	Evidence models.TermMatches `json:"evidence"`
}

// Cache stores classifier responses keyed by the sha1 of their inputs.
// Only successful evaluations are stored; failures are retried next run.
type Cache interface {
	GetCoarse(key string) (float64, bool, error)
	PutCoarse(key string, score float64) error
	GetFine(key string) (FineResult, bool, error)
	PutFine(key string, res FineResult) error
	Close() error
}

// SQLiteCache persists responses across runs.
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache opens or creates the cache database at dbPath and
// initializes the schema. Parent directories are created if missing.
func NewSQLiteCache(dbPath string) (*SQLiteCache, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return &SQLiteCache{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS coarse_scores (
		key TEXT PRIMARY KEY,
		score REAL NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS fine_scores (
		key TEXT PRIMARY KEY,
		score REAL NOT NULL,
		evidence TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(schema)
	return err
}

func (c *SQLiteCache) GetCoarse(key string) (float64, bool, error) {
	var score float64
	err := c.db.QueryRow(`SELECT score FROM coarse_scores WHERE key = ?`, key).Scan(&score)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return score, true, nil
}

func (c *SQLiteCache) PutCoarse(key string, score float64) error {
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO coarse_scores (key, score, created_at) VALUES (?, ?, ?)`,
		key, score, time.Now(),
	)
	return err
}

func (c *SQLiteCache) GetFine(key string) (FineResult, bool, error) {
	var res FineResult
	var evidenceJSON string
	err := c.db.QueryRow(`SELECT score, evidence FROM fine_scores WHERE key = ?`, key).
		Scan(&res.Score, &evidenceJSON)
	if err == sql.ErrNoRows {
		return FineResult{}, false, nil
	}
	if err != nil {
		return FineResult{}, false, err
	}
	if err := json.Unmarshal([]byte(evidenceJSON), &res.Evidence); err != nil {
		return FineResult{}, false, fmt.Errorf("failed to unmarshal cached evidence: %w", err)
	}
	return res, true, nil
}

func (c *SQLiteCache) PutFine(key string, res FineResult) error {
	evidenceJSON, err := json.Marshal(res.Evidence)
	if err != nil {
		return fmt.Errorf("failed to marshal evidence: %w", err)
	}
	_, err = c.db.Exec(
		`INSERT OR REPLACE INTO fine_scores (key, score, evidence, created_at) VALUES (?, ?, ?, ?)`,
		key, res.Score, string(evidenceJSON), time.Now(),
	)
	return err
}

func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

// MemoryCache is an in-process Cache for tests and one-shot runs.
type MemoryCache struct {
	mu     sync.RWMutex
	coarse map[string]float64
	fine   map[string]FineResult
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		coarse: make(map[string]float64),
		fine:   make(map[string]FineResult),
	}
}

func (c *MemoryCache) GetCoarse(key string) (float64, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.coarse[key]
	return s, ok, nil
}

func (c *MemoryCache) PutCoarse(key string, score float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.coarse[key] = score
	return nil
}

func (c *MemoryCache) GetFine(key string) (FineResult, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.fine[key]
	return r, ok, nil
}

func (c *MemoryCache) PutFine(key string, res FineResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fine[key] = res
	return nil
}

func (c *MemoryCache) Close() error { return nil }
