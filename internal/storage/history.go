package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/spigell/evalia/internal/domain"
)

// DefaultHistoryDB is used when no history database is configured.
const DefaultHistoryDB = "evalia.db"

// Interview is one archived interview.
type Interview struct {
	ID         string
	Domain     string
	StartedAt  time.Time
	FinishedAt time.Time
	HRScore    float64
	TechScore  float64
	Overall    float64
	Results    *domain.Results
}

// History archives finished interviews in SQLite.
type History struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenHistory opens or creates the history database at path.
func OpenHistory(path string, logger *zap.Logger) (*History, error) {
	if path = strings.TrimSpace(path); path == "" {
		path = DefaultHistoryDB
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	h := &History{db: db, logger: logger}
	if err := h.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return h, nil
}

func (h *History) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS interviews (
		id TEXT PRIMARY KEY,
		domain TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		hr_score REAL NOT NULL,
		tech_score REAL NOT NULL,
		overall_score REAL NOT NULL,
		results_json TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_interviews_finished ON interviews(finished_at);
	`
	if _, err := h.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Archive stores a finished interview. Archiving the same id again replaces it.
func (h *History) Archive(ctx context.Context, id string, startedAt, finishedAt time.Time, results *domain.Results) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("interview id is required")
	}
	if results == nil {
		return errors.New("results are required")
	}

	payload, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	hr := domain.AverageScore(results.HRResults)
	tech := domain.AverageScore(results.TechResults)

	query := `
	INSERT INTO interviews (id, domain, started_at, finished_at, hr_score, tech_score, overall_score, results_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		domain = excluded.domain,
		finished_at = excluded.finished_at,
		hr_score = excluded.hr_score,
		tech_score = excluded.tech_score,
		overall_score = excluded.overall_score,
		results_json = excluded.results_json`

	_, err = h.db.ExecContext(ctx, query,
		id, results.Domain, startedAt.Unix(), finishedAt.Unix(),
		hr, tech, results.OverallScore(), string(payload),
	)
	if err != nil {
		return fmt.Errorf("archive interview: %w", err)
	}

	h.logger.Info("interview archived", zap.String("interview_id", id), zap.String("domain", results.Domain))
	return nil
}

// List returns up to limit archived interviews, newest first. A non-positive
// limit returns all of them.
func (h *History) List(ctx context.Context, limit int) ([]Interview, error) {
	query := `
		SELECT id, domain, started_at, finished_at, hr_score, tech_score, overall_score, results_json
		FROM interviews ORDER BY finished_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query interviews: %w", err)
	}
	defer rows.Close()

	var interviews []Interview
	for rows.Next() {
		var (
			it                  Interview
			startedAt, finished int64
			payload             string
		)
		if err := rows.Scan(&it.ID, &it.Domain, &startedAt, &finished, &it.HRScore, &it.TechScore, &it.Overall, &payload); err != nil {
			return nil, fmt.Errorf("scan interview row: %w", err)
		}

		it.StartedAt = time.Unix(startedAt, 0).UTC()
		it.FinishedAt = time.Unix(finished, 0).UTC()
		it.Results = domain.NewResults()
		if err := json.Unmarshal([]byte(payload), it.Results); err != nil {
			return nil, fmt.Errorf("decode interview %s: %w", it.ID, err)
		}

		interviews = append(interviews, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interviews: %w", err)
	}

	return interviews, nil
}

// Close releases the database.
func (h *History) Close() error {
	return h.db.Close()
}
