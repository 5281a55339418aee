// Package storage persists interview results: the latest aggregate as a
// JSON file and finished interviews in a SQLite history.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/evalia/internal/domain"
)

// DefaultResultsFile is used when no results file is configured.
const DefaultResultsFile = "interview_results.json"

// ResultsFile writes the whole results aggregate to a single JSON file.
// Every save replaces the previous content.
type ResultsFile struct {
	path   string
	logger *zap.Logger
}

func NewResultsFile(path string, logger *zap.Logger) *ResultsFile {
	if path = strings.TrimSpace(path); path == "" {
		path = DefaultResultsFile
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultsFile{path: path, logger: logger}
}

// Path returns the file the results are written to.
func (f *ResultsFile) Path() string { return f.path }

// Save writes results atomically: readers see either the old or the new file.
func (f *ResultsFile) Save(ctx context.Context, results *domain.Results) error {
	if results == nil {
		return errors.New("results are required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create results directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".results-*.json")
	if err != nil {
		return fmt.Errorf("create temporary results file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write results: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close results file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace results file: %w", err)
	}

	f.logger.Debug("results written",
		zap.String("path", f.path),
		zap.Int("hr_answers", len(results.HRResults)),
		zap.Int("tech_answers", len(results.TechResults)),
	)

	return nil
}

// LoadResults reads a results file written by ResultsFile.
func LoadResults(path string) (*domain.Results, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if stat.Size() == 0 {
		return nil, fmt.Errorf("results file %s is empty", path)
	}

	results := domain.NewResults()
	if err := json.NewDecoder(file).Decode(results); err != nil {
		return nil, fmt.Errorf("decode results file: %w", err)
	}
	return results, nil
}
