// Package store provides ResultStore implementations persisting one
// analysis result per email.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mailwatch/phishfilter/internal/core"
)

// SQLiteStore is a SQLite implementation of the ResultStore interface.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS analysis_results (
			email_id TEXT PRIMARY KEY,
			is_phishing BOOLEAN,
			phishing_score REAL,
			detection_method TEXT,
			result_json TEXT,
			analyzed_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Save stores the result, replacing any previous row for the same email.
func (s *SQLiteStore) Save(ctx context.Context, result *core.AnalysisResult) error {
	blob, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis result: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO analysis_results
			(email_id, is_phishing, phishing_score, detection_method, result_json, analyzed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, result.EmailID, result.IsPhishing, result.PhishingScore,
		string(result.DetectionMethod), string(blob), result.AnalyzedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert analysis result: %w", err)
	}

	return nil
}

// Get retrieves the persisted result for an email.
func (s *SQLiteStore) Get(ctx context.Context, emailID string) (*core.AnalysisResult, error) {
	var blob string
	err := s.db.QueryRowContext(ctx, `
		SELECT result_json FROM analysis_results WHERE email_id = ?
	`, emailID).Scan(&blob)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to query analysis result: %w", err)
	}

	var result core.AnalysisResult
	if err := json.Unmarshal([]byte(blob), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analysis result: %w", err)
	}

	return &result, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close SQLite database: %w", err)
	}
	return nil
}
