package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/mailwatch/phishfilter/internal/core"
)

// MySQLStore is a MySQL implementation of the ResultStore interface.
type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore connects with the given DSN and ensures the table exists.
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS analysis_results (
			email_id VARCHAR(255) PRIMARY KEY,
			is_phishing BOOLEAN,
			phishing_score DOUBLE,
			detection_method VARCHAR(16),
			result_json MEDIUMTEXT,
			analyzed_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLStore{db: db, logger: logger}, nil
}

// Save stores the result, replacing any previous row for the same email.
func (s *MySQLStore) Save(ctx context.Context, result *core.AnalysisResult) error {
	blob, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis result: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analysis_results
			(email_id, is_phishing, phishing_score, detection_method, result_json, analyzed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			is_phishing = VALUES(is_phishing),
			phishing_score = VALUES(phishing_score),
			detection_method = VALUES(detection_method),
			result_json = VALUES(result_json),
			analyzed_at = VALUES(analyzed_at)
	`, result.EmailID, result.IsPhishing, result.PhishingScore,
		string(result.DetectionMethod), string(blob), result.AnalyzedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert analysis result: %w", err)
	}

	return nil
}

// Get retrieves the persisted result for an email.
func (s *MySQLStore) Get(ctx context.Context, emailID string) (*core.AnalysisResult, error) {
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
func (s *MySQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close MySQL connection: %w", err)
	}
	return nil
}
