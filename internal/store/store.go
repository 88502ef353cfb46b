// Package store persists validated skill assertions in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/nicolad/nomadically.work/internal/logger"
	"github.com/nicolad/nomadically.work/internal/skills"
)

// DefaultVersion tags assertions written by the current extractor.
const DefaultVersion = "skills-v1"

const timeLayout = time.RFC3339Nano

// Store is a handle on the assertion database.
type Store struct {
	db     *sql.DB
	now    func() time.Time
	logger *zap.Logger
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the timestamp source used for extracted_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = logger.OrNop(l) }
}

// ReplaceResult reports a committed replace.
type ReplaceResult struct {
	OK    bool `json:"ok"`
	Count int  `json:"count"`
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	// _txlock=immediate makes every BeginTx take the write lock up front.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Replace deletes every assertion of jobID, whatever its version, and inserts
// items in one transaction. On any failure nothing changes and the error
// wraps skills.ErrPersistence.
func (s *Store) Replace(ctx context.Context, jobID int64, version string, items []skills.Extracted) (ReplaceResult, error) {
	if version == "" {
		version = DefaultVersion
	}
	extractedAt := s.now().UTC().Format(timeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ReplaceResult{}, fmt.Errorf("%w: begin: %v", skills.ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback() }()

	deleted, err := tx.ExecContext(ctx, `DELETE FROM job_skill_tags WHERE job_id = ?;`, jobID)
	if err != nil {
		return ReplaceResult{}, fmt.Errorf("%w: delete job %d: %v", skills.ErrPersistence, jobID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO job_skill_tags (job_id, tag, level, confidence, evidence, extracted_at, version)
VALUES (?, ?, ?, ?, ?, ?, ?);`)
	if err != nil {
		return ReplaceResult{}, fmt.Errorf("%w: prepare insert: %v", skills.ErrPersistence, err)
	}
	defer stmt.Close()

	for _, item := range items {
		var confidence any
		if item.Confidence != nil {
			confidence = *item.Confidence
		}
		if _, err := stmt.ExecContext(ctx, jobID, item.Tag, string(item.Level), confidence, item.Evidence, extractedAt, version); err != nil {
			return ReplaceResult{}, fmt.Errorf("%w: insert %s for job %d: %v", skills.ErrPersistence, item.Tag, jobID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ReplaceResult{}, fmt.Errorf("%w: commit: %v", skills.ErrPersistence, err)
	}

	removed, _ := deleted.RowsAffected()
	s.logger.Debug("replaced skill assertions",
		zap.Int64(logger.FieldJobID, jobID),
		zap.String(logger.FieldVersion, version),
		zap.Int64("deleted", removed),
		zap.Int("inserted", len(items)),
	)

	return ReplaceResult{OK: true, Count: len(items)}, nil
}

// ListByJob returns the assertions of jobID ordered by level priority, then
// confidence descending with missing confidence last, then tag.
func (s *Store) ListByJob(ctx context.Context, jobID int64) ([]skills.Assertion, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT job_id, tag, level, confidence, evidence, extracted_at, version
FROM job_skill_tags
WHERE job_id = ?
ORDER BY
  CASE level WHEN 'required' THEN 0 WHEN 'preferred' THEN 1 ELSE 2 END,
  confidence IS NULL,
  confidence DESC,
  tag;`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list job %d: %w", jobID, err)
	}
	defer rows.Close()

	var out []skills.Assertion
	for rows.Next() {
		var (
			a           skills.Assertion
			level       string
			confidence  sql.NullFloat64
			extractedAt string
		)
		if err := rows.Scan(&a.JobID, &a.Tag, &level, &confidence, &a.Evidence, &extractedAt, &a.Version); err != nil {
			return nil, err
		}
		a.Level = skills.Level(level)
		if confidence.Valid {
			v := confidence.Float64
			a.Confidence = &v
		}
		if t, err := time.Parse(timeLayout, extractedAt); err == nil {
			a.ExtractedAt = t
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByJob returns how many assertions jobID has.
func (s *Store) CountByJob(ctx context.Context, jobID int64) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM job_skill_tags WHERE job_id = ?;`, jobID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count job %d: %w", jobID, err)
	}
	return n, nil
}
