package store

import (
	"context"
	"fmt"
)

const schemaVersion = 1

var migrations = []string{
	`
CREATE TABLE IF NOT EXISTS job_skill_tags (
  job_id INTEGER NOT NULL,
  tag TEXT NOT NULL,
  level TEXT NOT NULL CHECK (level IN ('required', 'preferred', 'nice')),
  confidence REAL CHECK (confidence IS NULL OR (confidence >= 0 AND confidence <= 1)),
  evidence TEXT NOT NULL,
  extracted_at TEXT NOT NULL,
  version TEXT NOT NULL,
  PRIMARY KEY (job_id, tag)
);`,
	`
CREATE INDEX IF NOT EXISTS idx_job_skill_tags_tag
ON job_skill_tags(tag);`,
}

// Migrate brings the schema up to date. It is a no-op on a current database.
func (s *Store) Migrate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= schemaVersion {
		return tx.Commit()
	}

	for _, stmt := range migrations {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d;`, schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}
