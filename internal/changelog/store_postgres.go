package changelog

import (
	"context"
	"database/sql"
	"fmt"

	"regscope/pkg/platform/tx"
)

// Schema holds the DDL for the change log. Applied on startup; idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS drug_change_log (
    id              UUID PRIMARY KEY,
    normalized_name TEXT NOT NULL,
    change_type     TEXT NOT NULL,
    field_name      TEXT NOT NULL,
    old_value       TEXT NOT NULL DEFAULT '',
    new_value       TEXT NOT NULL DEFAULT '',
    pipeline_run_id TEXT NOT NULL DEFAULT '',
    detected_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_change_log_name ON drug_change_log (normalized_name, detected_at DESC);
CREATE INDEX IF NOT EXISTS idx_change_log_run ON drug_change_log (pipeline_run_id);
CREATE INDEX IF NOT EXISTS idx_change_log_detected ON drug_change_log (detected_at DESC);
`

// PostgresStore is the production Store backed by Postgres.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply changelog schema: %w", err)
	}
	return nil
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) exec(ctx context.Context) executor {
	if t := tx.From(ctx); t != nil {
		return t
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, e *Entry) error {
	_, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO drug_change_log (
			id, normalized_name, change_type, field_name,
			old_value, new_value, pipeline_run_id, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.NormalizedName, string(e.ChangeType), e.FieldName,
		e.OldValue, e.NewValue, e.PipelineRunID, e.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("append change for %q: %w", e.NormalizedName, err)
	}
	return nil
}

const entryColumns = `id, normalized_name, change_type, field_name,
       old_value, new_value, pipeline_run_id, detected_at`

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*Entry, error) {
	return s.query(ctx, `
		SELECT `+entryColumns+`
		FROM drug_change_log
		ORDER BY detected_at DESC, id
		LIMIT $1`, limit)
}

func (s *PostgresStore) ListByDrug(ctx context.Context, normalizedName string, limit int) ([]*Entry, error) {
	return s.query(ctx, `
		SELECT `+entryColumns+`
		FROM drug_change_log
		WHERE normalized_name = $1
		ORDER BY detected_at DESC, id
		LIMIT $2`, normalizedName, limit)
}

func (s *PostgresStore) ListByRun(ctx context.Context, runID string) ([]*Entry, error) {
	return s.query(ctx, `
		SELECT `+entryColumns+`
		FROM drug_change_log
		WHERE pipeline_run_id = $1
		ORDER BY detected_at, id`, runID)
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*Entry, error) {
	rows, err := s.exec(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query change log: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e := &Entry{}
		var changeType string
		if err := rows.Scan(&e.ID, &e.NormalizedName, &changeType, &e.FieldName,
			&e.OldValue, &e.NewValue, &e.PipelineRunID, &e.DetectedAt); err != nil {
			return nil, fmt.Errorf("scan change entry: %w", err)
		}
		e.ChangeType = ChangeType(changeType)
		out = append(out, e)
	}
	return out, rows.Err()
}
