package status

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"regscope/pkg/platform/sentinel"
	"regscope/pkg/platform/tx"
)

// Schema holds the DDL for the canonical drug table and its raw events.
// Applied on startup; every statement is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS global_status (
    normalized_name   TEXT PRIMARY KEY,
    inn               TEXT NOT NULL,
    atc_code          TEXT NOT NULL DEFAULT '',
    fda               JSONB,
    ema               JSONB,
    mfds              JSONB,
    who_eml           BOOLEAN NOT NULL DEFAULT FALSE,
    global_score      INTEGER NOT NULL DEFAULT 0,
    hot_issue_level   TEXT NOT NULL DEFAULT 'LOW',
    hot_issue_reasons TEXT[] NOT NULL DEFAULT '{}',
    last_updated      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_global_status_score ON global_status (global_score DESC);
CREATE INDEX IF NOT EXISTS idx_global_status_level ON global_status (hot_issue_level);

CREATE TABLE IF NOT EXISTS regulatory_events (
    id              BIGSERIAL PRIMARY KEY,
    normalized_name TEXT NOT NULL,
    agency          TEXT NOT NULL,
    event_type      TEXT NOT NULL,
    event_date      DATE,
    title           TEXT NOT NULL DEFAULT '',
    detail          TEXT NOT NULL DEFAULT '',
    source_url      TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE NULLS NOT DISTINCT (normalized_name, agency, event_type, event_date)
);

CREATE INDEX IF NOT EXISTS idx_regulatory_events_name ON regulatory_events (normalized_name, id DESC);
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
		return fmt.Errorf("apply status schema: %w", err)
	}
	return nil
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// exec returns the transaction carried in the context when present,
// otherwise the pool.
func (s *PostgresStore) exec(ctx context.Context) executor {
	if t := tx.From(ctx); t != nil {
		return t
	}
	return s.db
}

const statusColumns = `normalized_name, inn, atc_code, fda, ema, mfds, who_eml,
       global_score, hot_issue_level, hot_issue_reasons, last_updated`

func (s *PostgresStore) Get(ctx context.Context, normalizedName string) (*GlobalStatus, error) {
	row := s.exec(ctx).QueryRowContext(ctx, `
		SELECT `+statusColumns+`
		FROM global_status
		WHERE normalized_name = $1`, normalizedName)
	return scanStatus(row)
}

func (s *PostgresStore) Upsert(ctx context.Context, gs *GlobalStatus) error {
	fda, err := marshalApproval(gs.FDA)
	if err != nil {
		return err
	}
	ema, err := marshalApproval(gs.EMA)
	if err != nil {
		return err
	}
	mfds, err := marshalApproval(gs.MFDS)
	if err != nil {
		return err
	}

	_, err = s.exec(ctx).ExecContext(ctx, `
		INSERT INTO global_status (
			normalized_name, inn, atc_code, fda, ema, mfds, who_eml,
			global_score, hot_issue_level, hot_issue_reasons, last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (normalized_name) DO UPDATE SET
			inn               = EXCLUDED.inn,
			atc_code          = EXCLUDED.atc_code,
			fda               = EXCLUDED.fda,
			ema               = EXCLUDED.ema,
			mfds              = EXCLUDED.mfds,
			who_eml           = EXCLUDED.who_eml,
			global_score      = EXCLUDED.global_score,
			hot_issue_level   = EXCLUDED.hot_issue_level,
			hot_issue_reasons = EXCLUDED.hot_issue_reasons,
			last_updated      = EXCLUDED.last_updated`,
		gs.NormalizedName, gs.INN, gs.ATCCode, fda, ema, mfds, gs.WHOEssential,
		gs.GlobalScore, string(gs.HotIssueLevel), pq.Array(gs.HotIssueReasons),
		gs.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("upsert global status %q: %w", gs.NormalizedName, err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*GlobalStatus, error) {
	return s.queryStatuses(ctx, `
		SELECT `+statusColumns+`
		FROM global_status
		ORDER BY normalized_name`)
}

func (s *PostgresStore) ListHot(ctx context.Context, minScore, limit int) ([]*GlobalStatus, error) {
	return s.queryStatuses(ctx, `
		SELECT `+statusColumns+`
		FROM global_status
		WHERE global_score >= $1
		ORDER BY global_score DESC, normalized_name
		LIMIT $2`, minScore, limit)
}

func (s *PostgresStore) ListByLevel(ctx context.Context, level HotIssueLevel) ([]*GlobalStatus, error) {
	return s.queryStatuses(ctx, `
		SELECT `+statusColumns+`
		FROM global_status
		WHERE hot_issue_level = $1
		ORDER BY global_score DESC, normalized_name`, string(level))
}

func (s *PostgresStore) Search(ctx context.Context, query string, limit int) ([]*GlobalStatus, error) {
	pattern := "%" + query + "%"
	return s.queryStatuses(ctx, `
		SELECT `+statusColumns+`
		FROM global_status
		WHERE inn ILIKE $1
		   OR normalized_name ILIKE $1
		   OR fda->>'BrandName' ILIKE $1
		   OR ema->>'BrandName' ILIKE $1
		   OR mfds->>'BrandName' ILIKE $1
		ORDER BY global_score DESC, normalized_name
		LIMIT $2`, pattern, limit)
}

func (s *PostgresStore) queryStatuses(ctx context.Context, query string, args ...any) ([]*GlobalStatus, error) {
	rows, err := s.exec(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query global status: %w", err)
	}
	defer rows.Close()

	var out []*GlobalStatus
	for rows.Next() {
		gs, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, gs)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpsertEvent(ctx context.Context, e *Event) (bool, error) {
	res, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO regulatory_events (
			normalized_name, agency, event_type, event_date, title, detail, source_url
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (normalized_name, agency, event_type, event_date) DO NOTHING`,
		e.NormalizedName, string(e.Agency), e.EventType, e.EventDate,
		e.Title, e.Detail, e.SourceURL,
	)
	if err != nil {
		return false, fmt.Errorf("upsert event for %q: %w", e.NormalizedName, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, normalizedName string, limit int) ([]*Event, error) {
	rows, err := s.exec(ctx).QueryContext(ctx, `
		SELECT id, normalized_name, agency, event_type, event_date, title, detail, source_url, created_at
		FROM regulatory_events
		WHERE normalized_name = $1
		ORDER BY id DESC
		LIMIT $2`, normalizedName, limit)
	if err != nil {
		return nil, fmt.Errorf("list events for %q: %w", normalizedName, err)
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		e := &Event{}
		var agency string
		var eventDate sql.NullTime
		if err := rows.Scan(&e.ID, &e.NormalizedName, &agency, &e.EventType,
			&eventDate, &e.Title, &e.Detail, &e.SourceURL, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Agency = Agency(agency)
		if eventDate.Valid {
			t := eventDate.Time
			e.EventDate = &t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByLevel: map[string]int{}}

	rows, err := s.exec(ctx).QueryContext(ctx, `
		SELECT hot_issue_level, COUNT(*)
		FROM global_status
		GROUP BY hot_issue_level`)
	if err != nil {
		return nil, fmt.Errorf("status stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var level string
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			return nil, err
		}
		stats.ByLevel[level] = count
		stats.TotalDrugs += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var last sql.NullTime
	err = s.exec(ctx).QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE fda->>'Status' = 'approved'
		                          AND ema->>'Status' = 'approved'
		                          AND mfds->>'Status' = 'approved'),
		       MAX(last_updated)
		FROM global_status`).Scan(&stats.ApprovedByAll, &last)
	if err != nil {
		return nil, fmt.Errorf("status stats: %w", err)
	}
	if last.Valid {
		t := last.Time
		stats.LastUpdated = &t
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStatus(row rowScanner) (*GlobalStatus, error) {
	gs := &GlobalStatus{}
	var fda, ema, mfds []byte
	var level string
	var reasons pq.StringArray

	err := row.Scan(&gs.NormalizedName, &gs.INN, &gs.ATCCode, &fda, &ema, &mfds,
		&gs.WHOEssential, &gs.GlobalScore, &level, &reasons, &gs.LastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan global status: %w", err)
	}

	gs.HotIssueLevel = HotIssueLevel(level)
	gs.HotIssueReasons = []string(reasons)
	if gs.FDA, err = unmarshalApproval(fda); err != nil {
		return nil, err
	}
	if gs.EMA, err = unmarshalApproval(ema); err != nil {
		return nil, err
	}
	if gs.MFDS, err = unmarshalApproval(mfds); err != nil {
		return nil, err
	}
	return gs, nil
}

func marshalApproval(a *Approval) ([]byte, error) {
	if a == nil {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal approval: %w", err)
	}
	return b, nil
}

func unmarshalApproval(b []byte) (*Approval, error) {
	if len(b) == 0 {
		return nil, nil
	}
	a := &Approval{}
	if err := json.Unmarshal(b, a); err != nil {
		return nil, fmt.Errorf("unmarshal approval: %w", err)
	}
	return a, nil
}
