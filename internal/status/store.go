package status

import (
	"context"
	"time"
)

// Event is a raw regulatory event captured from an agency feed, kept
// alongside the canonical record for audit and user-facing timelines.
type Event struct {
	ID             int64
	NormalizedName string
	Agency         Agency
	EventType      string
	EventDate      *time.Time
	Title          string
	Detail         string
	SourceURL      string
	CreatedAt      time.Time
}

// Stats summarises the canonical table for the reporting endpoints.
type Stats struct {
	TotalDrugs    int            `json:"total_drugs"`
	ByLevel       map[string]int `json:"by_level"`
	ApprovedByAll int            `json:"approved_by_all"`
	LastUpdated   *time.Time     `json:"last_updated"`
}

// Store persists canonical drug records and their raw events.
// Implementations must honor a transaction carried in the context.
type Store interface {
	// Get returns the record for a normalized name, sentinel.ErrNotFound
	// when no record exists.
	Get(ctx context.Context, normalizedName string) (*GlobalStatus, error)

	// Upsert inserts or fully replaces the record keyed by its
	// NormalizedName.
	Upsert(ctx context.Context, s *GlobalStatus) error

	// List returns all records ordered by normalized name.
	List(ctx context.Context) ([]*GlobalStatus, error)

	// ListHot returns records with GlobalScore >= minScore ordered by
	// score descending, at most limit rows.
	ListHot(ctx context.Context, minScore, limit int) ([]*GlobalStatus, error)

	// ListByLevel returns records at the given level ordered by score
	// descending.
	ListByLevel(ctx context.Context, level HotIssueLevel) ([]*GlobalStatus, error)

	// Search matches the query case-insensitively against INN,
	// normalized name and agency brand names.
	Search(ctx context.Context, query string, limit int) ([]*GlobalStatus, error)

	// UpsertEvent records a raw agency event, deduplicated on
	// (normalized_name, agency, event_type, event_date). It reports
	// whether a new row was written.
	UpsertEvent(ctx context.Context, e *Event) (bool, error)

	// ListEvents returns the events for a drug, newest first.
	ListEvents(ctx context.Context, normalizedName string, limit int) ([]*Event, error)

	// Stats aggregates table-level counts.
	Stats(ctx context.Context) (*Stats, error)
}
