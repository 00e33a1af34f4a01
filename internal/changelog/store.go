package changelog

import "context"

// Store persists change entries. Append-only: there is no update or delete.
// Implementations must honor a transaction carried in the context.
type Store interface {
	Append(ctx context.Context, e *Entry) error

	// ListRecent returns the newest entries first, at most limit rows.
	ListRecent(ctx context.Context, limit int) ([]*Entry, error)

	// ListByDrug returns a drug's entries, newest first.
	ListByDrug(ctx context.Context, normalizedName string, limit int) ([]*Entry, error)

	// ListByRun returns every entry a pipeline run produced, oldest first.
	ListByRun(ctx context.Context, runID string) ([]*Entry, error)
}
