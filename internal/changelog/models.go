// Package changelog is the append-only record of what each pipeline run
// changed. Entries are never updated or deleted; downstream alerting reads
// the log instead of diffing snapshots.
package changelog

import (
	"time"

	"github.com/google/uuid"
)

// ChangeType classifies one logged change.
type ChangeType string

const (
	TypeNewDrug      ChangeType = "new_drug"
	TypeScoreChange  ChangeType = "score_change"
	TypeStatusChange ChangeType = "status_change"
	TypeNewEvent     ChangeType = "new_event"
)

// Entry is one append-only change record. OldValue is empty for new_drug
// and new_event entries.
type Entry struct {
	ID             uuid.UUID  `json:"id"`
	NormalizedName string     `json:"normalized_name"`
	ChangeType     ChangeType `json:"change_type"`
	FieldName      string     `json:"field_name"`
	OldValue       string     `json:"old_value"`
	NewValue       string     `json:"new_value"`
	PipelineRunID  string     `json:"pipeline_run_id"`
	DetectedAt     time.Time  `json:"detected_at"`
}

// New builds an entry with a fresh id and timestamp.
func New(normalizedName string, changeType ChangeType, fieldName, oldValue, newValue, runID string) *Entry {
	return &Entry{
		ID:             uuid.New(),
		NormalizedName: normalizedName,
		ChangeType:     changeType,
		FieldName:      fieldName,
		OldValue:       oldValue,
		NewValue:       newValue,
		PipelineRunID:  runID,
		DetectedAt:     time.Now().UTC(),
	}
}
