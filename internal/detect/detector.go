// Package detect runs the persistence half of a pipeline batch: upsert every
// merged drug record, diff it against the stored state, and append one
// change-log entry per observed difference. The whole batch is one
// transaction; either all rows and change entries land or none do.
package detect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"regscope/internal/changelog"
	"regscope/internal/platform/metrics"
	"regscope/internal/status"
	"regscope/pkg/platform/sentinel"
)

// TxRunner wraps one batch in a transactional boundary. Production wires
// tx.RunInTx over the shared pool; tests use Passthrough.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// Passthrough runs the batch without a transaction, for memory stores.
func Passthrough(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Result summarises one batch run.
type Result struct {
	// Drugs is the number of status rows written.
	Drugs int
	// Events is the number of newly recorded per-agency events.
	Events int
	// Changes is the number of drugs that changed, not log entries.
	Changes int
	// ChangedKeys lists the normalized names that changed, sorted.
	ChangedKeys []string
	// Entries is the number of change-log entries appended.
	Entries int
}

// Detector applies merged batches to the stores.
type Detector struct {
	statuses  status.Store
	changes   changelog.Store
	run       TxRunner
	publisher *changelog.Publisher
	metrics   *metrics.Metrics
	log       *slog.Logger
	tracer    trace.Tracer
}

func New(statuses status.Store, changes changelog.Store, run TxRunner,
	publisher *changelog.Publisher, m *metrics.Metrics, log *slog.Logger) *Detector {
	return &Detector{
		statuses:  statuses,
		changes:   changes,
		run:       run,
		publisher: publisher,
		metrics:   m,
		log:       log,
		tracer:    otel.Tracer("regscope/detect"),
	}
}

// Detect upserts the batch and logs what changed. A non-empty runID opts
// into change logging; with an empty runID records are still written but
// the log stays untouched, which keeps backfills silent. Re-running the
// same batch with the same stored state appends nothing.
func (d *Detector) Detect(ctx context.Context, batch []*status.GlobalStatus, runID string) (*Result, error) {
	ctx, span := d.tracer.Start(ctx, "detect.batch",
		trace.WithAttributes(
			attribute.Int("batch.size", len(batch)),
			attribute.String("pipeline.run_id", runID),
		))
	defer span.End()

	result := &Result{}
	changedKeys := make(map[string]struct{})
	var appended []*changelog.Entry

	err := d.run(ctx, func(ctx context.Context) error {
		for _, s := range batch {
			entries, newEvents, err := d.applyOne(ctx, s, runID)
			if err != nil {
				return err
			}
			result.Drugs++
			result.Events += newEvents
			if len(entries) > 0 {
				changedKeys[s.NormalizedName] = struct{}{}
				appended = append(appended, entries...)
			}
		}
		return nil
	})
	if err != nil {
		// The whole batch rolled back; name its keys so the caller knows
		// what to retry.
		return nil, fmt.Errorf("apply batch %v: %w", batchKeys(batch), err)
	}

	result.Entries = len(appended)
	result.ChangedKeys = make([]string, 0, len(changedKeys))
	for k := range changedKeys {
		result.ChangedKeys = append(result.ChangedKeys, k)
	}
	sort.Strings(result.ChangedKeys)
	result.Changes = len(result.ChangedKeys)

	if d.metrics != nil {
		d.metrics.PipelineRuns.Inc()
		d.metrics.DrugsUpserted.Add(float64(result.Drugs))
		d.metrics.EventsUpserted.Add(float64(result.Events))
	}
	for _, e := range appended {
		d.metrics.IncChange(string(e.ChangeType))
	}

	// The transaction has committed; a feed failure loses nothing, the
	// log table stays authoritative.
	if err := d.publisher.Publish(ctx, appended); err != nil {
		d.log.Error("change feed publish failed", "entries", len(appended), "error", err)
	}

	d.log.Info("batch applied",
		"drugs", result.Drugs,
		"events", result.Events,
		"changed", result.Changes,
		"entries", result.Entries,
		"run_id", runID,
	)
	return result, nil
}

// applyOne upserts one record and returns the change entries it produced
// plus the number of newly written events.
func (d *Detector) applyOne(ctx context.Context, next *status.GlobalStatus, runID string) ([]*changelog.Entry, int, error) {
	prev, err := d.statuses.Get(ctx, next.NormalizedName)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		prev = nil
	case err != nil:
		return nil, 0, fmt.Errorf("load %q: %w", next.NormalizedName, err)
	}

	var entries []*changelog.Entry
	record := func(changeType changelog.ChangeType, field, oldValue, newValue string) {
		if runID == "" {
			return
		}
		entries = append(entries, changelog.New(
			next.NormalizedName, changeType, field, oldValue, newValue, runID))
	}

	// A brand-new drug logs exactly one new_drug entry; score, level and
	// per-agency entries only make sense against a previous row.
	if prev == nil {
		record(changelog.TypeNewDrug, "inn", "", next.INN)
	} else {
		if prev.GlobalScore != next.GlobalScore {
			record(changelog.TypeScoreChange, "global_score",
				strconv.Itoa(prev.GlobalScore), strconv.Itoa(next.GlobalScore))
		}
		if prev.HotIssueLevel != next.HotIssueLevel {
			record(changelog.TypeStatusChange, "hot_issue_level",
				string(prev.HotIssueLevel), string(next.HotIssueLevel))
		}
		d.recordApprovalTransitions(prev, next, record)
	}

	newEvents, err := d.applyEvents(ctx, next)
	if err != nil {
		return nil, 0, err
	}

	if err := d.statuses.Upsert(ctx, next); err != nil {
		return nil, 0, fmt.Errorf("upsert %q: %w", next.NormalizedName, err)
	}

	for _, e := range entries {
		if err := d.changes.Append(ctx, e); err != nil {
			return nil, 0, fmt.Errorf("append change for %q: %w", next.NormalizedName, err)
		}
	}
	return entries, newEvents, nil
}

func batchKeys(batch []*status.GlobalStatus) []string {
	keys := make([]string, 0, len(batch))
	for _, s := range batch {
		keys = append(keys, s.NormalizedName)
	}
	return keys
}

// recordApprovalTransitions logs one new_event per agency that became
// approved. Transitions away from approved update the row but are not
// logged; only newly appearing approvals feed alerting.
func (d *Detector) recordApprovalTransitions(prev, next *status.GlobalStatus,
	record func(changeType changelog.ChangeType, field, oldValue, newValue string)) {

	for _, agency := range status.Agencies {
		approval := next.Approval(agency)
		if approval == nil || approval.Status != status.StatusApproved {
			continue
		}
		prevApproval := prev.Approval(agency)
		if prevApproval == nil || prevApproval.Status != status.StatusApproved {
			record(changelog.TypeNewEvent, string(agency)+"_approval",
				"", string(status.StatusApproved))
		}
	}
}

// applyEvents writes one event row per approved agency; the store dedups
// repeats of the same approval.
func (d *Detector) applyEvents(ctx context.Context, next *status.GlobalStatus) (int, error) {
	newEvents := 0
	for _, agency := range status.Agencies {
		approval := next.Approval(agency)
		if approval == nil || approval.Status != status.StatusApproved {
			continue
		}

		written, err := d.statuses.UpsertEvent(ctx, &status.Event{
			NormalizedName: next.NormalizedName,
			Agency:         agency,
			EventType:      "approval",
			EventDate:      approval.ApprovalDate,
			Title:          approval.BrandName,
			Detail:         string(approval.Status),
			SourceURL:      approval.SourceURL,
		})
		if err != nil {
			return 0, fmt.Errorf("upsert %s event for %q: %w", agency, next.NormalizedName, err)
		}
		if written {
			newEvents++
		}
	}
	return newEvents, nil
}
