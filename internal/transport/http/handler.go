// Package http exposes the read API over the canonical drug records and the
// change log. All endpoints are read-only; writes happen through the
// pipeline, never through HTTP.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"regscope/internal/changelog"
	"regscope/internal/normalize"
	"regscope/internal/status"
	"regscope/pkg/platform/sentinel"
)

const (
	defaultHotMinScore = 60
	defaultHotLimit    = 20
	defaultListLimit   = 50
	maxListLimit       = 500
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler serves the drug status read API.
type Handler struct {
	log       *slog.Logger
	statuses  status.Store
	changes   changelog.Store
	checks    map[string]HealthChecker
	matcher   *normalize.Normalizer
	threshold float64
}

func New(statuses status.Store, changes changelog.Store, log *slog.Logger) *Handler {
	return &Handler{
		log:      log,
		statuses: statuses,
		changes:  changes,
		checks:   map[string]HealthChecker{},
	}
}

// WithMatcher enables fuzzy resolution on single-drug lookups: a name that
// misses exactly is matched against the stored keys before returning 404.
func (h *Handler) WithMatcher(matcher *normalize.Normalizer, threshold float64) *Handler {
	h.matcher = matcher
	h.threshold = threshold
	return h
}

// AddHealthCheck registers a named dependency for /healthz.
func (h *Handler) AddHealthCheck(name string, check HealthChecker) {
	if check != nil {
		h.checks[name] = check
	}
}

// Register mounts the API routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/drugs", h.handleListDrugs)
	r.Get("/drugs/hot", h.handleHotDrugs)
	r.Get("/drugs/search", h.handleSearchDrugs)
	r.Get("/drugs/{name}", h.handleGetDrug)
	r.Get("/drugs/{name}/changes", h.handleDrugChanges)
	r.Get("/changes/recent", h.handleRecentChanges)
	r.Get("/stats", h.handleStats)
	r.Get("/healthz", h.handleHealth)
}

func (h *Handler) handleListDrugs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		drugs []*status.GlobalStatus
		err   error
	)
	if level := strings.ToUpper(r.URL.Query().Get("level")); level != "" {
		switch status.HotIssueLevel(level) {
		case status.LevelHot, status.LevelHigh, status.LevelMid, status.LevelLow:
			drugs, err = h.statuses.ListByLevel(ctx, status.HotIssueLevel(level))
		default:
			writeError(w, http.StatusBadRequest, "unknown level: "+level)
			return
		}
	} else {
		drugs, err = h.statuses.List(ctx)
	}
	if err != nil {
		h.serverError(w, r, "list drugs", err)
		return
	}
	writeJSON(w, http.StatusOK, drugMaps(drugs))
}

func (h *Handler) handleHotDrugs(w http.ResponseWriter, r *http.Request) {
	minScore := queryInt(r, "min_score", defaultHotMinScore)
	limit := clampLimit(queryInt(r, "limit", defaultHotLimit))

	drugs, err := h.statuses.ListHot(r.Context(), minScore, limit)
	if err != nil {
		h.serverError(w, r, "list hot drugs", err)
		return
	}
	writeJSON(w, http.StatusOK, drugMaps(drugs))
}

func (h *Handler) handleSearchDrugs(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	limit := clampLimit(queryInt(r, "limit", defaultListLimit))

	drugs, err := h.statuses.Search(r.Context(), q, limit)
	if err != nil {
		h.serverError(w, r, "search drugs", err)
		return
	}
	writeJSON(w, http.StatusOK, drugMaps(drugs))
}

func (h *Handler) handleGetDrug(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")

	drug, err := h.statuses.Get(ctx, name)
	if errors.Is(err, sentinel.ErrNotFound) && h.matcher != nil {
		if resolved := h.resolveFuzzy(ctx, name); resolved != "" {
			name = resolved
			drug, err = h.statuses.Get(ctx, name)
		}
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		writeError(w, http.StatusNotFound, "drug not found: "+name)
		return
	}
	if err != nil {
		h.serverError(w, r, "get drug", err)
		return
	}

	events, err := h.statuses.ListEvents(ctx, name, defaultListLimit)
	if err != nil {
		h.serverError(w, r, "list drug events", err)
		return
	}

	body := drug.ToMap()
	body["events"] = eventMaps(events)
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) handleDrugChanges(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	limit := clampLimit(queryInt(r, "limit", defaultListLimit))

	entries, err := h.changes.ListByDrug(r.Context(), name, limit)
	if err != nil {
		h.serverError(w, r, "list drug changes", err)
		return
	}
	writeJSON(w, http.StatusOK, entriesOrEmpty(entries))
}

func (h *Handler) handleRecentChanges(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if runID := r.URL.Query().Get("run_id"); runID != "" {
		entries, err := h.changes.ListByRun(ctx, runID)
		if err != nil {
			h.serverError(w, r, "list changes by run", err)
			return
		}
		writeJSON(w, http.StatusOK, entriesOrEmpty(entries))
		return
	}

	limit := clampLimit(queryInt(r, "limit", defaultListLimit))
	entries, err := h.changes.ListRecent(ctx, limit)
	if err != nil {
		h.serverError(w, r, "list recent changes", err)
		return
	}
	writeJSON(w, http.StatusOK, entriesOrEmpty(entries))
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statuses.Stats(r.Context())
	if err != nil {
		h.serverError(w, r, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	result := map[string]string{}
	healthy := true
	for name, check := range h.checks {
		if err := check.Health(ctx); err != nil {
			result[name] = err.Error()
			healthy = false
		} else {
			result[name] = "ok"
		}
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"healthy": healthy, "checks": result})
}

// resolveFuzzy matches a missed lookup name against every stored key.
func (h *Handler) resolveFuzzy(ctx context.Context, name string) string {
	all, err := h.statuses.List(ctx)
	if err != nil {
		h.log.Warn("fuzzy resolution skipped", "error", err)
		return ""
	}
	keys := make([]string, 0, len(all))
	for _, d := range all {
		keys = append(keys, d.NormalizedName)
	}
	return h.matcher.FuzzyMatch(name, keys, h.threshold)
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.log.Error(op+" failed", "error", err, "request_id", RequestIDFrom(r.Context()))
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func drugMaps(drugs []*status.GlobalStatus) []map[string]any {
	out := make([]map[string]any, 0, len(drugs))
	for _, d := range drugs {
		out = append(out, d.ToMap())
	}
	return out
}

func eventMaps(events []*status.Event) []map[string]any {
	out := make([]map[string]any, 0, len(events))
	for _, e := range events {
		var date any
		if e.EventDate != nil {
			date = e.EventDate.Format("2006-01-02")
		}
		out = append(out, map[string]any{
			"agency":     string(e.Agency),
			"event_type": e.EventType,
			"event_date": date,
			"title":      e.Title,
			"detail":     e.Detail,
			"source_url": e.SourceURL,
		})
	}
	return out
}

func entriesOrEmpty(entries []*changelog.Entry) []*changelog.Entry {
	if entries == nil {
		return []*changelog.Entry{}
	}
	return entries
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func clampLimit(limit int) int {
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
