package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	PipelineRuns   prometheus.Counter
	DrugsUpserted  prometheus.Counter
	EventsUpserted prometheus.Counter
	ChangesByType  *prometheus.CounterVec
	RequestLatency *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		PipelineRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "regscope_pipeline_runs_total",
			Help: "Total number of merge/score/detect batch runs",
		}),
		DrugsUpserted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "regscope_drugs_upserted_total",
			Help: "Total number of drug status rows written",
		}),
		EventsUpserted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "regscope_events_upserted_total",
			Help: "Total number of per-agency regulatory event rows written",
		}),
		ChangesByType: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "regscope_changes_detected_total",
			Help: "Change log entries emitted, by change type",
		}, []string{"change_type"}),
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "regscope_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// IncChange bumps the per-type change counter; safe on a nil receiver so
// services can run without metrics in tests.
func (m *Metrics) IncChange(changeType string) {
	if m == nil {
		return
	}
	m.ChangesByType.WithLabelValues(changeType).Inc()
}
