package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/verity/verity/internal/model"
)

// Metrics provides observability for verification runs.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Run outcomes by entrypoint (check, directory) and result
	Runs *prometheus.CounterVec

	// Per-document stage latencies (fetching, rendering, extracting)
	StageLatency *prometheus.HistogramVec

	// Documents excluded from a run, by the stage that failed
	DocumentsExcluded *prometheus.CounterVec

	// Documents that produced facts
	DocumentsUsable prometheus.Counter

	// Alerts raised by check name
	Alerts *prometheus.CounterVec

	// Whole-run latency
	RunLatency prometheus.Histogram
}

// New creates and registers the metrics on reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_runs_total",
			Help: "Total verification runs by entrypoint and result",
		}, []string{"entrypoint", "result"}),

		StageLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "verity_document_stage_duration_seconds",
			Help:    "Duration of per-document pipeline stages",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage"}),

		DocumentsExcluded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_documents_excluded_total",
			Help: "Documents excluded from a run by failing stage",
		}, []string{"stage"}),

		DocumentsUsable: factory.NewCounter(prometheus.CounterOpts{
			Name: "verity_documents_usable_total",
			Help: "Documents that produced extracted facts",
		}),

		Alerts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_alerts_total",
			Help: "Alerts raised by check",
		}, []string{"check", "severity"}),

		RunLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "verity_run_duration_seconds",
			Help:    "Duration of a full verification run",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
	}
}

// ObserveStage records how long one document spent in a stage
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m != nil {
		m.StageLatency.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// IncrementExcluded records a document dropped at stage
func (m *Metrics) IncrementExcluded(stage string) {
	if m != nil {
		m.DocumentsExcluded.WithLabelValues(stage).Inc()
	}
}

// IncrementUsable records a document that produced facts
func (m *Metrics) IncrementUsable() {
	if m != nil {
		m.DocumentsUsable.Inc()
	}
}

// RecordAlerts counts alerts by check and severity
func (m *Metrics) RecordAlerts(alerts []model.Alert) {
	if m == nil {
		return
	}
	for _, a := range alerts {
		m.Alerts.WithLabelValues(a.Check, string(a.Severity)).Inc()
	}
}

// ObserveRun records a finished run
func (m *Metrics) ObserveRun(entrypoint, result string, d time.Duration) {
	if m != nil {
		m.Runs.WithLabelValues(entrypoint, result).Inc()
		m.RunLatency.Observe(d.Seconds())
	}
}
