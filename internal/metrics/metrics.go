// Package metrics exposes pipeline counters and a health endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the pipeline.
type Metrics struct {
	RecordsTotal    prometheus.Counter
	RecordsValid    prometheus.Counter
	RecordsRejected *prometheus.CounterVec // labels: reason
	SymbolsScored   prometheus.Counter
	SymbolsFiltered prometheus.Counter
	ScoringErrors   prometheus.Counter
	RunsTotal       *prometheus.CounterVec // labels: status=ok|error|skipped
	RunDuration     prometheus.Histogram
	LastRunSuccess  prometheus.Gauge // unix seconds
}

// NewMetrics creates the collectors and registers them with reg.
// Pass prometheus.NewRegistry() in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RecordsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bhav_records_total",
			Help: "Data rows read from bhavcopy files",
		}),
		RecordsValid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bhav_records_valid_total",
			Help: "Rows that passed validation",
		}),
		RecordsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bhav_records_rejected_total",
			Help: "Rows rejected during validation",
		}, []string{"reason"}),
		SymbolsScored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bhav_symbols_scored_total",
			Help: "Symbols that passed the filter and were scored",
		}),
		SymbolsFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bhav_symbols_filtered_total",
			Help: "Symbols excluded by the pre-scoring filter",
		}),
		ScoringErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bhav_scoring_errors_total",
			Help: "Symbols that received a zero score because of a scoring error",
		}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bhav_runs_total",
			Help: "Pipeline runs by outcome",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bhav_run_duration_seconds",
			Help:    "Wall time of one pipeline run",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		LastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bhav_last_run_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}),
	}

	reg.MustRegister(
		m.RecordsTotal,
		m.RecordsValid,
		m.RecordsRejected,
		m.SymbolsScored,
		m.SymbolsFiltered,
		m.ScoringErrors,
		m.RunsTotal,
		m.RunDuration,
		m.LastRunSuccess,
	)
	return m
}

// ObserveIngest adds one batch's row counts.
func (m *Metrics) ObserveIngest(total, valid int) {
	m.RecordsTotal.Add(float64(total))
	m.RecordsValid.Add(float64(valid))
}

// Reject counts one rejected row.
func (m *Metrics) Reject(reason string) {
	m.RecordsRejected.WithLabelValues(reason).Inc()
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(status string, took time.Duration, finished time.Time) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(took.Seconds())
	if status == StatusOK {
		m.LastRunSuccess.Set(float64(finished.Unix()))
	}
}

// Run outcomes.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusSkipped = "skipped"
)
