package ldapsync

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gotrs-io/gotrs-ldapsync/internal/models"
)

// Metrics tracks import outcomes. A nil *Metrics records nothing.
type Metrics struct {
	decisions   *prometheus.CounterVec
	groups      *prometheus.CounterVec
	failures    *prometheus.CounterVec
	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
	lastSuccess prometheus.Gauge
}

// NewMetrics registers the sync collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ldapsync",
			Name:      "user_decisions_total",
			Help:      "Directory users reconciled, by decision",
		}, []string{"decision"}),
		groups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ldapsync",
			Name:      "group_imports_total",
			Help:      "Directory groups imported, by outcome",
		}, []string{"outcome"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ldapsync",
			Name:      "import_failures_total",
			Help:      "Directory entries whose import failed",
		}, []string{"kind"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ldapsync",
			Name:      "runs_total",
			Help:      "Batch sync runs, by final status",
		}, []string{"status"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ldapsync",
			Name:      "run_duration_seconds",
			Help:      "Batch sync run duration",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "ldapsync",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last completed batch sync run",
		}),
	}
}

func (m *Metrics) decision(d models.SyncDecision) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(d.String()).Inc()
}

func (m *Metrics) group(g *GroupImport) {
	if m == nil {
		return
	}
	outcome := "unchanged"
	switch {
	case g.CreateErr != nil:
		outcome = "create_failed"
	case g.Created:
		outcome = "created"
	case g.Updated:
		outcome = "updated"
	}
	m.groups.WithLabelValues(outcome).Inc()
}

func (m *Metrics) failure(kind string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(kind).Inc()
}

func (m *Metrics) run(status string, took time.Duration, finished time.Time) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
	m.runDuration.Observe(took.Seconds())
	if status == models.SyncStatusCompleted {
		m.lastSuccess.Set(float64(finished.Unix()))
	}
}
