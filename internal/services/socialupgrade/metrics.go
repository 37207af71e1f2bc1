package socialupgrade

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts upgraded activities. A nil *Metrics records nothing.
type Metrics struct {
	activities *prometheus.CounterVec
	shifted    prometheus.Counter
}

// NewMetrics registers the upgrade collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		activities: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ldapsync",
			Subsystem: "social_upgrade",
			Name:      "activities_total",
			Help:      "Historical activities processed, by outcome",
		}, []string{"outcome"}),
		shifted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ldapsync",
			Subsystem: "social_upgrade",
			Name:      "shifted_total",
			Help:      "Historical activities whose create date was moved to avoid a collision",
		}),
	}
}

func (m *Metrics) record(r *ActivityResult) {
	if m == nil {
		return
	}
	m.activities.WithLabelValues(r.Outcome.String()).Inc()
	if r.Shifted() {
		m.shifted.Inc()
	}
}
