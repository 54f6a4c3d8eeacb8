package dts

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts discovery and relationship work. A nil *Metrics records
// nothing.
type Metrics struct {
	Documents     *prometheus.CounterVec
	FetchFailures prometheus.Counter
	Arcs          prometheus.Counter
	SetBuilds     prometheus.Counter
}

// NewMetrics registers the DTS counters on reg. A nil reg leaves the
// counters unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Documents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xbrlverify",
			Subsystem: "dts",
			Name:      "documents_loaded_total",
			Help:      "Documents loaded into a DTS, by document type.",
		}, []string{"type"}),
		FetchFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "xbrlverify",
			Subsystem: "dts",
			Name:      "fetch_failures_total",
			Help:      "Documents that could not be fetched or parsed.",
		}),
		Arcs: f.NewCounter(prometheus.CounterOpts{
			Namespace: "xbrlverify",
			Subsystem: "dts",
			Name:      "arcs_resolved_total",
			Help:      "Arcs resolved to endpoint pairs.",
		}),
		SetBuilds: f.NewCounter(prometheus.CounterOpts{
			Namespace: "xbrlverify",
			Subsystem: "dts",
			Name:      "relationship_set_builds_total",
			Help:      "Relationship set materializations, including rebuilds.",
		}),
	}
}

func (m *Metrics) documentLoaded(t DocumentType) {
	if m != nil {
		m.Documents.WithLabelValues(t.String()).Inc()
	}
}

func (m *Metrics) fetchFailed() {
	if m != nil {
		m.FetchFailures.Inc()
	}
}

func (m *Metrics) arcsResolved(n int) {
	if m != nil {
		m.Arcs.Add(float64(n))
	}
}

func (m *Metrics) setBuilt() {
	if m != nil {
		m.SetBuilds.Inc()
	}
}
