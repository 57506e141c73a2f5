// internal/app/system/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected" // client error: bad request, not found, conflict
	OutcomeError    = "error"    // internal failure
)

// Formation collects formation workflow metrics on its own registry so
// tests can build as many as they like.
type Formation struct {
	reg *prometheus.Registry

	ops         *prometheus.CounterVec
	groupSize   prometheus.Histogram
	allocRetry  prometheus.Counter
	sweptOrphan prometheus.Counter
}

// New builds a Formation metrics set with Go runtime and process collectors.
func New() *Formation {
	reg := prometheus.NewRegistry()
	m := &Formation{
		reg: reg,
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sparktrack",
			Subsystem: "formation",
			Name:      "operations_total",
			Help:      "Formation operations by name and outcome.",
		}, []string{"op", "outcome"}),
		groupSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sparktrack",
			Subsystem: "formation",
			Name:      "finalized_group_size",
			Help:      "Member count of finalized groups, leader included.",
			Buckets:   prometheus.LinearBuckets(2, 1, 7),
		}),
		allocRetry: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sparktrack",
			Subsystem: "formation",
			Name:      "allocation_retries_total",
			Help:      "Group-id allocations repeated after a duplicate-key collision.",
		}),
		sweptOrphan: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sparktrack",
			Subsystem: "formation",
			Name:      "orphan_invitations_swept_total",
			Help:      "Invitations removed by the sweeper because their draft is gone or closed.",
		}),
	}
	reg.MustRegister(
		m.ops, m.groupSize, m.allocRetry, m.sweptOrphan,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe counts one operation. All methods are nil-safe.
func (m *Formation) Observe(op, outcome string) {
	if m == nil {
		return
	}
	m.ops.WithLabelValues(op, outcome).Inc()
}

// GroupFinalized records the size of a newly finalized group.
func (m *Formation) GroupFinalized(members int) {
	if m == nil {
		return
	}
	m.groupSize.Observe(float64(members))
}

// AllocationRetried counts one re-allocation.
func (m *Formation) AllocationRetried() {
	if m == nil {
		return
	}
	m.allocRetry.Inc()
}

// OrphansSwept counts invitations removed by the sweeper.
func (m *Formation) OrphansSwept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.sweptOrphan.Add(float64(n))
}

// Registry exposes the underlying registry (tests, extra collectors).
func (m *Formation) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus text format.
func (m *Formation) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
