package routing

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "safepath"

// Metrics records search outcomes. A nil *Metrics is a valid no-op.
type Metrics struct {
	searchDuration *prometheus.HistogramVec
	nodesExplored  *prometheus.HistogramVec
	failures       *prometheus.CounterVec
	snapshotNodes  prometheus.Gauge
	snapshotEdges  prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		searchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "search",
				Name:      "duration_seconds",
				Help:      "Search wall-clock time by algorithm and profile",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
			},
			[]string{"algorithm", "profile"},
		),
		nodesExplored: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "search",
				Name:      "nodes_explored",
				Help:      "Nodes expanded per search by algorithm and profile",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
			},
			[]string{"algorithm", "profile"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "search",
				Name:      "failures_total",
				Help:      "Failed searches by algorithm and error kind",
			},
			[]string{"algorithm", "kind"},
		),
		snapshotNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "snapshot",
			Name:      "nodes",
			Help:      "Node count of the serving graph snapshot",
		}),
		snapshotEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "snapshot",
			Name:      "edges",
			Help:      "Edge count of the serving graph snapshot",
		}),
	}
	for _, c := range []prometheus.Collector{m.searchDuration, m.nodesExplored, m.failures, m.snapshotNodes, m.snapshotEdges} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) ObserveRoute(r *Route) {
	if m == nil || r == nil {
		return
	}
	labels := prometheus.Labels{"algorithm": string(r.Algorithm), "profile": r.Profile.String()}
	m.searchDuration.With(labels).Observe(r.Performance.ExecutionTimeMs / 1000)
	m.nodesExplored.With(labels).Observe(float64(r.Performance.NodesExplored))
}

func (m *Metrics) ObserveFailure(alg Algorithm, err error) {
	if m == nil || err == nil {
		return
	}
	m.failures.WithLabelValues(string(alg), Kind(err)).Inc()
}

// ObserveComparison records every entry of a comparison.
func (m *Metrics) ObserveComparison(c *Comparison) {
	if c == nil {
		return
	}
	m.ObserveEntries(c.Results)
}

func (m *Metrics) ObserveEntries(entries []ComparisonEntry) {
	if m == nil {
		return
	}
	for _, e := range entries {
		if e.Route != nil {
			m.ObserveRoute(e.Route)
			continue
		}
		m.ObserveFailure(e.Algorithm, e.err)
	}
}

func (m *Metrics) ObserveSnapshot(s *Snapshot) {
	if m == nil || s == nil || s.Graph == nil {
		return
	}
	m.snapshotNodes.Set(float64(s.Graph.NodeCount()))
	m.snapshotEdges.Set(float64(s.Graph.EdgeCount()))
}
