package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aggregatorCycleTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "aggregator",
		Name:      "cycle_total",
		Help:      "Count of aggregation cycles.",
	}, []string{"mode", "status"})

	aggregatorCycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "aggregator",
		Name:      "cycle_duration_seconds",
		Help:      "Duration of an aggregation cycle.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"mode", "status"})

	aggregatorActiveNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "aggregator",
		Name:      "active_nodes",
		Help:      "Pool nodes that answered in the last cycle.",
	})

	aggregatorNodeFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "aggregator",
		Name:      "node_fetch_total",
		Help:      "Count of per-node stats fetches.",
	}, []string{"node", "status"})

	aggregatorNodeFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "aggregator",
		Name:      "node_fetch_duration_seconds",
		Help:      "Duration of a per-node stats fetch.",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"node", "status"})
)

// Aggregator tracks metrics for the node stats aggregator.
type Aggregator struct{}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// ObserveCycle records one cycle and the responders it saw.
func (m Aggregator) ObserveCycle(mode string, err error, activeNodes int, started time.Time) {
	status := statusOf(err)
	aggregatorCycleTotal.WithLabelValues(mode, status).Inc()
	aggregatorCycleDuration.WithLabelValues(mode, status).Observe(time.Since(started).Seconds())
	aggregatorActiveNodes.Set(float64(activeNodes))
}

func (m Aggregator) ObserveNode(url string, err error, started time.Time) {
	status := statusOf(err)
	aggregatorNodeFetchTotal.WithLabelValues(url, status).Inc()
	aggregatorNodeFetchDuration.WithLabelValues(url, status).Observe(time.Since(started).Seconds())
}
