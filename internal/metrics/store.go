package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "timeseries_store",
		Name:      "operations_total",
		Help:      "Count of time series store operations.",
	}, []string{"backend", "operation", "status"})
	storeRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "timeseries_store",
		Name:      "operation_duration_seconds",
		Help:      "Duration of time series store operations.",
		Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"backend", "operation", "status"})
)

// Store tracks metrics for time series backend operations.
type Store struct{}

func NewStore() *Store {
	return &Store{}
}

// Observe records duration and status of a store operation.
func (m Store) Observe(backend, operation string, err error, started time.Time) {
	if backend == "" {
		backend = "unknown"
	}
	status := statusOf(err)
	storeRequestsTotal.WithLabelValues(backend, operation, status).Inc()
	storeRequestDuration.WithLabelValues(backend, operation, status).Observe(time.Since(started).Seconds())
}
