package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Count of pool API requests.",
	}, []string{"route", "code"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "Duration of pool API requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "code"})
)

// API tracks metrics for the pool HTTP API.
type API struct{}

func NewAPI() *API {
	return &API{}
}

func (m API) ObserveRequest(route string, code int, started time.Time) {
	if route == "" {
		route = "unmatched"
	}
	c := strconv.Itoa(code)
	httpRequestsTotal.WithLabelValues(route, c).Inc()
	httpRequestDuration.WithLabelValues(route, c).Observe(time.Since(started).Seconds())
}
