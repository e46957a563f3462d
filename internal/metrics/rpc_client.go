package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	daemonRPCRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "daemon_rpc",
		Name:      "operations_total",
		Help:      "Count of daemon JSON-RPC operations.",
	}, []string{"operation", "status"})
	daemonRPCRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "daemon_rpc",
		Name:      "operation_duration_seconds",
		Help:      "Duration of daemon JSON-RPC operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})
)

// RPCClient tracks metrics for JSON-RPC calls to the coin daemon.
type RPCClient struct{}

func NewRPCClient() *RPCClient {
	return &RPCClient{}
}

// Observe records a single RPC call outcome and duration.
func (m RPCClient) Observe(operation string, err error, started time.Time) {
	status := statusOf(err)
	daemonRPCRequestsTotal.WithLabelValues(operation, status).Inc()
	daemonRPCRequestDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}
