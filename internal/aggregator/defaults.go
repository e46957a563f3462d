package aggregator

import "time"

const (
	DefaultInterval       = 60 * time.Second
	DefaultConnectTimeout = 2 * time.Second
	DefaultRequestTimeout = 5 * time.Second
	DefaultSnapshotTTL    = 300 * time.Second
	DefaultSnapshotKey    = "pool:latest_stats"

	// AddressCookie carries the miner address on per-miner node requests.
	AddressCookie = "wa"

	maxStatsBodyBytes = 1 << 20
)

// Time series keys written on every full cycle.
const (
	MetricPoolHashrate      = "pool:hashrate"
	MetricPoolMiners        = "pool:miners"
	MetricPoolEffort        = "pool:effort"
	MetricNetworkHashrate   = "network:hashrate"
	MetricNetworkDifficulty = "network:difficulty"
)
