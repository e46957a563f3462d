package model

import "time"

type Role string

var (
	Upstream   Role = "upstream"
	Downstream Role = "downstream"
)

// PoolNode is one configured pool instance.
type PoolNode struct {
	URL  string `toml:"url"`
	Role Role   `toml:"role"`
}

// PoolNodeStats is one node's /stats report, normalized for a single aggregation cycle.
// Order is the node's position in the configuration.
type PoolNodeStats struct {
	URL                 string
	Role                Role
	Order               int
	PoolHashrate        uint64
	ConnectedMiners     uint64
	RoundHashes         uint64
	PoolBlocksFound     uint64
	LastTemplateFetched uint64
	LastBlockFound      uint64
	NetworkHashrate     uint64
	NetworkDifficulty   uint64
	NetworkHeight       uint64
	RespondedAt         time.Time
}

// NodeInfo is the per-node entry of a published snapshot.
type NodeInfo struct {
	URL      string `json:"url"`
	Hashrate uint64 `json:"hashrate"`
	Miners   uint64 `json:"miners"`
}

type AggregationMode string

var (
	ModeUpstream   AggregationMode = "upstream"
	ModeStandalone AggregationMode = "standalone"
)

// AggregatedSnapshot is the canonical pool view. JSON field names are consumed by dashboards.
type AggregatedSnapshot struct {
	PoolHashrate        uint64          `json:"pool_hashrate"`
	NetworkHashrate     uint64          `json:"network_hashrate"`
	NetworkDifficulty   uint64          `json:"network_difficulty"`
	NetworkHeight       uint64          `json:"network_height"`
	ConnectedMiners     uint64          `json:"connected_miners"`
	PoolBlocksFound     uint64          `json:"pool_blocks_found"`
	RoundHashes         uint64          `json:"round_hashes"`
	LastTemplateFetched uint64          `json:"last_template_fetched"`
	LastBlockFound      uint64          `json:"last_block_found"`
	PoolEffort          *float64        `json:"pool_effort,omitempty"`
	ActiveNodes         int             `json:"active_nodes"`
	TotalNodes          int             `json:"total_nodes"`
	Mode                AggregationMode `json:"mode"`
	Timestamp           int64           `json:"timestamp"`
	NodesInfo           []NodeInfo      `json:"nodes_info"`
}
