package model

// MinerHashrateWindows is the number of averaging windows a node reports per miner.
const MinerHashrateWindows = 6

// MinerNodeStats is one node's view of a single miner, read from /stats with
// the miner's address cookie.
type MinerNodeStats struct {
	URL           string
	Order         int
	Hashrate      uint64
	Balance       uint64
	WorkerCount   uint64
	HashrateStats []uint64
}

// Known reports whether the node has any record of the miner.
func (s MinerNodeStats) Known() bool {
	return s.Hashrate > 0 || s.Balance > 0 || s.WorkerCount > 0
}

// MinerStats sums a miner over the nodes that know it.
type MinerStats struct {
	MinerHashrate      uint64   `json:"miner_hashrate"`
	MinerBalance       uint64   `json:"miner_balance"`
	WorkerCount        uint64   `json:"worker_count"`
	MinerHashrateStats []uint64 `json:"miner_hashrate_stats"`
	FoundOnNodes       []string `json:"found_on_nodes"`
}

// Worker is one rig connected under a miner's address.
type Worker struct {
	RigID    string `json:"rig_id"`
	Hashrate uint64 `json:"hashrate"`
	Node     string `json:"node"`
}
