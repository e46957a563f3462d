package aggregator

import (
	"math/big"
	"sort"
	"time"

	"github.com/goodnatureofminers/pool-coordinator/internal/model"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Reduce folds one cycle's responders into a snapshot. results must be in
// completion order and non-empty.
//
// When an upstream responded its pool totals are taken verbatim, since the
// upstream already counts the work of its downstream nodes. Otherwise the
// totals are summed over every responder. Network fields come from the last
// responder; the two timestamps are maxima.
func Reduce(results []model.PoolNodeStats, totalNodes int, now time.Time) *model.AggregatedSnapshot {
	snap := &model.AggregatedSnapshot{
		ActiveNodes: len(results),
		TotalNodes:  totalNodes,
		Timestamp:   now.Unix(),
		Mode:        model.ModeStandalone,
		NodesInfo:   make([]model.NodeInfo, 0, len(results)),
	}
	if len(results) == 0 {
		return snap
	}

	var upstream *model.PoolNodeStats
	for i := range results {
		r := &results[i]
		if r.Role == model.Upstream && (upstream == nil || r.Order < upstream.Order) {
			upstream = r
		}
		snap.LastTemplateFetched = max(snap.LastTemplateFetched, r.LastTemplateFetched)
		snap.LastBlockFound = max(snap.LastBlockFound, r.LastBlockFound)
	}

	last := results[len(results)-1]
	snap.NetworkHashrate = last.NetworkHashrate
	snap.NetworkDifficulty = last.NetworkDifficulty
	snap.NetworkHeight = last.NetworkHeight

	if upstream != nil {
		snap.Mode = model.ModeUpstream
		snap.PoolHashrate = upstream.PoolHashrate
		snap.ConnectedMiners = upstream.ConnectedMiners
		snap.PoolBlocksFound = upstream.PoolBlocksFound
		snap.RoundHashes = upstream.RoundHashes
	} else {
		for _, r := range results {
			snap.PoolHashrate += r.PoolHashrate
			snap.ConnectedMiners += r.ConnectedMiners
			snap.PoolBlocksFound += r.PoolBlocksFound
			snap.RoundHashes += r.RoundHashes
		}
	}

	ordered := make([]model.PoolNodeStats, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })
	for _, r := range ordered {
		snap.NodesInfo = append(snap.NodesInfo, model.NodeInfo{
			URL:      r.URL,
			Hashrate: r.PoolHashrate,
			Miners:   r.ConnectedMiners,
		})
	}

	snap.PoolEffort = Effort(snap.RoundHashes, snap.NetworkDifficulty)
	return snap
}

// Effort is round hashes as a percentage of network difficulty, rounded to two
// decimals. It is nil unless both inputs are positive.
func Effort(roundHashes, difficulty uint64) *float64 {
	if roundHashes == 0 || difficulty == 0 {
		return nil
	}
	hashes := decimal.NewFromBigInt(new(big.Int).SetUint64(roundHashes), 0)
	diff := decimal.NewFromBigInt(new(big.Int).SetUint64(difficulty), 0)
	effort, _ := hashes.Mul(hundred).Div(diff).Round(2).Float64()
	return &effort
}

// ReduceMiner sums the nodes that know the miner, listing them in
// configuration order. It returns nil when none does.
func ReduceMiner(results []model.MinerNodeStats) *model.MinerStats {
	ordered := make([]model.MinerNodeStats, 0, len(results))
	for _, r := range results {
		if r.Known() {
			ordered = append(ordered, r)
		}
	}
	if len(ordered) == 0 {
		return nil
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	stats := &model.MinerStats{
		MinerHashrateStats: make([]uint64, model.MinerHashrateWindows),
		FoundOnNodes:       make([]string, 0, len(ordered)),
	}
	for _, r := range ordered {
		stats.MinerHashrate += r.Hashrate
		stats.MinerBalance += r.Balance
		stats.WorkerCount += r.WorkerCount
		for i := 0; i < len(r.HashrateStats) && i < model.MinerHashrateWindows; i++ {
			stats.MinerHashrateStats[i] += r.HashrateStats[i]
		}
		stats.FoundOnNodes = append(stats.FoundOnNodes, r.URL)
	}
	return stats
}
