package aggregator

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goodnatureofminers/pool-coordinator/internal/jsonx"
	"github.com/goodnatureofminers/pool-coordinator/internal/model"
	"github.com/goodnatureofminers/pool-coordinator/pkg/safe"
)

// ErrEmptyStats marks a node that answered without a stats object.
var ErrEmptyStats = errors.New("empty stats payload")

// lenientUint decodes any JSON value into a non-negative integer. Missing,
// null, negative or non-numeric values decode to 0 and never fail.
type lenientUint uint64

func (u *lenientUint) UnmarshalJSON(data []byte) error {
	*u = 0
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		return nil
	}
	if s[0] == '"' {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return nil
		}
		s = strings.TrimSpace(unquoted)
	}
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		*u = lenientUint(v)
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if v, err := safe.FloatToUint64(f); err == nil {
			*u = lenientUint(v)
		}
	}
	return nil
}

type statsPayload struct {
	PoolHashrate        lenientUint `json:"pool_hashrate"`
	ConnectedMiners     lenientUint `json:"connected_miners"`
	RoundHashes         lenientUint `json:"round_hashes"`
	PoolBlocksFound     lenientUint `json:"pool_blocks_found"`
	LastTemplateFetched lenientUint `json:"last_template_fetched"`
	LastBlockFound      lenientUint `json:"last_block_found"`
	NetworkHashrate     lenientUint `json:"network_hashrate"`
	NetworkDifficulty   lenientUint `json:"network_difficulty"`
	NetworkHeight       lenientUint `json:"network_height"`
}

// ParseStats decodes a node's /stats body. Only an empty, null or non-object
// body is an error; individual fields fall back to zero.
func ParseStats(body []byte) (*model.PoolNodeStats, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, ErrEmptyStats
	}
	if body[0] != '{' {
		return nil, fmt.Errorf("stats payload is not an object: %q", truncate(body, 32))
	}

	var p statsPayload
	if err := jsonx.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode stats payload: %w", err)
	}

	return &model.PoolNodeStats{
		PoolHashrate:        uint64(p.PoolHashrate),
		ConnectedMiners:     uint64(p.ConnectedMiners),
		RoundHashes:         uint64(p.RoundHashes),
		PoolBlocksFound:     uint64(p.PoolBlocksFound),
		LastTemplateFetched: uint64(p.LastTemplateFetched),
		LastBlockFound:      uint64(p.LastBlockFound),
		NetworkHashrate:     uint64(p.NetworkHashrate),
		NetworkDifficulty:   uint64(p.NetworkDifficulty),
		NetworkHeight:       uint64(p.NetworkHeight),
	}, nil
}

type minerPayload struct {
	MinerHashrate      lenientUint   `json:"miner_hashrate"`
	MinerBalance       lenientUint   `json:"miner_balance"`
	WorkerCount        lenientUint   `json:"worker_count"`
	MinerHashrateStats []lenientUint `json:"miner_hashrate_stats"`
}

// ParseMinerStats decodes the miner fields a node adds to /stats when the
// request carries an address cookie. Missing fields read as zero.
func ParseMinerStats(body []byte) (*model.MinerNodeStats, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, ErrEmptyStats
	}
	if body[0] != '{' {
		return nil, fmt.Errorf("stats payload is not an object: %q", truncate(body, 32))
	}

	var p minerPayload
	if err := jsonx.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode miner payload: %w", err)
	}

	stats := &model.MinerNodeStats{
		Hashrate:      uint64(p.MinerHashrate),
		Balance:       uint64(p.MinerBalance),
		WorkerCount:   uint64(p.WorkerCount),
		HashrateStats: make([]uint64, model.MinerHashrateWindows),
	}
	for i := 0; i < len(p.MinerHashrateStats) && i < model.MinerHashrateWindows; i++ {
		stats.HashrateStats[i] = uint64(p.MinerHashrateStats[i])
	}
	return stats, nil
}

type workerPayload struct {
	RigID    string      `json:"rig_id"`
	Hashrate lenientUint `json:"hashrate"`
}

// ParseWorkers decodes a node's /workers body. Nodes answer either with an
// array of objects or with a flat array of alternating rig id and hashrate.
func ParseWorkers(body []byte) ([]model.Worker, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return []model.Worker{}, nil
	}

	var items []jsonx.RawMessage
	if err := jsonx.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode workers payload: %w", err)
	}

	workers := make([]model.Worker, 0, len(items))
	for i := 0; i < len(items); i++ {
		item := bytes.TrimSpace(items[i])
		if len(item) > 0 && item[0] == '{' {
			var w workerPayload
			if err := jsonx.Unmarshal(item, &w); err != nil {
				return nil, fmt.Errorf("decode worker %d: %w", i, err)
			}
			workers = append(workers, model.Worker{RigID: w.RigID, Hashrate: uint64(w.Hashrate)})
			continue
		}

		var rigID string
		if err := jsonx.Unmarshal(item, &rigID); err != nil {
			return nil, fmt.Errorf("decode worker %d: rig id: %w", i, err)
		}
		var hashrate lenientUint
		if i+1 < len(items) {
			i++
			_ = hashrate.UnmarshalJSON(items[i])
		}
		workers = append(workers, model.Worker{RigID: rigID, Hashrate: uint64(hashrate)})
	}
	return workers, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
