package api

import (
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/goodnatureofminers/pool-coordinator/internal/aggregator"
	"github.com/goodnatureofminers/pool-coordinator/internal/jsonx"
	"github.com/goodnatureofminers/pool-coordinator/internal/model"
	"github.com/goodnatureofminers/pool-coordinator/pkg/safe"
	"go.uber.org/zap"
)

const (
	SourceMiner = "live_miner_query"

	KeyBlocksDetailed  = "pool:blocks_detailed"
	KeyBlocks          = "pool:blocks"
	DefaultBlocksHours = 24
	DefaultBlockReward = 20.0

	maxAddressLen = 128
)

var addressPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

type minerStatsResponse struct {
	*model.AggregatedSnapshot
	*model.MinerStats
	Source string `json:"source"`
}

// blockSummary stands in for a detailed block record when only heights were kept.
type blockSummary struct {
	TS         int64   `json:"ts"`
	Height     uint64  `json:"height"`
	Reward     float64 `json:"reward"`
	Hash       string  `json:"hash"`
	Difficulty uint64  `json:"difficulty"`
}

func minerChartSeries(address string) []chartSeries {
	return []chartSeries{
		{key: "miner_hashrate", metric: "miner:" + address + ":hashrate"},
		{key: "miner_balance", metric: "miner:" + address + ":balance"},
	}
}

// minerAddress reads the address from the query or the wa cookie. ok is false
// when an address is present but malformed.
func minerAddress(r *http.Request, cookie bool) (address string, ok bool) {
	address = r.URL.Query().Get("address")
	if address == "" && cookie {
		if c, err := r.Cookie(aggregator.AddressCookie); err == nil {
			address = c.Value
		}
	}
	if address == "" {
		return "", true
	}
	if len(address) > maxAddressLen || !addressPattern.MatchString(address) {
		return "", false
	}
	return address, true
}

func (s *Server) handleMinerStats(w http.ResponseWriter, r *http.Request, address string) {
	ctx := r.Context()

	miner := s.collector.MinerStats(ctx, address)
	if miner == nil {
		s.writeError(w, http.StatusNotFound, "miner not found")
		return
	}

	snap, err := s.storedSnapshot(ctx)
	if err != nil {
		if snap, err = s.liveSnapshot(ctx); err != nil {
			s.logger.Debug("miner stats served without pool snapshot", zap.Error(err))
		}
	}
	s.writeJSON(w, http.StatusOK, minerStatsResponse{AggregatedSnapshot: snap, MinerStats: miner, Source: SourceMiner})
}

func (s *Server) handleWorkers(w http.ResponseWriter, r *http.Request) {
	address, ok := minerAddress(r, true)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	if address == "" {
		s.writeError(w, http.StatusBadRequest, "no address provided")
		return
	}
	s.writeJSON(w, http.StatusOK, s.collector.Workers(r.Context(), address))
}

// handleBlocks lists found blocks from the detailed log, falling back to the
// height-only series when the detailed log has nothing in range.
func (s *Server) handleBlocks(w http.ResponseWriter, r *http.Request) {
	hours, ok := s.parseHours(w, r, DefaultBlocksHours)
	if !ok {
		return
	}
	to := s.now()
	from := to.Add(-time.Duration(hours) * time.Hour)

	detailed, err := s.store.Entries(r.Context(), KeyBlocksDetailed, from, to)
	if err != nil {
		s.logger.Error("blocks range failed", zap.String("key", KeyBlocksDetailed), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to fetch blocks data")
		return
	}
	if len(detailed) > 0 {
		blocks := make([]jsonx.RawMessage, 0, len(detailed))
		for _, e := range detailed {
			var raw jsonx.RawMessage
			if err := jsonx.Unmarshal([]byte(e.Payload), &raw); err != nil {
				continue
			}
			blocks = append(blocks, raw)
		}
		s.writeJSON(w, http.StatusOK, blocks)
		return
	}

	heights, err := s.store.Entries(r.Context(), KeyBlocks, from, to)
	if err != nil {
		s.logger.Error("blocks range failed", zap.String("key", KeyBlocks), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to fetch blocks data")
		return
	}
	blocks := make([]blockSummary, 0, len(heights))
	for _, e := range heights {
		f, err := strconv.ParseFloat(e.Payload, 64)
		if err != nil {
			continue
		}
		height, err := safe.FloatToUint64(f)
		if err != nil {
			continue
		}
		blocks = append(blocks, blockSummary{TS: e.Timestamp.Unix(), Height: height, Reward: s.blockReward})
	}
	s.writeJSON(w, http.StatusOK, blocks)
}
