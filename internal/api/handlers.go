package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/goodnatureofminers/pool-coordinator/internal/aggregator"
	"github.com/goodnatureofminers/pool-coordinator/internal/jsonx"
	"github.com/goodnatureofminers/pool-coordinator/internal/model"
	"github.com/goodnatureofminers/pool-coordinator/internal/timeseries"
	"github.com/hako/durafmt"
	"go.uber.org/zap"
)

const (
	SourceStore = "store_cache"
	SourceLive  = "live_aggregated"
)

type statsResponse struct {
	*model.AggregatedSnapshot
	Source string `json:"source"`
}

type nodesSummary struct {
	Total      int      `json:"total"`
	Responding int      `json:"responding"`
	Nodes      []string `json:"nodes"`
}

type healthResponse struct {
	Status      string        `json:"status"`
	Store       string        `json:"store"`
	PoolNodes   *nodesSummary `json:"pool_nodes,omitempty"`
	SnapshotAge string        `json:"snapshot_age,omitempty"`
}

type nodeStatus struct {
	URL         string     `json:"url"`
	Role        model.Role `json:"role"`
	Status      string     `json:"status"`
	Hashrate    uint64     `json:"hashrate"`
	Miners      uint64     `json:"miners"`
	BlocksFound uint64     `json:"blocks_found"`
	LastSeen    int64      `json:"last_seen"`
}

type chartSeries struct {
	key    string
	metric string
}

var (
	networkCharts = []chartSeries{
		{key: "network_hashrate", metric: aggregator.MetricNetworkHashrate},
		{key: "network_difficulty", metric: aggregator.MetricNetworkDifficulty},
	}
	poolCharts = []chartSeries{
		{key: "pool_hashrate", metric: aggregator.MetricPoolHashrate},
		{key: "pool_effort", metric: aggregator.MetricPoolEffort},
		{key: "pool_miners", metric: aggregator.MetricPoolMiners},
	}
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("store ping failed", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, healthResponse{Status: "unhealthy", Store: "disconnected"})
		return
	}

	nodes := s.collector.Nodes()
	urls := make([]string, 0, len(nodes))
	for _, n := range nodes {
		urls = append(urls, n.URL)
	}
	resp := healthResponse{
		Status: "healthy",
		Store:  "connected",
		PoolNodes: &nodesSummary{
			Total:      len(nodes),
			Responding: len(s.collector.Collect(ctx)),
			Nodes:      urls,
		},
	}
	if snap, err := s.storedSnapshot(ctx); err == nil {
		age := s.now().Sub(time.Unix(snap.Timestamp, 0)).Truncate(time.Second)
		resp.SnapshotAge = durafmt.Parse(age).LimitFirstN(2).String()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleStats serves the pool snapshot, or the snapshot merged with one
// miner's live figures when an address is given.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	address, ok := minerAddress(r, true)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	if address != "" {
		s.handleMinerStats(w, r, address)
		return
	}

	snap, err := s.storedSnapshot(ctx)
	if err == nil {
		s.writeJSON(w, http.StatusOK, statsResponse{AggregatedSnapshot: snap, Source: SourceStore})
		return
	}
	if !errors.Is(err, timeseries.ErrNotFound) {
		s.logger.Warn("stored snapshot unavailable", zap.Error(err))
	}

	snap, err = s.liveSnapshot(ctx)
	if err != nil {
		s.logger.Warn("live aggregation failed", zap.Error(err))
		s.writeError(w, http.StatusServiceUnavailable, "no stats available from any pool nodes")
		return
	}
	s.writeJSON(w, http.StatusOK, statsResponse{AggregatedSnapshot: snap, Source: SourceLive})
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	results := s.collector.Collect(r.Context())
	byURL := make(map[string]model.PoolNodeStats, len(results))
	for _, res := range results {
		byURL[res.URL] = res
	}

	nodes := s.collector.Nodes()
	out := make([]nodeStatus, 0, len(nodes))
	for _, n := range nodes {
		st := nodeStatus{URL: n.URL, Role: n.Role, Status: "offline"}
		if res, ok := byURL[n.URL]; ok {
			st.Status = "online"
			st.Hashrate = res.PoolHashrate
			st.Miners = res.ConnectedMiners
			st.BlocksFound = res.PoolBlocksFound
			st.LastSeen = res.RespondedAt.Unix()
		}
		out = append(out, st)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	hours, ok := s.parseHours(w, r, DefaultChartHours)
	if !ok {
		return
	}
	address, ok := minerAddress(r, false)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid address")
		return
	}

	var series []chartSeries
	switch r.URL.Query().Get("type") {
	case "", "all":
		series = append(append(series, networkCharts...), poolCharts...)
		if address != "" {
			series = append(series, minerChartSeries(address)...)
		}
	case "network":
		series = networkCharts
	case "pool":
		series = poolCharts
	case "miner":
		if address == "" {
			s.writeError(w, http.StatusBadRequest, "address is required for miner charts")
			return
		}
		series = minerChartSeries(address)
	default:
		s.writeError(w, http.StatusBadRequest, "type must be one of all, network, pool, miner")
		return
	}

	to := s.now()
	from := to.Add(-time.Duration(hours) * time.Hour)

	out := make(map[string][][2]float64, len(series))
	for _, cs := range series {
		points, err := s.store.Range(r.Context(), cs.metric, from, to)
		if err != nil {
			s.logger.Error("chart range failed", zap.String("metric", cs.metric), zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "failed to fetch chart data")
			return
		}
		pairs := make([][2]float64, 0, len(points))
		for _, p := range points {
			pairs = append(pairs, [2]float64{float64(p.Timestamp.Unix()), p.Value})
		}
		out[cs.key] = pairs
	}
	s.writeJSON(w, http.StatusOK, out)
}

// parseHours reads the hours query parameter and answers 400 itself when it is invalid.
func (s *Server) parseHours(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("hours")
	if raw == "" {
		return def, true
	}
	h, err := strconv.Atoi(raw)
	if err != nil || h <= 0 || h > maxChartHours {
		s.writeError(w, http.StatusBadRequest, "hours must be an integer between 1 and "+strconv.Itoa(maxChartHours))
		return 0, false
	}
	return h, true
}

func (s *Server) storedSnapshot(ctx context.Context) (*model.AggregatedSnapshot, error) {
	payload, err := s.store.Snapshot(ctx, s.snapshotKey)
	if err != nil {
		return nil, err
	}
	var snap model.AggregatedSnapshot
	if err := jsonx.Unmarshal(payload, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// liveSnapshot aggregates on demand, reusing a result younger than liveTTL.
// A failed aggregation falls back to the last good result.
func (s *Server) liveSnapshot(ctx context.Context) (*model.AggregatedSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.live != nil && s.now().Sub(s.liveAt) <= s.liveTTL {
		return s.live, nil
	}
	snap, err := s.aggregator.Aggregate(ctx)
	if err != nil {
		if s.live != nil {
			return s.live, nil
		}
		return nil, err
	}
	s.live, s.liveAt = snap, s.now()
	return snap, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := jsonx.Marshal(v)
	if err != nil {
		s.logger.Error("encode response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		s.logger.Debug("write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
