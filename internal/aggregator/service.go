// Package aggregator polls pool nodes and reconciles their statistics into one
// snapshot, recorded as time series and published for dashboards.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goodnatureofminers/pool-coordinator/internal/clock"
	"github.com/goodnatureofminers/pool-coordinator/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoActiveNodes is returned when no node answered during a cycle.
var ErrNoActiveNodes = errors.New("no active nodes")

type Mode string

var (
	// ModeFull records time series and publishes the snapshot.
	ModeFull Mode = "full"
	// ModeAggregateOnly publishes the snapshot only.
	ModeAggregateOnly Mode = "aggregate-only"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeFull, ModeAggregateOnly:
		return m, nil
	}
	return "", fmt.Errorf("unknown aggregation mode %q", s)
}

type collector interface {
	Collect(ctx context.Context) []model.PoolNodeStats
	Nodes() []model.PoolNode
}

// Service runs aggregation cycles.
type Service struct {
	logger    *zap.Logger
	collector collector
	recorder  Recorder
	publisher SnapshotPublisher
	metrics   Metrics
	interval  time.Duration
	now       func() time.Time
}

// NewService builds a Service. recorder may be nil when only ModeAggregateOnly is used.
func NewService(
	collector *Collector,
	recorder Recorder,
	publisher SnapshotPublisher,
	metrics Metrics,
	interval time.Duration,
	logger *zap.Logger,
) (*Service, error) {
	if collector == nil || len(collector.Nodes()) == 0 {
		return nil, errors.New("at least one pool node is required")
	}
	if publisher == nil {
		return nil, errors.New("snapshot publisher is required")
	}
	if metrics == nil {
		return nil, errors.New("aggregator metrics is required")
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Service{
		logger:    logger,
		collector: collector,
		recorder:  recorder,
		publisher: publisher,
		metrics:   metrics,
		interval:  interval,
		now:       time.Now,
	}, nil
}

// Run executes a full cycle now and then on every interval until ctx is
// canceled. A failed cycle is logged and retried on the next tick.
func (s *Service) Run(ctx context.Context) error {
	if s.recorder == nil {
		return errors.New("time series recorder is required in full mode")
	}
	return clock.Every(ctx, s.interval, func(ctx context.Context) {
		if _, err := s.RunOnce(ctx, ModeFull); err != nil && ctx.Err() == nil {
			s.logger.Error("aggregation cycle failed", zap.Error(err))
		}
	})
}

// RunOnce executes one cycle bounded by the interval and returns the published snapshot.
// Nothing is written when no node answered.
func (s *Service) RunOnce(ctx context.Context, mode Mode) (snap *model.AggregatedSnapshot, err error) {
	started := time.Now()
	logger := s.logger.With(zap.String("cycle_id", uuid.NewString()), zap.String("mode", string(mode)))
	defer func() {
		active := 0
		if snap != nil {
			active = snap.ActiveNodes
		}
		s.metrics.ObserveCycle(string(mode), err, active, started)
	}()

	ctx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	snap, err = s.Aggregate(ctx)
	if err != nil {
		return nil, err
	}

	if mode == ModeFull {
		if s.recorder == nil {
			return nil, errors.New("time series recorder is required in full mode")
		}
		if err = s.record(ctx, snap); err != nil {
			return nil, err
		}
	}
	if err = s.publisher.Publish(ctx, snap); err != nil {
		return nil, err
	}

	logger.Info("aggregation cycle completed",
		zap.String("pool_mode", string(snap.Mode)),
		zap.Int("active_nodes", snap.ActiveNodes),
		zap.Int("total_nodes", snap.TotalNodes),
		zap.Uint64("pool_hashrate", snap.PoolHashrate),
		zap.Uint64("connected_miners", snap.ConnectedMiners),
		zap.Uint64("network_height", snap.NetworkHeight),
		zap.Duration("took", time.Since(started)),
	)
	return snap, nil
}

// Aggregate polls the nodes and reduces their answers without writing anything.
func (s *Service) Aggregate(ctx context.Context) (*model.AggregatedSnapshot, error) {
	results := s.collector.Collect(ctx)
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: 0 of %d nodes answered", ErrNoActiveNodes, len(s.collector.Nodes()))
	}
	if upstreams := respondingUpstreams(results); len(upstreams) > 1 {
		s.logger.Warn("several upstream nodes answered, using the first configured",
			zap.Strings("upstreams", upstreams),
		)
	}
	return Reduce(results, len(s.collector.Nodes()), s.now()), nil
}

func respondingUpstreams(results []model.PoolNodeStats) []string {
	var urls []string
	for _, r := range results {
		if r.Role == model.Upstream {
			urls = append(urls, r.URL)
		}
	}
	return urls
}

func (s *Service) record(ctx context.Context, snap *model.AggregatedSnapshot) error {
	ts := time.Unix(snap.Timestamp, 0)
	for _, sample := range Samples(snap) {
		if err := s.recorder.Record(ctx, sample.Metric, ts, sample.Value); err != nil {
			return fmt.Errorf("record %s: %w", sample.Metric, err)
		}
	}
	return nil
}

// Sample is one time series value derived from a snapshot.
type Sample struct {
	Metric string
	Value  float64
}

// Samples lists the series values of a snapshot. Effort is included only when computed.
func Samples(snap *model.AggregatedSnapshot) []Sample {
	samples := []Sample{
		{Metric: MetricPoolHashrate, Value: float64(snap.PoolHashrate)},
		{Metric: MetricPoolMiners, Value: float64(snap.ConnectedMiners)},
		{Metric: MetricNetworkHashrate, Value: float64(snap.NetworkHashrate)},
		{Metric: MetricNetworkDifficulty, Value: float64(snap.NetworkDifficulty)},
	}
	if snap.PoolEffort != nil {
		samples = append(samples, Sample{Metric: MetricPoolEffort, Value: *snap.PoolEffort})
	}
	return samples
}
