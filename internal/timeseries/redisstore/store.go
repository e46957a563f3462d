// Package redisstore keeps pool series in Redis sorted sets scored by unix seconds.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goodnatureofminers/pool-coordinator/internal/timeseries"
	"github.com/redis/go-redis/v9"
)

// Metrics observes store operations.
type Metrics interface {
	Observe(operation string, err error, started time.Time)
}

// Store implements timeseries.Backend on a go-redis client.
type Store struct {
	client  *redis.Client
	metrics Metrics
}

var _ timeseries.Backend = (*Store)(nil)

// New connects to the redis:// or rediss:// URL.
func New(rawURL string, metrics Metrics) (*Store, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewFromClient(redis.NewClient(opts), metrics), nil
}

// NewFromClient wraps an existing client. Close closes it.
func NewFromClient(client *redis.Client, metrics Metrics) *Store {
	return &Store{client: client, metrics: metrics}
}

func (s *Store) Append(ctx context.Context, metric string, p timeseries.Point, ttl time.Duration) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.Observe("append", err, start)
	}()

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, metric, redis.Z{
			Score:  float64(p.Timestamp.Unix()),
			Member: timeseries.Member(p),
		})
		pipe.Expire(ctx, metric, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("zadd %s: %w", metric, err)
	}
	return nil
}

func (s *Store) PruneOlderThan(ctx context.Context, metric string, cutoff time.Time) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.Observe("prune", err, start)
	}()

	maxScore := "(" + strconv.FormatInt(cutoff.Unix(), 10)
	if err = s.client.ZRemRangeByScore(ctx, metric, "-inf", maxScore).Err(); err != nil {
		return fmt.Errorf("zremrangebyscore %s: %w", metric, err)
	}
	return nil
}

func (s *Store) PublishSnapshot(ctx context.Context, key string, payload []byte, ttl time.Duration) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.Observe("publish_snapshot", err, start)
	}()

	if err = s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Range(ctx context.Context, metric string, from, to time.Time) (points []timeseries.Point, err error) {
	start := time.Now()
	defer func() {
		s.metrics.Observe("range", err, start)
	}()

	members, err := s.rangeByScore(ctx, metric, from, to)
	if err != nil {
		return nil, err
	}
	points = make([]timeseries.Point, 0, len(members))
	for _, m := range members {
		p, perr := timeseries.ParseMember(m)
		if perr != nil {
			// foreign members are skipped, not fatal
			continue
		}
		points = append(points, p)
	}
	return points, nil
}

func (s *Store) Entries(ctx context.Context, key string, from, to time.Time) (entries []timeseries.Entry, err error) {
	start := time.Now()
	defer func() {
		s.metrics.Observe("entries", err, start)
	}()

	members, err := s.rangeByScore(ctx, key, from, to)
	if err != nil {
		return nil, err
	}
	entries = make([]timeseries.Entry, 0, len(members))
	for _, m := range members {
		e, perr := timeseries.ParseEntry(m)
		if perr != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *Store) rangeByScore(ctx context.Context, key string, from, to time.Time) ([]string, error) {
	members, err := s.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: strconv.FormatInt(from.Unix(), 10),
		Max: strconv.FormatInt(to.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("zrangebyscore %s: %w", key, err)
	}
	return members, nil
}

func (s *Store) Snapshot(ctx context.Context, key string) (payload []byte, err error) {
	start := time.Now()
	defer func() {
		if errors.Is(err, timeseries.ErrNotFound) {
			s.metrics.Observe("snapshot", nil, start)
			return
		}
		s.metrics.Observe("snapshot", err, start)
	}()

	payload, err = s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, timeseries.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return payload, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
