package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/pool-coordinator/internal/timeseries"
)

const (
	insertPointQuery = `
INSERT INTO metric_points (metric, ts, value, expires_at)
VALUES (?, ?, ?, ?)`

	insertKeyQuery = `
INSERT INTO metric_keys (metric, expires_at)
VALUES (?, ?)`
)

// Append stores the point and moves the metric's expiry to ttl from now.
func (s *Store) Append(ctx context.Context, metric string, p timeseries.Point, ttl time.Duration) error {
	start := time.Now()
	var err error
	defer func() {
		s.metrics.Observe("append", err, start)
	}()

	expiresAt := s.now().Add(ttl).UTC()
	ts := p.Timestamp.UTC().Truncate(time.Second)

	if err = s.conn.Exec(ctx, insertPointQuery, metric, ts, p.Value, expiresAt); err != nil {
		return fmt.Errorf("insert metric point: %w", err)
	}
	if err = s.conn.Exec(ctx, insertKeyQuery, metric, expiresAt); err != nil {
		return fmt.Errorf("insert metric key: %w", err)
	}
	return nil
}
