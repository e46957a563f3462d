package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/pool-coordinator/internal/timeseries"
)

const (
	insertSnapshotQuery = `
INSERT INTO pool_snapshots (key, payload, published_at, expires_at)
VALUES (?, ?, ?, ?)`

	selectSnapshotQuery = `
SELECT payload, expires_at
FROM pool_snapshots
WHERE key = ?
ORDER BY published_at DESC
LIMIT 1`
)

func (s *Store) PublishSnapshot(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	start := time.Now()
	var err error
	defer func() {
		s.metrics.Observe("publish_snapshot", err, start)
	}()

	now := s.now().UTC()
	if err = s.conn.Exec(ctx, insertSnapshotQuery, key, string(payload), now, now.Add(ttl)); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// Snapshot returns the newest payload under key, or timeseries.ErrNotFound once it expired.
func (s *Store) Snapshot(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	var err error
	defer func() {
		s.metrics.Observe("snapshot", err, start)
	}()

	rows, err := s.conn.Query(ctx, selectSnapshotQuery, key)
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer closeRows(rows, &err)

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate snapshot: %w", err)
		}
		return nil, timeseries.ErrNotFound
	}

	var (
		payload   string
		expiresAt time.Time
	)
	if err = rows.Scan(&payload, &expiresAt); err != nil {
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}
	if !s.now().Before(expiresAt) {
		return nil, timeseries.ErrNotFound
	}
	return []byte(payload), nil
}
