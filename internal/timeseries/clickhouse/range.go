package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/pool-coordinator/internal/timeseries"
)

const (
	metricExpiryQuery = `
SELECT max(expires_at) AS expires_at
FROM metric_keys
WHERE metric = ?`

	rangeQuery = `
SELECT DISTINCT ts, value
FROM metric_points
WHERE metric = ? AND ts >= ? AND ts <= ?
ORDER BY ts, value`
)

// Range returns the points of a live metric within [from, to]. An expired metric reads as empty.
func (s *Store) Range(ctx context.Context, metric string, from, to time.Time) ([]timeseries.Point, error) {
	start := time.Now()
	var err error
	defer func() {
		s.metrics.Observe("range", err, start)
	}()

	live, err := s.metricLive(ctx, metric)
	if err != nil {
		return nil, err
	}
	if !live {
		return []timeseries.Point{}, nil
	}

	rows, err := s.conn.Query(ctx, rangeQuery, metric, from.UTC().Truncate(time.Second), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query metric points: %w", err)
	}
	defer closeRows(rows, &err)

	points := make([]timeseries.Point, 0)
	for rows.Next() {
		var p timeseries.Point
		if err = rows.Scan(&p.Timestamp, &p.Value); err != nil {
			return nil, fmt.Errorf("scan metric point: %w", err)
		}
		points = append(points, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metric points: %w", err)
	}
	return points, nil
}

// Entries reads key as numeric points. ClickHouse keeps no free-form members.
func (s *Store) Entries(ctx context.Context, key string, from, to time.Time) ([]timeseries.Entry, error) {
	points, err := s.Range(ctx, key, from, to)
	if err != nil {
		return nil, err
	}
	return timeseries.PointEntries(points), nil
}

func (s *Store) metricLive(ctx context.Context, metric string) (live bool, err error) {
	rows, err := s.conn.Query(ctx, metricExpiryQuery, metric)
	if err != nil {
		return false, fmt.Errorf("query metric expiry: %w", err)
	}
	defer closeRows(rows, &err)

	if !rows.Next() {
		return false, rows.Err()
	}
	var expiresAt time.Time
	if err = rows.Scan(&expiresAt); err != nil {
		return false, fmt.Errorf("scan metric expiry: %w", err)
	}
	return s.now().Before(expiresAt), nil
}
