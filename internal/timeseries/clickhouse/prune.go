package clickhouse

import (
	"context"
	"fmt"
	"time"
)

const pruneQuery = `
DELETE FROM metric_points
WHERE metric = ? AND ts < ?`

func (s *Store) PruneOlderThan(ctx context.Context, metric string, cutoff time.Time) error {
	start := time.Now()
	var err error
	defer func() {
		s.metrics.Observe("prune", err, start)
	}()

	if err = s.conn.Exec(ctx, pruneQuery, metric, cutoff.UTC().Truncate(time.Second)); err != nil {
		return fmt.Errorf("delete metric points: %w", err)
	}
	return nil
}
