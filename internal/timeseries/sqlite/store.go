// Package sqlite is a single-file time series backend for standalone deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goodnatureofminers/pool-coordinator/internal/timeseries"
	"go.uber.org/multierr"
	_ "modernc.org/sqlite"
)

type Metrics interface {
	Observe(operation string, err error, started time.Time)
}

const connPragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

type Store struct {
	db      *sql.DB
	metrics Metrics
	now     func() time.Time
}

var _ timeseries.Backend = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS metric_points (
	metric TEXT NOT NULL,
	ts INTEGER NOT NULL,
	value REAL NOT NULL,
	PRIMARY KEY (metric, ts, value)
);

CREATE TABLE IF NOT EXISTS metric_keys (
	metric TEXT PRIMARY KEY,
	expires_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
	key TEXT PRIMARY KEY,
	payload BLOB NOT NULL,
	expires_at INTEGER NOT NULL
);
`

// New opens or creates the database at path.
func New(path string, metrics Metrics) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", dataSource(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; WAL lets the API read alongside the aggregator
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		return nil, multierr.Append(fmt.Errorf("migrate sqlite: %w", err), db.Close())
	}

	return &Store{db: db, metrics: metrics, now: time.Now}, nil
}

// dataSource appends the connection pragmas, which the driver applies to every
// new connection.
func dataSource(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + connPragmas
}

func (s *Store) Append(ctx context.Context, metric string, p timeseries.Point, ttl time.Duration) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.Observe("append", err, start)
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, tx.Rollback())
		}
	}()

	now := s.now()
	// an expired metric starts over, the way a key that timed out would
	if _, err = tx.ExecContext(ctx, `
DELETE FROM metric_points
WHERE metric = ? AND EXISTS (SELECT 1 FROM metric_keys WHERE metric = ? AND expires_at <= ?)`,
		metric, metric, now.Unix()); err != nil {
		return fmt.Errorf("drop expired points: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `
INSERT OR IGNORE INTO metric_points (metric, ts, value) VALUES (?, ?, ?)`,
		metric, p.Timestamp.Unix(), p.Value); err != nil {
		return fmt.Errorf("insert metric point: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `
INSERT INTO metric_keys (metric, expires_at) VALUES (?, ?)
ON CONFLICT (metric) DO UPDATE SET expires_at = excluded.expires_at`,
		metric, now.Add(ttl).Unix()); err != nil {
		return fmt.Errorf("upsert metric key: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

func (s *Store) PruneOlderThan(ctx context.Context, metric string, cutoff time.Time) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.Observe("prune", err, start)
	}()

	if _, err = s.db.ExecContext(ctx, `DELETE FROM metric_points WHERE metric = ? AND ts < ?`, metric, cutoff.Unix()); err != nil {
		return fmt.Errorf("delete metric points: %w", err)
	}
	return nil
}

func (s *Store) PublishSnapshot(ctx context.Context, key string, payload []byte, ttl time.Duration) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.Observe("publish_snapshot", err, start)
	}()

	if _, err = s.db.ExecContext(ctx, `
INSERT INTO snapshots (key, payload, expires_at) VALUES (?, ?, ?)
ON CONFLICT (key) DO UPDATE SET payload = excluded.payload, expires_at = excluded.expires_at`,
		key, payload, s.now().Add(ttl).UnixMilli()); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
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

	err = s.db.QueryRowContext(ctx,
		`SELECT payload FROM snapshots WHERE key = ? AND expires_at > ?`,
		key, s.now().UnixMilli(),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, timeseries.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot: %w", err)
	}
	return payload, nil
}

func (s *Store) Range(ctx context.Context, metric string, from, to time.Time) (points []timeseries.Point, err error) {
	start := time.Now()
	defer func() {
		s.metrics.Observe("range", err, start)
	}()

	rows, err := s.db.QueryContext(ctx, `
SELECT p.ts, p.value
FROM metric_points p
JOIN metric_keys k ON k.metric = p.metric AND k.expires_at > ?
WHERE p.metric = ? AND p.ts >= ? AND p.ts <= ?
ORDER BY p.ts, p.value`,
		s.now().Unix(), metric, from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("query metric points: %w", err)
	}
	defer func() {
		err = multierr.Append(err, rows.Close())
	}()

	points = make([]timeseries.Point, 0)
	for rows.Next() {
		var (
			ts    int64
			value float64
		)
		if err = rows.Scan(&ts, &value); err != nil {
			return nil, fmt.Errorf("scan metric point: %w", err)
		}
		points = append(points, timeseries.Point{Timestamp: time.Unix(ts, 0), Value: value})
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metric points: %w", err)
	}
	return points, nil
}

// Entries reads key as numeric points.
func (s *Store) Entries(ctx context.Context, key string, from, to time.Time) ([]timeseries.Entry, error) {
	points, err := s.Range(ctx, key, from, to)
	if err != nil {
		return nil, err
	}
	return timeseries.PointEntries(points), nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
