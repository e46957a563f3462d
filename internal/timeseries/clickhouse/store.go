// Package clickhouse stores pool series and snapshots in ClickHouse tables.
package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/goodnatureofminers/pool-coordinator/internal/timeseries"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Metrics interface {
		Observe(operation string, err error, started time.Time)
	}
	// Conn is the subset of clickhouse.Conn the store uses.
	Conn interface {
		Exec(ctx context.Context, query string, args ...any) error
		Query(ctx context.Context, query string, args ...any) (driver.Rows, error)
		Ping(ctx context.Context) error
		Close() error
	}
)

type Store struct {
	conn    Conn
	metrics Metrics
	now     func() time.Time
}

var _ timeseries.Backend = (*Store)(nil)

func New(dsn string, metrics Metrics) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("clickhouse dsn is required")
	}

	options, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open clickhouse connection: %w", err)
	}

	return &Store{conn: conn, metrics: metrics, now: time.Now}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.conn.Ping(ctx); err != nil {
		return fmt.Errorf("ping clickhouse: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func closeRows(rows driver.Rows, err *error) {
	if closeErr := rows.Close(); closeErr != nil && *err == nil {
		*err = fmt.Errorf("close rows: %w", closeErr)
	}
}
