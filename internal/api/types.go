package api

import (
	"context"
	"time"

	"github.com/goodnatureofminers/pool-coordinator/internal/model"
	"github.com/goodnatureofminers/pool-coordinator/internal/timeseries"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Store interface {
		timeseries.Reader
		Ping(ctx context.Context) error
	}
	// Aggregator computes a snapshot from the nodes without writing it.
	Aggregator interface {
		Aggregate(ctx context.Context) (*model.AggregatedSnapshot, error)
	}
	NodeCollector interface {
		Collect(ctx context.Context) []model.PoolNodeStats
		Nodes() []model.PoolNode
		MinerStats(ctx context.Context, address string) *model.MinerStats
		Workers(ctx context.Context, address string) []model.Worker
	}
	Metrics interface {
		ObserveRequest(route string, code int, started time.Time)
	}
)
