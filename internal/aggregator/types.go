package aggregator

import (
	"context"
	"time"

	"github.com/goodnatureofminers/pool-coordinator/internal/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	NodeClient interface {
		FetchStats(ctx context.Context, node model.PoolNode) (*model.PoolNodeStats, error)
		FetchMinerStats(ctx context.Context, node model.PoolNode, address string) (*model.MinerNodeStats, error)
		FetchWorkers(ctx context.Context, node model.PoolNode, address string) ([]model.Worker, error)
	}
	Recorder interface {
		Record(ctx context.Context, metric string, ts time.Time, value float64) error
	}
	SnapshotStore interface {
		PublishSnapshot(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	}
	SnapshotPublisher interface {
		Publish(ctx context.Context, snap *model.AggregatedSnapshot) error
	}
	Metrics interface {
		ObserveCycle(mode string, err error, activeNodes int, started time.Time)
		ObserveNode(url string, err error, started time.Time)
	}
)
