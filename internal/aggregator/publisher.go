package aggregator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goodnatureofminers/pool-coordinator/internal/jsonx"
	"github.com/goodnatureofminers/pool-coordinator/internal/model"
)

// Publisher stores the latest snapshot under a fixed key with a TTL, so a
// stalled aggregator's view disappears on its own.
type Publisher struct {
	store SnapshotStore
	key   string
	ttl   time.Duration
}

// NewPublisher builds a Publisher writing key with the given TTL.
func NewPublisher(store SnapshotStore, key string, ttl time.Duration) (*Publisher, error) {
	if store == nil {
		return nil, errors.New("snapshot store is required")
	}
	if key == "" {
		return nil, errors.New("snapshot key is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("snapshot ttl must be positive, got %s", ttl)
	}
	return &Publisher{store: store, key: key, ttl: ttl}, nil
}

// Publish serializes and stores snap.
func (p *Publisher) Publish(ctx context.Context, snap *model.AggregatedSnapshot) error {
	payload, err := jsonx.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := p.store.PublishSnapshot(ctx, p.key, payload, p.ttl); err != nil {
		return fmt.Errorf("publish snapshot %s: %w", p.key, err)
	}
	return nil
}
