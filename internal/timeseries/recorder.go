package timeseries

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Recorder appends samples and keeps every metric inside the retention window.
type Recorder struct {
	store     Store
	retention time.Duration
	now       func() time.Time
}

// NewRecorder builds a Recorder. A non-positive retention selects DefaultRetention.
func NewRecorder(store Store, retention time.Duration) (*Recorder, error) {
	if store == nil {
		return nil, errors.New("time series store is required")
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Recorder{store: store, retention: retention, now: time.Now}, nil
}

// Retention returns the configured window.
func (r *Recorder) Retention() time.Duration {
	return r.retention
}

// Record appends the value, refreshes the metric's expiry and prunes points older than the window.
func (r *Recorder) Record(ctx context.Context, metric string, ts time.Time, value float64) error {
	if err := r.store.Append(ctx, metric, Point{Timestamp: ts, Value: value}, r.retention); err != nil {
		return fmt.Errorf("append %s: %w", metric, err)
	}
	if err := r.store.PruneOlderThan(ctx, metric, r.now().Add(-r.retention)); err != nil {
		return fmt.Errorf("prune %s: %w", metric, err)
	}
	return nil
}
