// Package workerpool provides bounded concurrent fan-out helpers.
package workerpool

import (
	"context"

	"github.com/remeh/sizedwaitgroup"
)

// Each calls fn for every item with at most limit calls in flight and waits for
// all of them. Items not yet started when ctx is canceled are skipped. Failures
// are the callback's concern; one item never stops the others.
func Each[T any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, index int, item T)) error {
	if limit <= 0 {
		limit = len(items)
	}
	if limit == 0 {
		return ctx.Err()
	}

	swg := sizedwaitgroup.New(limit)
	for i, item := range items {
		if err := swg.AddWithContext(ctx); err != nil {
			break
		}
		go func(i int, item T) {
			defer swg.Done()
			fn(ctx, i, item)
		}(i, item)
	}
	swg.Wait()

	return ctx.Err()
}
