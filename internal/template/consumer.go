package template

import (
	"context"
	"errors"
	"time"

	"github.com/goodnatureofminers/pool-coordinator/internal/model"
)

// Consumer tracks the last template version a worker has seen.
type Consumer struct {
	cache   TemplateReader
	version uint64
	height  uint64
	reorg   bool
}

// NewConsumer returns a Consumer that has seen nothing yet.
func NewConsumer(cache TemplateReader) *Consumer {
	return &Consumer{cache: cache}
}

// Latest copies the shared template into out when it changed since the last
// call and reports whether it did. out is left untouched otherwise.
func (c *Consumer) Latest(out *model.BlockTemplate) (bool, error) {
	if !c.cache.IsNewer(c.version) {
		return false, nil
	}

	var next model.BlockTemplate
	version, err := c.cache.GetLatest(&next)
	if err != nil {
		if errors.Is(err, ErrNoTemplate) {
			return false, nil
		}
		return false, err
	}
	if version == c.version {
		return false, nil
	}

	c.reorg = c.height != 0 && next.Height < c.height
	c.version = version
	c.height = next.Height
	*out = next
	return true, nil
}

// Version is the version of the last template returned by Latest.
func (c *Consumer) Version() uint64 {
	return c.version
}

// Reorg reports whether the last change lowered the chain height.
func (c *Consumer) Reorg() bool {
	return c.reorg
}

// Watch polls for changes every interval and hands each new template to fn
// until the context is canceled.
func (c *Consumer) Watch(ctx context.Context, interval time.Duration, fn func(*model.BlockTemplate)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var tpl model.BlockTemplate
	for {
		changed, err := c.Latest(&tpl)
		if err != nil {
			return err
		}
		if changed {
			fn(tpl.Clone())
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
