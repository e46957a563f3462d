package template

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goodnatureofminers/pool-coordinator/internal/clock"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"
)

// Producer keeps the shared cache in sync with the daemon's block template.
type Producer struct {
	logger       *zap.Logger
	source       TemplateSource
	cache        TemplateWriter
	metrics      ProducerMetrics
	notify       <-chan struct{}
	sleep        func(context.Context, time.Duration) error
	interval     time.Duration
	fetchTimeout time.Duration
	limiter      ratelimit.Limiter
	newBackOff   func() backoff.BackOff
	lastHeight   uint64
}

// ProducerOption tunes a Producer.
type ProducerOption func(*Producer)

// WithRefreshInterval sets the periodic refresh interval.
func WithRefreshInterval(d time.Duration) ProducerOption {
	return func(p *Producer) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithFetchTimeout bounds a single daemon fetch.
func WithFetchTimeout(d time.Duration) ProducerOption {
	return func(p *Producer) {
		if d > 0 {
			p.fetchTimeout = d
		}
	}
}

// WithRefreshRate caps refreshes per second. Zero or less disables the cap.
func WithRefreshRate(perSecond int) ProducerOption {
	return func(p *Producer) {
		if perSecond <= 0 {
			p.limiter = ratelimit.NewUnlimited()
			return
		}
		p.limiter = ratelimit.New(perSecond)
	}
}

// NewProducer builds a Producer. notify may be nil; each receive on it forces a refresh.
func NewProducer(
	source TemplateSource,
	cache TemplateWriter,
	metrics ProducerMetrics,
	logger *zap.Logger,
	notify <-chan struct{},
	opts ...ProducerOption,
) (*Producer, error) {
	if source == nil {
		return nil, errors.New("template source is required")
	}
	if cache == nil {
		return nil, errors.New("template cache is required")
	}
	if metrics == nil {
		return nil, errors.New("template producer metrics is required")
	}

	p := &Producer{
		logger:       logger,
		source:       source,
		cache:        cache,
		metrics:      metrics,
		notify:       notify,
		sleep:        clock.SleepWithContext,
		interval:     defaultRefreshInterval,
		fetchTimeout: defaultFetchTimeout,
		limiter:      ratelimit.New(defaultRefreshRate),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.newBackOff = func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = min(initialRetryInterval, p.interval)
		b.MaxInterval = p.interval
		b.MaxElapsedTime = 0
		b.Reset()
		return b
	}
	return p, nil
}

// Run refreshes once on startup and then on every timer tick or notification
// until the context is canceled. Failed refreshes keep the cached template.
func (p *Producer) Run(ctx context.Context) error {
	retry := p.newBackOff()
	trigger := triggerStartup
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		p.limiter.Take()
		delay := p.interval
		if err := p.refresh(ctx, trigger); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if next := retry.NextBackOff(); next != backoff.Stop && next < delay {
				delay = next
			}
			p.logger.Warn("template refresh failed, keeping cached template",
				zap.Error(err),
				zap.String("trigger", trigger),
				zap.Duration("retry_in", delay),
			)
		} else {
			retry.Reset()
		}

		var err error
		if trigger, err = p.wait(ctx, delay); err != nil {
			return err
		}
	}
}

func (p *Producer) refresh(ctx context.Context, trigger string) (err error) {
	started := time.Now()
	defer func() {
		p.metrics.ObserveRefresh(trigger, err, started)
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()

	tpl, err := p.source.Fetch(fetchCtx)
	if err != nil {
		return fmt.Errorf("fetch block template: %w", err)
	}
	if err = tpl.Validate(); err != nil {
		return fmt.Errorf("validate block template: %w", err)
	}

	if p.lastHeight != 0 && tpl.Height < p.lastHeight {
		p.logger.Warn("chain reorg detected, publishing lower height",
			zap.Uint64("previous_height", p.lastHeight),
			zap.Uint64("height", tpl.Height),
		)
	}

	version, err := p.cache.Update(tpl)
	if err != nil {
		return fmt.Errorf("publish block template: %w", err)
	}
	p.lastHeight = tpl.Height
	p.metrics.SetTemplate(version, tpl.Height)

	p.logger.Info("published block template",
		zap.String("trigger", trigger),
		zap.Uint64("version", version),
		zap.Uint64("height", tpl.Height),
		zap.Uint64("difficulty", tpl.Difficulty),
		zap.Uint64("tx_count", tpl.TxCount),
	)
	return nil
}

func (p *Producer) wait(ctx context.Context, d time.Duration) (string, error) {
	if p.notify == nil {
		return triggerTimer, p.sleep(ctx, d)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-p.notify:
		return triggerSignal, nil
	case <-timer.C:
		return triggerTimer, nil
	}
}
