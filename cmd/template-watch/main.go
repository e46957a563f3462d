// Command template-watch follows the shared block template the way a pool
// worker does and logs every change.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goodnatureofminers/pool-coordinator/internal/model"
	"github.com/goodnatureofminers/pool-coordinator/internal/template"
	"github.com/jessevdk/go-flags"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type config struct {
	CachePath    string        `long:"cache-path" env:"TEMPLATE_CACHE_PATH" description:"shared memory file written by template-producer" default:"/dev/shm/pool-template"`
	PollInterval time.Duration `long:"poll-interval" env:"TEMPLATE_POLL_INTERVAL" description:"how often to check the version counter" default:"100ms"`
	LogJSON      bool          `long:"log-json" env:"TEMPLATE_LOG_JSON" description:"production JSON logging"`
}

func main() {
	cfg := config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := zap.NewDevelopment()
	if cfg.LogJSON {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("template watch failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) (err error) {
	cache, err := template.Open(cfg.CachePath)
	if err != nil {
		return fmt.Errorf("open template cache: %w", err)
	}
	defer func() {
		err = multierr.Append(err, cache.Close())
	}()

	consumer := template.NewConsumer(cache)
	logger.Info("watching template cache", zap.String("path", cache.Path()), zap.Uint64("version", cache.Version()))

	return consumer.Watch(ctx, cfg.PollInterval, func(tpl *model.BlockTemplate) {
		fields := []zap.Field{
			zap.Uint64("version", consumer.Version()),
			zap.Uint64("height", tpl.Height),
			zap.Uint64("difficulty", tpl.Difficulty),
			zap.String("prev_hash", tpl.PrevHash),
			zap.String("seed_hash", tpl.SeedHash),
			zap.Uint32("reserved_offset", tpl.ReservedOffset),
			zap.Uint64("tx_count", tpl.TxCount),
			zap.Int("blob_bytes", len(tpl.BlockBlob)),
			zap.String("hashing_blob_prefix", prefixHex(tpl.HashingBlob, 16)),
		}
		if consumer.Reorg() {
			logger.Warn("template height went backwards", fields...)
			return
		}
		logger.Info("new template", fields...)
	})
}

func prefixHex(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return hex.EncodeToString(b)
}
