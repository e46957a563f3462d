package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goodnatureofminers/pool-coordinator/internal/aggregator"
	"github.com/goodnatureofminers/pool-coordinator/internal/api"
	"github.com/goodnatureofminers/pool-coordinator/internal/config"
	"github.com/goodnatureofminers/pool-coordinator/internal/jsonx"
	"github.com/goodnatureofminers/pool-coordinator/internal/metrics"
	"github.com/goodnatureofminers/pool-coordinator/internal/model"
	"github.com/goodnatureofminers/pool-coordinator/internal/storage"
	"github.com/jessevdk/go-flags"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type options struct {
	Addr           string        `long:"addr" env:"POOL_API_ADDR" description:"HTTP listen address" default:"127.0.0.1:5000"`
	StoreDSN       string        `long:"store-dsn" env:"POOL_API_STORE_DSN" description:"time series store (redis://, clickhouse://, sqlite://)" required:"true"`
	Nodes          []string      `long:"node" env:"POOL_API_NODES" env-delim:"," description:"pool node base URL, repeatable"`
	Upstreams      []string      `long:"upstream" env:"POOL_API_UPSTREAMS" env-delim:"," description:"URL, host:port or unique hostname of the upstream node, repeatable"`
	NodesFile      string        `long:"nodes-file" env:"POOL_API_NODES_FILE" description:"TOML file with [[node]] entries, overrides --node"`
	ConnectTimeout time.Duration `long:"connect-timeout" env:"POOL_API_CONNECT_TIMEOUT" description:"node connect timeout" default:"2s"`
	RequestTimeout time.Duration `long:"request-timeout" env:"POOL_API_REQUEST_TIMEOUT" description:"node request timeout" default:"3s"`
	SnapshotKey    string        `long:"snapshot-key" env:"POOL_API_SNAPSHOT_KEY" description:"key of the published snapshot" default:"pool:latest_stats"`
	BlockReward    float64       `long:"block-reward" env:"POOL_API_BLOCK_REWARD" description:"reward shown for blocks recorded by height only" default:"20"`
	LogJSON        bool          `long:"log-json" env:"POOL_API_LOG_JSON" description:"production JSON logging"`
}

func main() {
	opts := options{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := flags.ParseArgs(&opts, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := zap.NewDevelopment()
	if opts.LogJSON {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(ctx, opts, logger); err != nil {
		logger.Fatal("pool api failed", zap.Error(err))
	}
}

func run(ctx context.Context, opts options, logger *zap.Logger) (err error) {
	nodes, err := config.ResolveNodes(opts.NodesFile, opts.Nodes, opts.Upstreams)
	if err != nil {
		return fmt.Errorf("pool nodes: %w", err)
	}

	store, err := storage.Open(ctx, opts.StoreDSN, metrics.NewStore())
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, store.Close())
	}()

	aggMetrics := metrics.NewAggregator()
	collector := aggregator.NewCollector(
		aggregator.NewHTTPNodeClient(opts.ConnectTimeout, opts.RequestTimeout),
		nodes,
		aggMetrics,
		logger.Named("collector"),
	)
	// publisher is required by the service but live aggregation never publishes
	publisher, err := aggregator.NewPublisher(store, opts.SnapshotKey, aggregator.DefaultSnapshotTTL)
	if err != nil {
		return err
	}
	svc, err := aggregator.NewService(collector, nil, publisher, aggMetrics, aggregator.DefaultInterval, logger.Named("aggregator"))
	if err != nil {
		return err
	}

	jsonx.Pretouch(model.AggregatedSnapshot{}, model.MinerStats{}, model.Worker{})
	server := api.NewServer(store, svc, collector, metrics.NewAPI(), opts.SnapshotKey, logger.Named("api"),
		api.WithBlockReward(opts.BlockReward),
	)

	s := &http.Server{
		Addr:              opts.Addr,
		Handler:           server.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}
	go func() {
		<-ctx.Done()
		logger.Info("Shutting down the http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shutdown http server", zap.Error(err))
		}
	}()

	logger.Info("Starting HTTP server", zap.String("addr", opts.Addr), zap.Int("nodes", len(nodes)))
	if err := s.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}
