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

	"github.com/dustin/go-humanize"
	"github.com/goodnatureofminers/pool-coordinator/internal/aggregator"
	"github.com/goodnatureofminers/pool-coordinator/internal/config"
	"github.com/goodnatureofminers/pool-coordinator/internal/jsonx"
	"github.com/goodnatureofminers/pool-coordinator/internal/metrics"
	"github.com/goodnatureofminers/pool-coordinator/internal/model"
	"github.com/goodnatureofminers/pool-coordinator/internal/storage"
	"github.com/goodnatureofminers/pool-coordinator/internal/timeseries"
	"github.com/goodnatureofminers/pool-coordinator/pkg/safe"
	"github.com/hako/durafmt"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type options struct {
	StoreDSN       string        `long:"store-dsn" env:"AGGREGATOR_STORE_DSN" description:"time series store (redis://, clickhouse://, sqlite://)" required:"true"`
	Nodes          []string      `long:"node" env:"AGGREGATOR_NODES" env-delim:"," description:"pool node base URL, repeatable"`
	Upstreams      []string      `long:"upstream" env:"AGGREGATOR_UPSTREAMS" env-delim:"," description:"URL, host:port or unique hostname of the upstream node, repeatable"`
	NodesFile      string        `long:"nodes-file" env:"AGGREGATOR_NODES_FILE" description:"TOML file with [[node]] entries, overrides --node"`
	Mode           string        `long:"mode" env:"AGGREGATOR_MODE" description:"full records series and publishes, aggregate-only publishes once and exits" choice:"full" choice:"aggregate-only" default:"full"`
	Interval       time.Duration `long:"interval" env:"AGGREGATOR_INTERVAL" description:"cycle interval" default:"60s"`
	ConnectTimeout time.Duration `long:"connect-timeout" env:"AGGREGATOR_CONNECT_TIMEOUT" description:"node connect timeout" default:"2s"`
	RequestTimeout time.Duration `long:"request-timeout" env:"AGGREGATOR_REQUEST_TIMEOUT" description:"node request timeout" default:"5s"`
	SnapshotKey    string        `long:"snapshot-key" env:"AGGREGATOR_SNAPSHOT_KEY" description:"key of the published snapshot" default:"pool:latest_stats"`
	SnapshotTTL    time.Duration `long:"snapshot-ttl" env:"AGGREGATOR_SNAPSHOT_TTL" description:"snapshot lifetime, must exceed the interval" default:"300s"`
	Retention      time.Duration `long:"retention" env:"AGGREGATOR_RETENTION" description:"time series retention window" default:"72h"`
	MetricsAddr    string        `long:"metrics-addr" env:"AGGREGATOR_METRICS_ADDR" description:"address for metrics server" default:":2113"`
	LogJSON        bool          `long:"log-json" env:"AGGREGATOR_LOG_JSON" description:"production JSON logging"`
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

	if err := run(ctx, opts, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("stats aggregator failed", zap.Error(err))
	}
}

func run(ctx context.Context, opts options, logger *zap.Logger) (err error) {
	mode, err := aggregator.ParseMode(opts.Mode)
	if err != nil {
		return err
	}
	nodes, err := config.ResolveNodes(opts.NodesFile, opts.Nodes, opts.Upstreams)
	if err != nil {
		return fmt.Errorf("pool nodes: %w", err)
	}
	if err := config.ValidateSnapshotTTL(opts.Interval, opts.SnapshotTTL); err != nil {
		return err
	}

	store, err := storage.Open(ctx, opts.StoreDSN, metrics.NewStore())
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, store.Close())
	}()

	publisher, err := aggregator.NewPublisher(store, opts.SnapshotKey, opts.SnapshotTTL)
	if err != nil {
		return err
	}
	recorder, err := timeseries.NewRecorder(store, opts.Retention)
	if err != nil {
		return err
	}

	aggMetrics := metrics.NewAggregator()
	collector := aggregator.NewCollector(
		aggregator.NewHTTPNodeClient(opts.ConnectTimeout, opts.RequestTimeout),
		nodes,
		aggMetrics,
		logger.Named("collector"),
	)
	svc, err := aggregator.NewService(collector, recorder, publisher, aggMetrics, opts.Interval, logger.Named("aggregator"))
	if err != nil {
		return err
	}

	logger.Info("stats aggregator configured",
		zap.String("mode", string(mode)),
		zap.Int("nodes", len(nodes)),
		zap.Duration("interval", opts.Interval),
		zap.Duration("snapshot_ttl", opts.SnapshotTTL),
		zap.Duration("retention", recorder.Retention()),
	)

	if mode == aggregator.ModeAggregateOnly {
		snap, err := svc.RunOnce(ctx, mode)
		if err != nil {
			return err
		}
		return report(snap, logger)
	}

	startMetricsServer(ctx, opts.MetricsAddr, logger)
	return svc.Run(ctx)
}

// report prints the snapshot to stdout and logs a readable summary.
func report(snap *model.AggregatedSnapshot, logger *zap.Logger) error {
	body, err := jsonx.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if _, err := fmt.Fprintln(os.Stdout, string(body)); err != nil {
		return err
	}

	fields := []zap.Field{
		zap.String("pool_hashrate", humanize.SIWithDigits(float64(snap.PoolHashrate), 2, "H/s")),
		zap.String("network_hashrate", humanize.SIWithDigits(float64(snap.NetworkHashrate), 2, "H/s")),
	}
	if miners, err := safe.Int64(snap.ConnectedMiners); err == nil {
		fields = append(fields, zap.String("miners", humanize.Comma(miners)))
	}
	if blocks, err := safe.Int64(snap.PoolBlocksFound); err == nil {
		fields = append(fields, zap.String("blocks_found", humanize.Comma(blocks)))
	}
	if found, err := safe.Int64(snap.LastBlockFound); err == nil && found > 0 {
		age := time.Since(time.Unix(found, 0)).Truncate(time.Second)
		fields = append(fields, zap.String("last_block", durafmt.Parse(age).LimitFirstN(2).String()+" ago"))
	}
	if snap.PoolEffort != nil {
		fields = append(fields, zap.String("effort", fmt.Sprintf("%.2f%%", *snap.PoolEffort)))
	}
	logger.Info("pool summary", fields...)
	return nil
}

func startMetricsServer(ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("starting metrics server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", zap.Error(err))
		}
	}()
}
