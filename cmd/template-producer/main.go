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

	"github.com/goodnatureofminers/pool-coordinator/internal/daemon"
	"github.com/goodnatureofminers/pool-coordinator/internal/metrics"
	"github.com/goodnatureofminers/pool-coordinator/internal/notify"
	"github.com/goodnatureofminers/pool-coordinator/internal/template"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type config struct {
	DaemonURL       string        `long:"daemon-url" env:"TEMPLATE_DAEMON_URL" description:"daemon JSON-RPC URL" default:"http://127.0.0.1:18081"`
	WalletAddress   string        `long:"wallet-address" env:"TEMPLATE_WALLET_ADDRESS" description:"pool wallet address for get_block_template" required:"true"`
	ReserveSize     uint64        `long:"reserve-size" env:"TEMPLATE_RESERVE_SIZE" description:"extra nonce bytes reserved in the template" default:"17"`
	RPCTimeout      time.Duration `long:"rpc-timeout" env:"TEMPLATE_RPC_TIMEOUT" description:"timeout for a single daemon fetch" default:"10s"`
	CachePath       string        `long:"cache-path" env:"TEMPLATE_CACHE_PATH" description:"shared memory file for the template" default:"/dev/shm/pool-template"`
	CacheSize       int           `long:"cache-size" env:"TEMPLATE_CACHE_SIZE" description:"size of the shared region in bytes" default:"1048576"`
	RefreshInterval time.Duration `long:"refresh-interval" env:"TEMPLATE_REFRESH_INTERVAL" description:"periodic refresh interval" default:"30s"`
	RefreshRate     int           `long:"refresh-rate" env:"TEMPLATE_REFRESH_RATE" description:"max refreshes per second, 0 for unlimited" default:"4"`
	ZMQAddr         string        `long:"zmq-addr" env:"TEMPLATE_ZMQ_ADDR" description:"daemon ZMQ publisher, e.g. tcp://127.0.0.1:18083 (requires -tags zmq)"`
	UnlinkOnExit    bool          `long:"unlink-on-exit" env:"TEMPLATE_UNLINK_ON_EXIT" description:"remove the shared memory file on shutdown"`
	MetricsAddr     string        `long:"metrics-addr" env:"TEMPLATE_METRICS_ADDR" description:"address for metrics server" default:":2112"`
	LogJSON         bool          `long:"log-json" env:"TEMPLATE_LOG_JSON" description:"production JSON logging"`
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

	logger, err := newLogger(cfg.LogJSON)
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("template producer failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) (err error) {
	startMetricsServer(ctx, cfg.MetricsAddr, logger)

	client, err := daemon.NewClient(cfg.DaemonURL, cfg.WalletAddress, cfg.ReserveSize, cfg.RPCTimeout, metrics.NewRPCClient())
	if err != nil {
		return fmt.Errorf("init daemon client: %w", err)
	}

	opts := []template.Option{template.WithCreate(), template.WithSize(cfg.CacheSize)}
	if cfg.UnlinkOnExit {
		opts = append(opts, template.WithUnlinkOnClose())
	}
	cache, err := template.Open(cfg.CachePath, opts...)
	if err != nil {
		return fmt.Errorf("open template cache: %w", err)
	}
	defer func() {
		err = multierr.Append(err, cache.Close())
	}()
	logger.Info("template cache ready",
		zap.String("path", cache.Path()),
		zap.Int("capacity", cache.Capacity()),
		zap.Uint64("version", cache.Version()),
	)

	blockSignal, err := startBlockSignal(ctx, cfg.ZMQAddr, logger)
	if err != nil {
		return fmt.Errorf("start block signal: %w", err)
	}
	trigger := notify.Merge(ctx, blockSignal, notify.FromSignals(ctx, syscall.SIGUSR1))

	producer, err := template.NewProducer(
		client,
		cache,
		metrics.NewTemplateProducer(),
		logger.Named("producer"),
		trigger,
		template.WithRefreshInterval(cfg.RefreshInterval),
		template.WithFetchTimeout(cfg.RPCTimeout),
		template.WithRefreshRate(cfg.RefreshRate),
	)
	if err != nil {
		return err
	}
	return producer.Run(ctx)
}

func newLogger(jsonOutput bool) (*zap.Logger, error) {
	if jsonOutput {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
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
