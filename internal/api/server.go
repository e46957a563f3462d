// Package api serves pool statistics, node status and chart series over HTTP.
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goodnatureofminers/pool-coordinator/internal/model"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const (
	DefaultChartHours   = 8
	maxChartHours       = 24 * 30
	DefaultLiveCacheTTL = 30 * time.Second
)

type Server struct {
	store       Store
	aggregator  Aggregator
	collector   NodeCollector
	metrics     Metrics
	logger      *zap.Logger
	snapshotKey string
	liveTTL     time.Duration
	blockReward float64
	now         func() time.Time

	mu       sync.Mutex
	live     *model.AggregatedSnapshot
	liveAt   time.Time
	handler  http.Handler
	initOnce sync.Once
}

// Option tunes a Server.
type Option func(*Server)

// WithBlockReward sets the reward reported for blocks known only by height.
func WithBlockReward(reward float64) Option {
	return func(s *Server) {
		s.blockReward = reward
	}
}

func NewServer(
	store Store,
	aggregator Aggregator,
	collector NodeCollector,
	metrics Metrics,
	snapshotKey string,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	s := &Server{
		store:       store,
		aggregator:  aggregator,
		collector:   collector,
		metrics:     metrics,
		logger:      logger,
		snapshotKey: snapshotKey,
		liveTTL:     DefaultLiveCacheTTL,
		blockReward: DefaultBlockReward,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router with CORS, recovery, request logging and /metrics.
func (s *Server) Handler() http.Handler {
	s.initOnce.Do(func() {
		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.RealIP)
		r.Use(s.observe)
		r.Use(middleware.Recoverer)

		r.Route("/api", func(r chi.Router) {
			r.Get("/health", s.handleHealth)
			r.Get("/stats", s.handleStats)
			r.Get("/nodes", s.handleNodes)
			r.Get("/charts", s.handleCharts)
			r.Get("/workers", s.handleWorkers)
			r.Get("/blocks", s.handleBlocks)
		})
		r.Handle("/metrics", promhttp.Handler())
		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			s.writeError(w, http.StatusNotFound, "endpoint not found")
		})

		s.handler = cors.Default().Handler(r)
	})
	return s.handler
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}
			s.metrics.ObserveRequest(route, status, started)
			s.logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("duration", time.Since(started)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
