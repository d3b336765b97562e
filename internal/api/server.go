// Package api serves the optimizer over HTTP: synchronous and asynchronous
// runs, run history, live run event streams and operational endpoints.
package api

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	redis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"tourplan/internal/cache"
	"tourplan/internal/config"
	"tourplan/internal/export"
	"tourplan/internal/metrics"
	"tourplan/internal/planner"
	"tourplan/internal/store"
)

type Server struct {
	Config  config.Config
	Store   store.Store
	Broker  EventBroker
	Planner *planner.Planner
	Export  *export.Publisher
	Logger  *log.Logger

	limiter *rate.Limiter
	pingers map[string]pinger
	closers []io.Closer

	// background runs live until Close
	ctx    context.Context
	cancel context.CancelFunc
	runs   sync.WaitGroup
}

type pinger interface{ Ping(ctx context.Context) error }

// NewServer wires the store, broker and cache named by cfg. Without
// DATABASE_URL runs are kept in memory; without REDIS_URL events and cached
// results stay in process.
func NewServer(cfg config.Config, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Default()
	}
	metrics.RegisterDefault()
	s := &Server{Config: cfg, Logger: logger, pingers: map[string]pinger{}}

	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		s.Store = store.NewMemory()
	} else {
		pg, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("api: connect postgres: %w", err)
		}
		if cfg.DBMigrate {
			if err := pg.MigrateDir(cfg.MigrationsDir); err != nil {
				_ = pg.Close()
				return nil, fmt.Errorf("api: migrate: %w", err)
			}
		}
		s.Store = pg
		s.pingers["postgres"] = pg
		s.closers = append(s.closers, pg)
	}

	var resultCache cache.Cache
	if strings.TrimSpace(cfg.RedisURL) == "" {
		s.Broker = NewBroker()
		resultCache = cache.NewMemory()
	} else {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("api: REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		rc := cache.NewRedisClient(rdb)
		s.Broker = NewRedisBroker(rdb, logger)
		resultCache = rc
		s.pingers["redis"] = rc
		s.closers = append(s.closers, rc)
	}

	s.Planner = planner.New(resultCache, cfg.CacheTTL.Std(), cfg.Optimizer, logger)
	s.Export = export.NewPublisher(s.Store, cfg.Export.WebhookURL, cfg.Export.WebhookSecret)
	if cfg.RateRPS > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateRPS), burst)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

// NewExportWorker creates the background worker delivering export webhooks.
func (s *Server) NewExportWorker() *export.Worker {
	return export.NewWorker(s.Store, s.Config.Export.MaxAttempts, s.Config.Export.Timeout.Std(), s.Logger)
}

// Close stops background runs, waits for them to record their outcome and
// releases connections.
func (s *Server) Close() {
	if s.cancel != nil {
		s.cancel()
		s.runs.Wait()
	}
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			s.Logger.Warn("close", "err", err)
		}
	}
	s.closers = nil
}
