// Package server wires storage, the sync pipeline and the HTTP surface
// into one h2c-capable API server.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/burntop/burntop/internal/config"
	"github.com/burntop/burntop/internal/handlers"
	"github.com/burntop/burntop/internal/logger"
	"github.com/burntop/burntop/internal/pricing"
	"github.com/burntop/burntop/internal/scheduler"
	"github.com/burntop/burntop/internal/stats"
	"github.com/burntop/burntop/internal/storage"
	"github.com/burntop/burntop/internal/streak"
	"github.com/burntop/burntop/internal/syncer"
	"github.com/burntop/burntop/internal/websocket"
)

// messageIDRetention bounds the dedup table; ids older than this are
// reclaimed by the nightly prune job.
const messageIDRetention = 90 * 24 * time.Hour

type Server struct {
	router  chi.Router
	store   *storage.Store
	wsHub   *websocket.Hub
	sched   *scheduler.Scheduler
	config  *config.Config
	stopped chan struct{}

	httpServer *http.Server
	mu         sync.Mutex
}

func New(cfg *config.Config) (*Server, error) {
	store, err := storage.NewStore(cfg.DatabasePath, storage.Options{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	hub := websocket.NewHub()
	go hub.Run()
	websocket.SetAllowedOrigins([]string{cfg.FrontendURL, cfg.BackendURL, "http://localhost:5173", "http://localhost:8080"})

	fetcher := pricing.NewFetcher(cfg.PricingURL, cfg.PricingCachePath)
	streaks := streak.NewEngine(store)
	orch := syncer.NewOrchestrator(store, fetcher, streaks, hub)
	insights := stats.NewInsightsAssembler(store)

	s := &Server{
		router:  chi.NewRouter(),
		store:   store,
		wsHub:   hub,
		sched:   newScheduler(store, hub, streaks),
		config:  cfg,
		stopped: make(chan struct{}),
	}

	h := handlers.New(store, orch, insights, streaks, hub, cfg)
	s.setupMiddleware()
	s.setupRoutes(h)

	return s, nil
}

// newScheduler registers the background jobs that keep the derived tables
// fresh: leaderboards every minute, benchmarks hourly, streak warnings
// hourly, dedup prune nightly.
func newScheduler(store *storage.Store, hub *websocket.Hub, streaks *streak.Engine) *scheduler.Scheduler {
	leaderboards := stats.NewLeaderboardBuilder(store, hub)
	benchmarks := stats.NewBenchmarkBuilder(store)

	sched := scheduler.New()
	sched.Add("leaderboard", scheduler.EveryMinute, func(ctx context.Context, now time.Time) error {
		leaderboards.BuildAll(ctx, now)
		return nil
	})
	sched.Add("benchmark", scheduler.HourlyAtMinute(5), func(ctx context.Context, now time.Time) error {
		benchmarks.BuildAll(ctx, now)
		return nil
	})
	sched.Add("streak-at-risk", scheduler.HourlyAtMinute(0), func(ctx context.Context, now time.Time) error {
		atRisk, err := streaks.GetAtRisk(ctx, now, streak.DefaultAtRiskHour)
		if err != nil {
			return err
		}
		for _, st := range atRisk {
			hub.StreakAtRisk(st.UserID, st.CurrentStreak)
		}
		return nil
	})
	sched.Add("dedup-prune", dailyAtMidnight, func(ctx context.Context, now time.Time) error {
		pruned, err := store.PruneMessageIDsBefore(ctx, now.Add(-messageIDRetention))
		if err != nil {
			return err
		}
		if pruned > 0 {
			logger.Info("pruned synced message ids", "count", pruned)
		}
		return nil
	})
	return sched
}

func dailyAtMidnight(now time.Time) bool {
	return now.UTC().Hour() == 0 && now.UTC().Minute() == 0
}

// Store exposes the backing store for subcommands sharing the wiring
func (s *Server) Store() *storage.Store {
	return s.store
}

func (s *Server) ListenAndServe() error {
	log := logger.Logger()

	schedCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.sched.Start(schedCtx)

	addr := fmt.Sprintf(":%d", s.config.APIPort)
	h2s := &http2.Server{}

	s.mu.Lock()
	// WriteTimeout stays disabled so websocket connections can outlive it
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      h2c.NewHandler(s.router, h2s),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}
	s.mu.Unlock()

	log.Info("api server starting",
		"addr", addr,
		"protocol", "HTTP/1.1 + h2c",
		"endpoints", "POST /api/v1/sync, GET /api/v1/*, /ws, /health",
	)

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		<-s.stopped
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("shutting down server")
	defer close(s.stopped)

	s.sched.Stop()

	s.mu.Lock()
	httpServer := s.httpServer
	s.mu.Unlock()

	var errs []error
	if httpServer != nil {
		if err := httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down http server: %w", err))
		}
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing storage: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}
