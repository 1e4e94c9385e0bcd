package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"presence/internal/device"
	"presence/internal/feed"
	"presence/internal/feed/memory"
	"presence/internal/feed/pgfeed"
	"presence/internal/feed/redisfeed"
	"presence/internal/platform/config"
	"presence/internal/platform/httpserver"
	"presence/internal/platform/logger"
	"presence/internal/platform/metrics"
	"presence/internal/platform/postgres"
	platformredis "presence/internal/platform/redis"
	"presence/internal/recognition"
	httptransport "presence/internal/transport/http"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal services packages.
func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()
	mtr := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, cleanup, err := buildSource(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("build feed source: %w", err)
	}
	defer cleanup()

	sup := newFeedSupervisor(source, cfg.Feed, log, mtr)
	if err := sup.Start(ctx); err != nil {
		return fmt.Errorf("start mirror: %w", err)
	}
	defer sup.Close()

	deviceMgr := device.NewManager(device.NewFileStore(cfg.Server.StateDir))
	deviceID, err := deviceMgr.ID()
	if err != nil {
		return fmt.Errorf("device identity: %w", err)
	}
	log.Info("device identity ready", "device_id", deviceID)

	recognizer := recognition.New(
		cfg.Recognition.BaseURL,
		&http.Client{Timeout: cfg.Recognition.Timeout},
		log, mtr,
	)

	handler := httptransport.New(sup, recognizer, deviceMgr, log, mtr)
	srv := httpserver.New(cfg.Server.Addr, httptransport.NewRouter(handler))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening",
			"addr", cfg.Server.Addr,
			"feed", string(cfg.Feed.Backend),
			"recognition", cfg.Recognition.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sup.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildSource selects the change-feed backend. The memory backend needs no
// external services and ships with demo data so the dashboard renders
// something on first run.
func buildSource(ctx context.Context, cfg config.Config, log *slog.Logger) (feed.Source, func(), error) {
	switch cfg.Feed.Backend {
	case config.FeedMemory:
		src := memory.New()
		seedDemo(src)
		return src, func() {}, nil

	case config.FeedRedis:
		client, err := platformredis.New(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		if client == nil {
			return nil, nil, errors.New("redis backend selected but PRESENCE_REDIS_URL is empty")
		}
		return redisfeed.New(client, log), func() { _ = client.Close() }, nil

	case config.FeedPostgres:
		pool, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		if pool == nil {
			return nil, nil, errors.New("postgres backend selected but PRESENCE_POSTGRES_URL is empty")
		}
		if err := pgfeed.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pgfeed.New(pool, log), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown feed backend %q", cfg.Feed.Backend)
}

func seedDemo(src *memory.Source) {
	now := time.Now()
	src.Put("students", "demo-student-1", map[string]any{
		"studentid": "STU001",
		"name":      "Ada Lovelace",
		"createdat": now.Add(-48 * time.Hour),
		"active":    true,
	})
	src.Put("students", "demo-student-2", map[string]any{
		"studentid": "STU002",
		"name":      "Grace Hopper",
		"createdat": now.Add(-24 * time.Hour),
		"active":    true,
	})
	src.Put("attendance_logs", "demo-log-1", map[string]any{
		"studentid":  "STU001",
		"timestamp":  now.Add(-2 * time.Hour),
		"confidence": 0.93,
		"deviceid":   "device_demo",
	})
	src.Put("attendance_logs", "demo-log-2", map[string]any{
		"studentid":  "STU002",
		"timestamp":  now.Add(-time.Hour),
		"confidence": 0.88,
		"deviceid":   "device_demo",
	})
}
