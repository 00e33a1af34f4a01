// Command server exposes the read API over the drug status database.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/jackc/pgx/v5/stdlib"

	"regscope/internal/changelog"
	"regscope/internal/normalize"
	"regscope/internal/platform/config"
	"regscope/internal/platform/httpserver"
	"regscope/internal/platform/logger"
	"regscope/internal/platform/metrics"
	platformredis "regscope/internal/platform/redis"
	"regscope/internal/status"
	transporthttp "regscope/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("REGSCOPE_DATABASE_URL is required")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	statusStore := status.NewPostgresStore(db)
	if err := statusStore.Migrate(ctx); err != nil {
		return err
	}
	changeStore := changelog.NewPostgresStore(db)
	if err := changeStore.Migrate(ctx); err != nil {
		return err
	}

	m := metrics.New()

	var statuses status.Store = statusStore
	cache, err := platformredis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if cache != nil {
		defer cache.Close()
		statuses = status.NewCachedStore(statusStore, cache, cfg.Redis.StatusTTL, log)
		log.Info("status cache enabled", "ttl", cfg.Redis.StatusTTL)
	}

	handler := transporthttp.New(statuses, changeStore, log).
		WithMatcher(normalize.New(normalize.DefaultSynonyms()), cfg.FuzzyThreshold)
	handler.AddHealthCheck("postgres", dbHealth{db})
	if cache != nil {
		handler.AddHealthCheck("redis", cache)
	}

	r := chi.NewRouter()
	r.Use(transporthttp.Recovery(log))
	r.Use(transporthttp.RequestID)
	r.Use(transporthttp.Logger(log))
	r.Use(transporthttp.Latency(m))
	handler.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, r)
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type dbHealth struct {
	db *sql.DB
}

func (h dbHealth) Health(ctx context.Context) error {
	return h.db.PingContext(ctx)
}
