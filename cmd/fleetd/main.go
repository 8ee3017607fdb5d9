package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hectormarrufor/WR-sub004/internal/config"
	"github.com/hectormarrufor/WR-sub004/internal/domain/catalog"
	"github.com/hectormarrufor/WR-sub004/internal/domain/inventory"
	"github.com/hectormarrufor/WR-sub004/internal/engine"
	"github.com/hectormarrufor/WR-sub004/internal/infra/db"
	httpx "github.com/hectormarrufor/WR-sub004/internal/infra/http"
	"github.com/hectormarrufor/WR-sub004/internal/infra/logger"
	"github.com/hectormarrufor/WR-sub004/internal/infra/photos"
	"github.com/hectormarrufor/WR-sub004/internal/report"
	"github.com/hectormarrufor/WR-sub004/internal/storage/postgres"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/subosito/gotenv"
)

func runMigrations(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, "migrations")
}

func main() {
	_ = gotenv.Load()

	cfg, err := config.Load("config/example.yaml")
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env, cfg.App.LogLevel)

	if err := runMigrations(cfg.Postgres.DSN); err != nil {
		log.Error("migrations failed", "err", err)
		return
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return
	}
	defer pool.Close()
	log.Info("db connected")

	// The ERP route handlers that call the engine live outside this core.
	eng := engine.New(postgres.New(pool), log, photos.NewClient(cfg.Photos.BaseURL))
	_ = eng

	reportHandler := report.Handler(catalog.NewRepo(pool), inventory.NewRepo(pool), log)
	srv := httpx.New(cfg.HTTP.Addr, cfg.Metrics.Enabled, reportHandler)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete", slog.String("env", cfg.App.Env))
}
