// Command etl runs the Vélib' availability pipeline: a fixed-interval
// scheduler that snapshots the OpenDataSoft feed into MongoDB and loads the
// derived station and availability relations into PostgreSQL, plus an HTTP
// server for health, readiness, and metrics.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/velib-etl-service/internal/adapter/http"
	"github.com/couchcryptid/velib-etl-service/internal/adapter/mongodb"
	"github.com/couchcryptid/velib-etl-service/internal/adapter/postgres"
	"github.com/couchcryptid/velib-etl-service/internal/adapter/velib"
	"github.com/couchcryptid/velib-etl-service/internal/config"
	"github.com/couchcryptid/velib-etl-service/internal/observability"
	"github.com/couchcryptid/velib-etl-service/internal/pipeline"
	"github.com/couchcryptid/velib-etl-service/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	feed := velib.NewClient(cfg, logger)
	snapshots := mongodb.NewStore(cfg.Mongo, logger)
	sink := postgres.NewStore(cfg.Postgres, logger)

	extract := pipeline.NewExtract(feed, snapshots, logger, metrics)
	transform := pipeline.NewTransformLoad(snapshots, sink, logger, metrics)

	sched := scheduler.New(cfg, extract, transform, logger, metrics)
	if err := sched.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, transform, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
