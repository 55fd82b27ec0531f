package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/asset-gateway/internal/api/http"
	"github.com/spec-kit/asset-gateway/internal/api/http/handlers"
	"github.com/spec-kit/asset-gateway/internal/config"
	"github.com/spec-kit/asset-gateway/internal/observability"
	"github.com/spec-kit/asset-gateway/internal/persistence"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// readiness also covers the store the CLI keeps durable credentials in
	checks := map[string]handlers.Checker{}
	if cfg.Credential.Backend == config.BackendRedis {
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		checks["redis"] = redis
	}
	if cfg.Credential.Backend == config.BackendPostgres {
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()
		checks["postgres"] = pg
	}

	app, err := httptransport.NewServer(ctx, httptransport.ServerOptions{
		Config:  cfg.DevServer,
		Name:    cfg.App.Name,
		Version: cfg.App.Version,
		Logger:  logger,
		Metrics: observability.NewMetrics(),
		Checks:  checks,
	})
	if err != nil {
		logger.Fatal("failed to build dev server", zap.Error(err))
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.DevServer.Addr()))
		if err := app.Listen(cfg.DevServer.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
