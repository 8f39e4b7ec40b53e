package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Harshitk-cp/epistemic/internal/api"
	"github.com/Harshitk-cp/epistemic/internal/app"
	"github.com/Harshitk-cp/epistemic/internal/buildconfig"
	"github.com/Harshitk-cp/epistemic/internal/config"
	"github.com/Harshitk-cp/epistemic/internal/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func main() {
	bootLogger, _ := zap.NewProduction()
	if err := config.Load(); err != nil {
		bootLogger.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := newLogger(config.LogLevel())
	if err != nil {
		bootLogger.Fatal("invalid LOG_LEVEL", zap.String("level", config.LogLevel()), zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()

	dbURL := config.DatabaseURL()
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()

	pool, err := store.NewPool(ctx, dbURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()
	logger.Info("connected to database")

	applied, err := store.Migrate(ctx, pool, config.MigrationsPath(), logger)
	if err != nil {
		logger.Fatal("failed to apply migrations", zap.Error(err))
	}
	logger.Info("migrations applied", zap.Int("count", applied))

	ledger, err := app.Build(ctx, pool, app.SettingsFromConfig(), logger)
	if err != nil {
		logger.Fatal("failed to build ledger", zap.Error(err))
	}

	a := api.NewApp(api.Deps{
		DB:             pool,
		Ledger:         ledger.Ledger,
		Engine:         ledger.Engine,
		Notes:          ledger.Notes,
		Audit:          ledger.Audit,
		Logger:         logger,
		GatewayToken:   config.GatewayToken(),
		RateLimitRPS:   config.RateLimitRPS(),
		RateLimitBurst: config.RateLimitBurst(),
	})
	if config.GatewayToken() == "" {
		logger.Warn("GATEWAY_TOKEN is empty, /v1 accepts unauthenticated requests")
	}

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting",
			zap.String("addr", addr),
			zap.String("version", buildconfig.Version()),
			zap.String("commit", buildconfig.Commit()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
