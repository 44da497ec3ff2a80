package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"berater-api/internal/analytics"
	"berater-api/internal/auth"
	"berater-api/internal/chat"
	"berater-api/internal/config"
	"berater-api/internal/directory"
	"berater-api/internal/httpserver"
	"berater-api/internal/kv"
	"berater-api/internal/logging"
	"berater-api/internal/metrics"
	"berater-api/internal/offers"
	"berater-api/internal/qr"
	"berater-api/internal/review"
	"berater-api/internal/seed"
	"berater-api/migrations"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting berater-api", "env", cfg.AppEnv, "store", cfg.StoreDriver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricRegistry := metrics.Registry(cfg.MetricsNamespace)

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed closing store", "error", err)
		}
	}()

	if err := store.Ping(ctx); err != nil {
		logger.Warn("store ping failed", "error", err)
	}

	locks := kv.NewKeyMutex()

	authSvc := auth.New(store, logger, cfg.BcryptCost)
	directorySvc := directory.New(store, logger)
	reviewSvc := review.New(store, directorySvc, locks, metricRegistry, logger)
	chatSvc := chat.New(store, logger)
	qrSvc := qr.New(store, locks, metricRegistry, logger, cfg.PublicBaseURL)
	offersSvc := offers.New(store, logger)
	analyticsSvc := analytics.New(store, logger)
	seedSvc := seed.New(store, metricRegistry, logger)

	if cfg.SeedOnStart {
		result, err := seedSvc.Initialize(ctx)
		if err != nil {
			return fmt.Errorf("seed on start: %w", err)
		}
		logger.Info("bootstrap finished", "result", result.Message)
	}

	httpSrv := httpserver.New(cfg.HTTPListenAddr, logger, metricRegistry, httpserver.Services{
		Auth:      authSvc,
		Directory: directorySvc,
		Reviews:   reviewSvc,
		Chat:      chatSvc,
		QR:        qrSvc,
		Offers:    offersSvc,
		Analytics: analyticsSvc,
		Seed:      seedSvc,
		Store:     store,
	}, cfg.PublicBasePath)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	return nil
}

// openStore builds the configured key-value backend and applies migrations
// where the backend needs them.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (kv.Store, error) {
	switch cfg.StoreDriver {
	case "redis":
		return kv.NewRedis(kv.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			UseTLS:   cfg.RedisTLS,
		}, logger), nil
	case "postgres":
		store, err := kv.NewPostgres(ctx, cfg.DatabaseURL, cfg.DatabaseSchema, logger)
		if err != nil {
			return nil, err
		}
		if err := store.RunMigrations(ctx, migrations.Files); err != nil {
			store.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrated")
		return store, nil
	case "sqlite":
		store, err := kv.NewSQLite(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		if err := store.RunMigrations(ctx, migrations.Files); err != nil {
			store.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrated")
		return store, nil
	case "memory":
		return kv.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
