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

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/debtwiser/internal/auth"
	"github.com/mmynk/debtwiser/internal/cache"
	"github.com/mmynk/debtwiser/internal/config"
	"github.com/mmynk/debtwiser/internal/handler"
	"github.com/mmynk/debtwiser/internal/metrics"
	"github.com/mmynk/debtwiser/internal/service"
	"github.com/mmynk/debtwiser/internal/storage"
	"github.com/mmynk/debtwiser/internal/storage/postgres"
	"github.com/mmynk/debtwiser/internal/storage/sqlite"
	"github.com/mmynk/debtwiser/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.DBDriver {
	case "postgres":
		return postgres.New(ctx, cfg.DatabaseURL)
	default:
		return sqlite.New(cfg.DBPath)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	logger.Info("Storage initialized", "driver", cfg.DBDriver)

	m := metrics.New()

	client, err := cache.NewClient(cache.Config{
		Driver:   cfg.CacheDriver,
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Prefix:   cfg.CachePrefix,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	c := cache.New(client, cache.Options{TTL: cfg.CacheTTL, Timeout: cfg.CacheTimeout, Metrics: m})
	defer c.Close()

	// The service runs without its cache, so an unreachable Redis is only a warning
	if err := c.Ping(ctx); err != nil {
		logger.Warn("Cache unreachable, continuing without it", "driver", cfg.CacheDriver, "addr", cfg.RedisAddr(), "error", err)
	} else {
		logger.Info("Cache initialized", "driver", cfg.CacheDriver, "ttl", cfg.CacheTTL)
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	router := handler.NewRouter(handler.Options{
		Debts:        service.NewDebtService(store, c, m, logger),
		Auth:         service.NewAuthService(auth.NewPasswordAuthenticator(store), store, jwtManager, logger),
		JWT:          jwtManager,
		Metrics:      m,
		Logger:       logger,
		Store:        store,
		Cache:        c,
		CookieName:   cfg.CookieName,
		CookieSecure: cfg.CookieSecure,
		FrontendURL:  cfg.FrontendURL,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h2c.NewHandler(router, &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", srv.Addr, "url", fmt.Sprintf("http://localhost%s", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
