package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/SAP-F-2025/session-runtime/internal/backend"
	"github.com/SAP-F-2025/session-runtime/internal/cache"
	"github.com/SAP-F-2025/session-runtime/internal/config"
	"github.com/SAP-F-2025/session-runtime/internal/handlers"
	"github.com/SAP-F-2025/session-runtime/internal/metrics"
	"github.com/SAP-F-2025/session-runtime/internal/services"
	"github.com/SAP-F-2025/session-runtime/internal/utils"
	"github.com/SAP-F-2025/session-runtime/internal/validator"
	"github.com/SAP-F-2025/session-runtime/pkg"
	"github.com/SAP-F-2025/session-runtime/pkg/tracing"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := utils.NewLogger(utils.LoggerConfig{
		Level:       cfg.LogLevel,
		Development: !cfg.IsProduction(),
		File:        cfg.LogFile,
	})
	slogger := utils.ToSlogLogger(logger)

	if err := run(cfg, logger, slogger); err != nil {
		logger.Error("Session runtime stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger utils.Logger, slogger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cleanups []func(context.Context)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i](shutdownCtx)
		}
	}()

	if cfg.Tracing.Enabled {
		shutdownTracer, err := tracing.InitTracer(tracing.Config{
			ServiceName:       cfg.Tracing.ServiceName,
			CollectorEndpoint: cfg.Tracing.JaegerURL,
			SampleRatio:       cfg.Tracing.SampleRatio,
		})
		if err != nil {
			return err
		}
		cleanups = append(cleanups, func(ctx context.Context) {
			if err := shutdownTracer(ctx); err != nil {
				logger.Warn("Failed to shutdown tracer provider", "error", err)
			}
		})
	}

	store, closeStore, err := openCacheStore(ctx, cfg, slogger)
	if err != nil {
		return err
	}
	cleanups = append(cleanups, func(context.Context) { closeStore() })

	publisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		return fmt.Errorf("failed to create event publisher: %w", err)
	}
	cleanups = append(cleanups, func(context.Context) {
		if err := publisher.Close(); err != nil {
			logger.Warn("Failed to close event publisher", "error", err)
		}
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	sessionService := services.NewSessionService(services.SessionDependencies{
		Client: backend.NewHTTPClient(backend.Config{
			BaseURL:   cfg.Backend.BaseURL,
			Timeout:   cfg.Backend.Timeout,
			RateLimit: cfg.Backend.RateLimit,
			Burst:     cfg.Backend.RateBurst,
		}, slogger),
		Cache:     cache.NewAnswerCache(store, slogger, cfg.SessionTTL),
		Publisher: publisher,
		Metrics:   m,
		Validator: validator.New(),
	}, cfg.Session, slogger)
	cleanups = append(cleanups, func(ctx context.Context) {
		if err := sessionService.Shutdown(ctx); err != nil {
			logger.Warn("Session service did not stop cleanly", "error", err)
		}
	})

	var auth gin.HandlerFunc
	if cfg.Auth.Enabled {
		auth = handlers.AuthMiddleware(handlers.NewCasdoorParser(cfg.Auth), cfg.Session.AuthEntryURL, logger)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), utils.ContextLogger(logger), utils.LoggerMiddleware(logger), m.Middleware())
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}
	handlers.NewHandlerManager(sessionService, m, auth, logger).SetupRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Session runtime listening", "port", cfg.Port, "cache_backend", cfg.CacheBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down session runtime")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// openCacheStore connects the answer cache to the configured storage.
func openCacheStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.CacheService, func(), error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch cfg.CacheBackend {
	case "redis":
		client, err := pkg.NewRedisClient(connectCtx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return cache.NewRedisCache(client, logger), func() { client.Close() }, nil
	case "postgres":
		db, err := pkg.InitDatabase(connectCtx, cfg)
		if err != nil {
			return nil, nil, err
		}
		store, err := cache.NewGormCache(db, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}, nil
	default:
		logger.Warn("Using in-memory answer cache; answers do not survive a restart")
		return cache.NewMemoryCache(), func() {}, nil
	}
}
