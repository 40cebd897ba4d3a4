package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/homecrate/homecrate/internal/aggregate"
	"github.com/homecrate/homecrate/internal/api"
	"github.com/homecrate/homecrate/internal/circuitbreaker"
	"github.com/homecrate/homecrate/internal/config"
	"github.com/homecrate/homecrate/internal/metrics"
	"github.com/homecrate/homecrate/internal/query"
	"github.com/homecrate/homecrate/internal/session"
	"github.com/homecrate/homecrate/internal/storage"
)

func main() {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg := config.Load()

	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to PostgreSQL
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Run migrations
	if err := storage.RunMigrations(ctx, pool); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("migrations complete")

	store := storage.NewPostgresStore(pool, cfg.QueryTimeout)
	engine := aggregate.NewEngine(store)
	executor := query.NewExecutor(store, engine)

	backends := map[string]api.Pinger{"postgres": pool}

	// The key-value store only backs sessions; with auth disabled there is
	// nothing to connect to.
	var (
		sessions    *session.Store
		redisClient *redis.Client
	)
	if cfg.AuthPassword != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("failed to ping key-value store", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		breaker := circuitbreaker.New(cfg.BreakerMaxFailures, cfg.BreakerResetTimeout)
		sessions = session.NewStore(redisClient, breaker, cfg.SessionTTL)
		backends["redis"] = api.RedisPinger{Client: redisClient}
		logger.Info("connected to key-value store")
	} else {
		logger.Warn("AUTH_PASSWORD not set; API is unauthenticated")
	}

	prometheus.MustRegister(metrics.NewPoolCollector(pool, redisClient))

	handler := api.NewServer(api.ServerDeps{
		Logger:       logger,
		Store:        store,
		Executor:     executor,
		Sessions:     sessions,
		AuthPassword: cfg.AuthPassword,
		SessionTTL:   cfg.SessionTTL,
		Backends:     backends,
	})
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	go func() {
		logger.Info("starting HTTP server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
