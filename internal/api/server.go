package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/homecrate/homecrate/internal/metrics"
	"github.com/homecrate/homecrate/internal/query"
	"github.com/homecrate/homecrate/internal/session"
	"github.com/homecrate/homecrate/internal/storage"
)

// ServerDeps bundles what the HTTP surface is built from. Sessions may be
// nil, which disables authentication and the login endpoints.
type ServerDeps struct {
	Logger       *slog.Logger
	Store        storage.Store
	Executor     *query.Executor
	Sessions     *session.Store
	AuthPassword string
	SessionTTL   time.Duration
	Backends     map[string]Pinger
}

// NewServer creates an HTTP server with all routes configured.
func NewServer(deps ServerDeps) http.Handler {
	mux := chi.NewRouter()

	mux.Use(RequestID)
	mux.Use(Logging(deps.Logger))
	mux.Use(Recovery(deps.Logger))
	mux.Use(metrics.Metrics)

	healthHandler := NewHealthHandler(deps.Backends, deps.Logger)
	mux.Get("/livez", healthHandler.Livez)
	mux.Get("/readyz", healthHandler.Readyz)
	mux.Handle("/metrics", promhttp.Handler())

	if deps.Sessions != nil {
		sessionHandler := NewSessionHandler(deps.Sessions, deps.AuthPassword, deps.SessionTTL, deps.Logger)
		mux.Post("/login", sessionHandler.Login)
		mux.Post("/logout", sessionHandler.Logout)
	}

	queryHandler := NewQueryHandler(deps.Executor, deps.Logger)
	labelHandler := NewLabelHandler(deps.Store, deps.Logger)

	mux.Route("/api", func(r chi.Router) {
		r.Use(Auth(deps.Sessions, deps.Logger))
		humaAPI := humachi.New(r, huma.DefaultConfig("Homecrate", "1.0.0"))
		registerQueryRoutes(humaAPI, queryHandler)
		registerLabelRoutes(humaAPI, labelHandler)
	})

	return mux
}

// RedisPinger adapts a go-redis client to the Pinger interface.
type RedisPinger struct {
	Client *redis.Client
}

func (p RedisPinger) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}
