// Package api exposes the lookup service over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"transmission-api/internal/catalog"
	"transmission-api/internal/common/logger"
	"transmission-api/internal/llm"
	"transmission-api/internal/lookup"
)

// Looker answers a raw query.
type Looker interface {
	Lookup(ctx context.Context, raw string) (*lookup.Result, error)
}

// CatalogStatus reports the active catalog snapshot.
type CatalogStatus interface {
	Status() (catalog.Status, bool)
}

// HealthChecker reports whether an optional backend is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps are the collaborators behind the routes. Models and Prober are
// optional; their routes answer 501 when unset.
type Deps struct {
	Lookup  Looker
	Catalog CatalogStatus
	Models  llm.ModelLister
	Prober  llm.Completer
	Model   string
	Logger  logger.Logger

	// Workflow is checked by /readyz when the workflow worker runs.
	Workflow HealthChecker
}

type Options struct {
	RequestTimeout time.Duration
	AllowedOrigins []string
	// MetricsHandler serves /metrics. Defaults to the Prometheus default
	// registry.
	MetricsHandler http.Handler
}

// NewRouter builds the HTTP handler.
func NewRouter(deps Deps, opts Options) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.MetricsHandler == nil {
		opts.MetricsHandler = promhttp.Handler()
	}

	h := &handlers{
		deps:   deps,
		logger: logger.ForComponent(deps.Logger, "api"),
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors(opts.AllowedOrigins))

	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
	r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)

	r.Group(func(r chi.Router) {
		r.Use(deadline(opts.RequestTimeout))
		r.Post("/api/get-transmission", h.getTransmission)
		r.Get("/api/models", h.listModels)
		r.Get("/api/test-speed", h.testSpeed)
	})

	r.MethodNotAllowed(h.methodNotAllowed)
	r.NotFound(h.notFound)
	return r
}

// NewServer wraps handler in an http.Server with conservative timeouts.
func NewServer(addr string, handler http.Handler, requestTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      requestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
