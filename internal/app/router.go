package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	compliancehttp "github.com/odyssey-erp/revtax/internal/compliance/http"
	"github.com/odyssey-erp/revtax/internal/observability"
	"github.com/odyssey-erp/revtax/internal/platform/httpx"
	"github.com/odyssey-erp/revtax/internal/shared"
	"github.com/odyssey-erp/revtax/jobs"
)

// ReadinessCheck reports whether a backing service is reachable.
type ReadinessCheck func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	Tokens            *shared.TokenManager
	ComplianceHandler *compliancehttp.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
	Readiness         map[string]ReadinessCheck
}

// NewRouter constructs the chi.Router with the service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		out := make(map[string]string, len(params.Readiness))
		for name, check := range params.Readiness {
			if err := check(r.Context()); err != nil {
				params.Logger.Warn("readiness", slog.String("dependency", name), slog.Any("error", err))
				out[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			out[name] = "ok"
		}
		httpx.JSON(w, status, out)
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		params.JobHandler.MountRoutes(r)
	}

	r.Group(func(authed chi.Router) {
		authed.Use(RequireOwner(params.Tokens, params.Logger))
		if params.ComplianceHandler != nil {
			params.ComplianceHandler.MountRoutes(authed)
		}
	})
	return r
}
