// Package httptransport assembles the HTTP surface: the authenticated event
// endpoint plus the operational endpoints (health, metrics).
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jitHandler "jitbridge/internal/jit/handler"
	"jitbridge/internal/platform/middleware"
	"jitbridge/pkg/platform/httputil"
)

// RouterConfig carries the router's collaborators. Health checkers are
// optional; a nil map reports healthy with no dependencies.
type RouterConfig struct {
	Events       *jitHandler.Handler
	Logger       *slog.Logger
	JWTValidator middleware.TokenValidator
	// HealthChecks maps a dependency name to its probe.
	HealthChecks map[string]func() error
}

// NewRouter wires the middleware chain and mounts all endpoints. The event
// API requires a bearer token; health and metrics do not.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/api/jit/v1", func(api chi.Router) {
		api.Use(middleware.ContentTypeJSON)
		if cfg.JWTValidator != nil {
			api.Use(middleware.RequireAuth(cfg.JWTValidator, cfg.Logger))
		}
		cfg.Events.Register(api)
	})

	r.Get("/healthz", handleHealth(cfg.HealthChecks))
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func handleHealth(checks map[string]func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		deps := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(); err != nil {
				deps[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}

		body := map[string]any{"status": "ok"}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		if len(deps) > 0 {
			body["dependencies"] = deps
		}
		httputil.WriteJSON(w, status, body)
	}
}
