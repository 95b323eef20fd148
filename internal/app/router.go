package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	dashboardhttp "github.com/meridian-health/meridian/internal/dashboard/http"
	"github.com/meridian-health/meridian/internal/observability"
	"github.com/meridian-health/meridian/internal/rbac"
	"github.com/meridian-health/meridian/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	RBACMiddleware     rbac.Middleware
	DashboardHandler   *dashboardhttp.Handler
	PermissionsHandler *rbac.PermissionsHandler
	JobsHandler        *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Meridian defaults.
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
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(params.RBACMiddleware.WithPrincipal)
		if params.DashboardHandler != nil {
			r.Get("/dashboard", params.DashboardHandler.Dashboard)
			r.With(params.RBACMiddleware.Require(rbac.ModuleSystemHealth, rbac.ActionManage)).
				Post("/dashboard/refresh", params.DashboardHandler.Refresh)
		}
		if params.PermissionsHandler != nil {
			r.Method(http.MethodGet, "/permissions", params.PermissionsHandler)
		}
	})

	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
