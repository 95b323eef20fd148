// Package dashboardhttp exposes the composed dashboard over HTTP.
package dashboardhttp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/meridian-health/meridian/internal/dashboard"
	"github.com/meridian-health/meridian/internal/platform/httpx"
	"github.com/meridian-health/meridian/internal/rbac"
)

// Handler serves the per-role dashboard view.
type Handler struct {
	Composer *dashboard.Composer
	Cache    *dashboard.ViewCache
	Logger   *slog.Logger
}

// NewHandler wires the dashboard handler. Cache may be nil.
func NewHandler(composer *dashboard.Composer, cache *dashboard.ViewCache, logger *slog.Logger) *Handler {
	return &Handler{Composer: composer, Cache: cache, Logger: logger}
}

// Dashboard handles GET /api/dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := rbac.PrincipalFromContext(ctx)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "principal not resolved")
		return
	}

	key, err := h.Cache.Key(ctx, principal)
	if err != nil {
		// A broken cache degrades to a fresh compose, never a failed request.
		h.warn("cache key", err)
		key = ""
	}
	if key != "" {
		if view, hit, err := h.Cache.Get(ctx, key); err != nil {
			h.warn("cache get", err)
		} else if hit {
			httpx.JSON(w, http.StatusOK, view)
			return
		}
	}

	view, err := h.Composer.Compose(ctx, principal)
	if err != nil {
		if errors.Is(err, dashboard.ErrUnknownRole) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "role could not be resolved")
			return
		}
		if h.Logger != nil {
			h.Logger.Error("compose dashboard", slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	if key != "" {
		if err := h.Cache.Put(ctx, key, view); err != nil {
			h.warn("cache put", err)
		}
	}
	httpx.JSON(w, http.StatusOK, view)
}

// Refresh handles POST /api/dashboard/refresh. Bumping the cache version
// invalidates every cached view at once; the next request per role recomposes.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.Cache.Bump(r.Context()); err != nil {
		h.warn("cache bump", err)
		httpx.Problem(w, http.StatusServiceUnavailable, "Cache Unavailable", "view cache could not be invalidated")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "refreshing"})
}

func (h *Handler) warn(msg string, err error) {
	if h.Logger != nil {
		h.Logger.Warn(msg, slog.Any("error", err))
	}
}
