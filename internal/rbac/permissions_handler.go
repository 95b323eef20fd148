package rbac

import (
	"net/http"

	"github.com/meridian-health/meridian/internal/platform/httpx"
)

// PermissionsHandler exposes the caller's resolved capabilities so clients can
// hide controls the role cannot use.
type PermissionsHandler struct {
	Resolver *Resolver
}

type permissionsResponse struct {
	Role    string              `json:"role"`
	Modules map[string][]string `json:"modules"`
}

// ServeHTTP renders the modules and actions visible to the caller's role.
func (h *PermissionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "principal not resolved")
		return
	}
	resp := permissionsResponse{
		Role:    string(principal.Role),
		Modules: make(map[string][]string),
	}
	for _, module := range h.Resolver.VisibleModules(principal) {
		actions := h.Resolver.ModulePermissions(principal, module)
		names := make([]string, 0, len(actions))
		for _, action := range actions {
			names = append(names, string(action))
		}
		resp.Modules[string(module)] = names
	}
	httpx.JSON(w, http.StatusOK, resp)
}
