package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Header names under which the upstream gateway forwards the validated
// principal. The gateway owns authentication; requests reaching this service
// without these headers are treated as anonymous and refused.
const (
	HeaderPrincipalID = "X-Principal-Id"
	HeaderRole        = "X-Principal-Role"
	HeaderTenantID    = "X-Tenant-Id"
)

// Middleware wires principal extraction and capability guards for HTTP
// handlers.
type Middleware struct {
	Resolver *Resolver
	Logger   *slog.Logger
}

// WithPrincipal parses the gateway headers into a Principal and stores it on
// the request context. An unresolvable role is the only fatal authorization
// condition: without it nothing can be composed for the caller.
func (m Middleware) WithPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := Role(strings.TrimSpace(strings.ToLower(r.Header.Get(HeaderRole))))
		if !role.Valid() {
			if m.Logger != nil {
				m.Logger.Warn("reject unresolvable role", slog.String("role", string(role)), slog.String("path", r.URL.Path))
			}
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		principal := Principal{Role: role}
		if raw := strings.TrimSpace(r.Header.Get(HeaderPrincipalID)); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				principal.ID = id
			}
		}
		if raw := strings.TrimSpace(r.Header.Get(HeaderTenantID)); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				principal.TenantID = &id
			}
		}
		ctx := ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require guards a route behind a single capability. Denials are 403s; they
// never abort sibling routes.
func (m Middleware) Require(module Module, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			if !m.Resolver.CanAccess(principal, module, action) {
				if m.Logger != nil {
					m.Logger.Warn("capability denied",
						slog.String("role", string(principal.Role)),
						slog.String("module", string(module)),
						slog.String("action", string(action)))
				}
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
