package middleware

import (
	"net/http"

	"github.com/praxlog/logbook-backend/internal/auth"
	"github.com/praxlog/logbook-backend/internal/httperr"
)

// RequireRoles admits principals holding at least one of the named global
// roles (OR semantics). Comma/pipe shorthand in a single argument is
// expanded once at registration. The 403 body echoes the requester's own
// roles and permissions back: a deliberate debuggability trade-off.
func (g *Guard) RequireRoles(roles ...string) func(http.Handler) http.Handler {
	required := splitList(roles)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.GetPrincipal(r.Context())
			if !ok {
				denyUnauthenticated(w, r, "Authentication required")
				return
			}

			if !p.Access.HasAnyRole(required) {
				httperr.Forbidden("You do not have the required role").
					WithRequired(map[string]any{"roles": required}).
					WithCurrent(map[string]any{
						"roles":       p.Access.Roles,
						"permissions": p.Access.Permissions,
					}).
					WithHint("Ask an administrator to assign one of the required roles").
					Write(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermissions admits principals holding at least one of the named
// global permissions (OR semantics; comma shorthand supported). AND
// semantics is expressed by stacking two RequirePermissions instances on the
// same route.
func (g *Guard) RequirePermissions(permissions ...string) func(http.Handler) http.Handler {
	required := splitList(permissions)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.GetPrincipal(r.Context())
			if !ok {
				denyUnauthenticated(w, r, "Authentication required")
				return
			}

			if !p.Access.HasAnyPermission(required) {
				httperr.Forbidden("You do not have the required permission").
					WithRequired(map[string]any{"permissions": required}).
					WithCurrent(map[string]any{
						"roles":       p.Access.Roles,
						"permissions": p.Access.Permissions,
					}).
					WithHint("Ask an administrator to grant one of the required permissions").
					Write(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
