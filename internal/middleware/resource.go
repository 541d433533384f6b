package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/praxlog/logbook-backend/internal/access"
	"github.com/praxlog/logbook-backend/internal/auth"
	"github.com/praxlog/logbook-backend/internal/httperr"
)

const (
	templateIDKey   contextKey = "templateID"
	templateRoleKey contextKey = "templateRole"
)

// ResourceCheck is the typed per-route configuration for resource guards,
// resolved once at route registration. Either Roles or Permission qualifies
// the check; when both are empty, holding any grant on the template admits.
type ResourceCheck struct {
	// Roles admits when the effective logbook role is any of these.
	Roles []string
	// Permission admits when the effective logbook role carries it.
	Permission string
	// IDParam names the path parameter carrying the template id. Empty
	// falls back to the discovery policy (body, then path, then query).
	IDParam string
}

// RequireTemplateAccess admits principals whose effective logbook role on
// the discovered template satisfies the check. Platform override roles are
// admitted without a grant lookup.
func (g *Guard) RequireTemplateAccess(check ResourceCheck) func(http.Handler) http.Handler {
	requiredRoles := splitList(check.Roles)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			p, ok := auth.GetPrincipal(ctx)
			if !ok {
				denyUnauthenticated(w, r, "Authentication required")
				return
			}

			templateID, ok2 := resolveTemplateID(r, check)
			if !ok2 {
				httperr.MissingResourceID("No template identifier was supplied").
					WithHint("Provide template_id in the request body, path, or query string").
					Write(w)
				return
			}

			role, hasAccess, err := g.access.ResolveRole(ctx, p, templateID)
			if err != nil {
				GetLoggerFromContext(ctx).Error("resource role resolution failed",
					"template_id", templateID, "error", err)
				httperr.Forbidden("Unable to verify template access").Write(w)
				return
			}
			if !hasAccess {
				denyTemplateAccess(w, p, requiredRoles, check.Permission, "")
				return
			}

			switch {
			case check.Permission != "":
				allowed, err := g.access.HasPermission(ctx, p, templateID, check.Permission)
				if err != nil {
					GetLoggerFromContext(ctx).Error("resource permission check failed",
						"template_id", templateID, "error", err)
					httperr.Forbidden("Unable to verify template access").Write(w)
					return
				}
				if !allowed {
					denyTemplateAccess(w, p, nil, check.Permission, role)
					return
				}
			case len(requiredRoles) > 0:
				matched := false
				for _, want := range requiredRoles {
					if role == want {
						matched = true
						break
					}
				}
				if !matched {
					denyTemplateAccess(w, p, requiredRoles, "", role)
					return
				}
			}

			ctx = context.WithValue(ctx, templateIDKey, templateID)
			ctx = context.WithValue(ctx, templateRoleKey, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireTemplateOwner is the stricter variant for destructive/structural
// template operations: only the owner grant qualifies, with the widened
// global override list as the escape hatch.
func (g *Guard) RequireTemplateOwner(check ResourceCheck) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			p, ok := auth.GetPrincipal(ctx)
			if !ok {
				denyUnauthenticated(w, r, "Authentication required")
				return
			}

			templateID, ok2 := resolveTemplateID(r, check)
			if !ok2 {
				httperr.MissingResourceID("No template identifier was supplied").
					WithHint("Provide template_id in the request body, path, or query string").
					Write(w)
				return
			}

			isOwner, err := g.access.IsOwner(ctx, p, templateID)
			if err != nil {
				GetLoggerFromContext(ctx).Error("ownership check failed",
					"template_id", templateID, "error", err)
				httperr.Forbidden("Unable to verify template ownership").Write(w)
				return
			}
			if !isOwner {
				httperr.Forbidden("Only the template owner may perform this operation").
					WithRequiredAccess("owner").
					WithCurrent(map[string]any{"roles": p.Access.Roles}).
					Write(w)
				return
			}

			ctx = context.WithValue(ctx, templateIDKey, templateID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveTemplateID(r *http.Request, check ResourceCheck) (uuid.UUID, bool) {
	if check.IDParam != "" {
		if raw := chi.URLParam(r, check.IDParam); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				return id, true
			}
		}
		return uuid.Nil, false
	}

	id, err := access.DiscoverTemplateID(r)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func denyTemplateAccess(w http.ResponseWriter, p *auth.Principal, requiredRoles []string, requiredPermission, currentRole string) {
	b := httperr.Forbidden("You do not have access to this template")
	required := map[string]any{}
	if len(requiredRoles) > 0 {
		required["logbook_roles"] = requiredRoles
	}
	if requiredPermission != "" {
		b = b.WithRequiredAccess(requiredPermission)
	}
	if len(required) > 0 {
		b = b.WithRequired(required)
	}
	current := map[string]any{"roles": p.Access.Roles}
	if currentRole != "" {
		current["logbook_role"] = currentRole
	}
	b.WithCurrent(current).
		WithHint("Ask the template owner to grant you access").
		Write(w)
}

// GetTemplateID returns the template id resolved by a resource guard.
func GetTemplateID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(templateIDKey).(uuid.UUID)
	return id, ok
}

// GetTemplateRole returns the logbook role resolved by a resource guard.
func GetTemplateRole(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(templateRoleKey).(string)
	return role, ok
}
