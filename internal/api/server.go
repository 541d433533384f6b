package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/praxlog/logbook-backend/internal/audit"
	"github.com/praxlog/logbook-backend/internal/auth"
	"github.com/praxlog/logbook-backend/internal/config"
	"github.com/praxlog/logbook-backend/internal/middleware"
	"github.com/praxlog/logbook-backend/internal/rbac"
)

type Server struct {
	store    DataStore
	jwt      TokenIssuer
	tokens   TokenRevoker
	resolver AccessInvalidator
	guard    *middleware.Guard
	auditor  audit.Recorder
	cfg      *config.Config
}

func NewServer(
	store DataStore,
	jwt TokenIssuer,
	tokens TokenRevoker,
	resolver AccessInvalidator,
	guard *middleware.Guard,
	auditor audit.Recorder,
	cfg *config.Config,
) *Server {
	return &Server{
		store:    store,
		jwt:      jwt,
		tokens:   tokens,
		resolver: resolver,
		guard:    guard,
		auditor:  auditor,
		cfg:      cfg,
	}
}

// auditAction records an administrative action attributed to the current
// principal. Recording never affects the response.
func (s *Server) auditAction(ctx context.Context, r *http.Request, action, description string) {
	ev := audit.Event{
		Action:      action,
		Description: description,
		IPAddress:   middleware.GetClientIP(r),
		UserAgent:   r.UserAgent(),
	}
	if p, ok := auth.GetPrincipal(ctx); ok {
		id := p.ID
		ev.UserID = &id
	}
	s.auditor.Record(ctx, ev)
}

// Routes declares every route with its filter chain in explicit order.
// Handlers behind these chains never re-derive authorization.
func (s *Server) Routes() http.Handler {
	g := s.guard
	rl := s.cfg.RateLimit

	r := chi.NewRouter()
	r.Use(middleware.RequestContext)
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.NewCORSHandler(&s.cfg.CORS))

	// Login is rate-limited before any identity exists; the limiter keys on
	// client IP for anonymous requests.
	r.With(g.RateLimit(rl.MaxAttempts, rl.Window)).
		Post("/api/auth/login", s.Login)

	r.Group(func(r chi.Router) {
		r.Use(g.Authenticate)
		r.Use(g.TokenFreshness)

		r.Post("/api/auth/logout", s.Logout)
		r.Get("/api/auth/me", s.Me)

		// Global role/permission administration.
		r.Route("/api/roles", func(r chi.Router) {
			r.With(g.RequirePermissions(rbac.PermManageRoles)).Get("/", s.ListRoles)
			r.With(g.RequirePermissions(rbac.PermManageRoles)).Post("/", s.CreateRole)
			r.With(g.RequirePermissions(rbac.PermManageRoles)).Delete("/{roleID}", s.DeleteRole)
			r.With(g.RequirePermissions(rbac.PermManageRoles)).Put("/{roleID}/permissions", s.SyncRolePermissions)
		})
		r.With(g.RequirePermissions(rbac.PermAssignRoles)).
			Post("/api/users/{userID}/roles", s.AssignUserRole)
		r.With(g.RequirePermissions(rbac.PermAssignRoles)).
			Delete("/api/users/{userID}/roles/{roleName}", s.RemoveUserRole)

		// Templates and per-template access.
		r.With(g.RequirePermissions(rbac.PermCreateTemplates)).
			Post("/api/templates", s.CreateTemplate)
		r.With(g.RequireTemplateAccess(middleware.ResourceCheck{
			Permission: rbac.PermViewLogbook, IDParam: "template_id",
		})).Get("/api/templates/{template_id}", s.GetTemplate)
		r.With(g.RequireTemplateAccess(middleware.ResourceCheck{
			Permission: rbac.PermManageTemplate, IDParam: "template_id",
		})).Put("/api/templates/{template_id}", s.RenameTemplate)
		r.With(g.RequireTemplateOwner(middleware.ResourceCheck{IDParam: "template_id"})).
			Delete("/api/templates/{template_id}", s.DeleteTemplate)

		r.With(g.RequireTemplateAccess(middleware.ResourceCheck{
			Permission: rbac.PermManageAccess, IDParam: "template_id",
		})).Get("/api/templates/{template_id}/access", s.ListGrants)
		r.With(g.RequireTemplateOwner(middleware.ResourceCheck{IDParam: "template_id"})).
			Post("/api/templates/{template_id}/access", s.GrantAccess)
		r.With(g.RequireTemplateOwner(middleware.ResourceCheck{IDParam: "template_id"})).
			Delete("/api/templates/{template_id}/access/{userID}", s.RevokeAccess)

		// Entries. Creation discovers the template id from the body.
		r.With(g.RequireTemplateAccess(middleware.ResourceCheck{
			Permission: rbac.PermCreateEntry,
		})).Post("/api/entries", s.CreateEntry)
		r.With(g.RequireTemplateAccess(middleware.ResourceCheck{
			Permission: rbac.PermViewLogbook, IDParam: "template_id",
		})).Get("/api/templates/{template_id}/entries", s.ListEntries)
		r.With(g.RequireTemplateAccess(middleware.ResourceCheck{
			Permission: rbac.PermEditEntry, IDParam: "template_id",
		})).Put("/api/templates/{template_id}/entries/{entryID}", s.UpdateEntry)
		r.With(g.RequireTemplateAccess(middleware.ResourceCheck{
			Permission: rbac.PermDeleteEntry, IDParam: "template_id",
		})).Delete("/api/templates/{template_id}/entries/{entryID}", s.DeleteEntry)

		// Legacy admin console: coarse flag check, audited denials.
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(g.AdminArea)
			r.Get("/users", s.AdminListUsers)
			r.Get("/audit", s.AdminListAudit)
		})
	})

	return r
}
