package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/praxlog/logbook-backend/internal/audit"
	"github.com/praxlog/logbook-backend/internal/auth"
	"github.com/praxlog/logbook-backend/internal/httperr"
	"github.com/praxlog/logbook-backend/internal/middleware"
	"github.com/praxlog/logbook-backend/internal/rbac"
	"github.com/praxlog/logbook-backend/internal/store"
)

type templateResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	InstitutionID *string   `json:"institution_id,omitempty"`
	OwnerID       string    `json:"owner_id"`
	CreatedAt     time.Time `json:"created_at"`
}

func toTemplateResponse(t store.Template) templateResponse {
	resp := templateResponse{
		ID:        t.ID.String(),
		Name:      t.Name,
		OwnerID:   t.OwnerID.String(),
		CreatedAt: t.CreatedAt,
	}
	if t.InstitutionID != nil {
		id := t.InstitutionID.String()
		resp.InstitutionID = &id
	}
	return resp
}

type createTemplateRequest struct {
	Name          string `json:"name"`
	InstitutionID string `json:"institution_id"`
}

// CreateTemplate creates the template and, in the same transaction, the
// owner grant for the creator.
func (s *Server) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := auth.GetPrincipal(ctx)
	if !ok {
		httperr.Unauthorized("Authentication required").Write(w)
		return
	}

	var req createTemplateRequest
	if err := decodeJSON(r, &req); err != nil || req.Name == "" {
		httperr.Validation("template name is required").Write(w)
		return
	}

	var institutionID *uuid.UUID
	if req.InstitutionID != "" {
		id, err := uuid.Parse(req.InstitutionID)
		if err != nil {
			httperr.Validation("invalid institution id").Write(w)
			return
		}
		institutionID = &id
	}

	tpl, err := s.store.CreateTemplate(ctx, req.Name, institutionID, p.ID)
	if err != nil {
		middleware.GetLoggerFromContext(ctx).Error("create template failed", "error", err)
		httperr.Internal("Unable to create template").Write(w)
		return
	}

	writeData(w, http.StatusCreated, toTemplateResponse(tpl))
}

func (s *Server) GetTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID, _ := middleware.GetTemplateID(ctx)

	tpl, err := s.store.GetTemplate(ctx, templateID)
	if errors.Is(err, store.ErrNotFound) {
		httperr.NotFound("template").Write(w)
		return
	}
	if err != nil {
		middleware.GetLoggerFromContext(ctx).Error("get template failed", "error", err)
		httperr.Internal("Unable to load template").Write(w)
		return
	}

	writeData(w, http.StatusOK, toTemplateResponse(tpl))
}

type renameTemplateRequest struct {
	Name string `json:"name"`
}

func (s *Server) RenameTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID, _ := middleware.GetTemplateID(ctx)

	var req renameTemplateRequest
	if err := decodeJSON(r, &req); err != nil || req.Name == "" {
		httperr.Validation("template name is required").Write(w)
		return
	}

	if err := s.store.RenameTemplate(ctx, templateID, req.Name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httperr.NotFound("template").Write(w)
			return
		}
		middleware.GetLoggerFromContext(ctx).Error("rename template failed", "error", err)
		httperr.Internal("Unable to rename template").Write(w)
		return
	}

	writeData(w, http.StatusOK, map[string]string{"message": "template renamed"})
}

func (s *Server) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID, _ := middleware.GetTemplateID(ctx)

	if err := s.store.DeleteTemplate(ctx, templateID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httperr.NotFound("template").Write(w)
			return
		}
		middleware.GetLoggerFromContext(ctx).Error("delete template failed", "error", err)
		httperr.Internal("Unable to delete template").Write(w)
		return
	}

	s.auditAction(ctx, r, audit.ActionTemplateDeleted,
		fmt.Sprintf("deleted template %s and all of its access grants", templateID))

	writeData(w, http.StatusOK, map[string]string{"message": "template deleted"})
}

type grantResponse struct {
	UserID     string    `json:"user_id"`
	TemplateID string    `json:"template_id"`
	Role       string    `json:"role"`
	GrantedBy  *string   `json:"granted_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toGrantResponse(g store.AccessGrant) grantResponse {
	resp := grantResponse{
		UserID:     g.UserID.String(),
		TemplateID: g.TemplateID.String(),
		Role:       g.Role,
		CreatedAt:  g.CreatedAt,
	}
	if g.GrantedBy != nil {
		id := g.GrantedBy.String()
		resp.GrantedBy = &id
	}
	return resp
}

func (s *Server) ListGrants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID, _ := middleware.GetTemplateID(ctx)

	grants, err := s.store.ListGrants(ctx, templateID)
	if err != nil {
		middleware.GetLoggerFromContext(ctx).Error("list grants failed", "error", err)
		httperr.Internal("Unable to list access grants").Write(w)
		return
	}

	out := make([]grantResponse, 0, len(grants))
	for _, g := range grants {
		out = append(out, toGrantResponse(g))
	}
	writeData(w, http.StatusOK, out)
}

type grantAccessRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// GrantAccess upserts the grant: granting a role to a user who already holds
// one replaces the old role rather than erroring.
func (s *Server) GrantAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID, _ := middleware.GetTemplateID(ctx)

	var req grantAccessRequest
	if err := decodeJSON(r, &req); err != nil {
		httperr.Validation("user_id and role are required").Write(w)
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		httperr.Validation("invalid user id").Write(w)
		return
	}
	if !rbac.IsLogbookRole(req.Role) {
		httperr.Validation(fmt.Sprintf("unknown logbook role %q", req.Role)).Write(w)
		return
	}

	var grantedBy *uuid.UUID
	if p, ok := auth.GetPrincipal(ctx); ok {
		id := p.ID
		grantedBy = &id
	}

	grant, err := s.store.UpsertGrant(ctx, userID, templateID, req.Role, grantedBy)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httperr.NotFound("user or template").Write(w)
			return
		}
		middleware.GetLoggerFromContext(ctx).Error("grant access failed", "error", err)
		httperr.Internal("Unable to grant access").Write(w)
		return
	}

	s.auditAction(ctx, r, audit.ActionAccessGranted,
		fmt.Sprintf("granted %s on template %s to user %s", req.Role, templateID, userID))

	writeData(w, http.StatusOK, toGrantResponse(grant))
}

func (s *Server) RevokeAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID, _ := middleware.GetTemplateID(ctx)

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httperr.Validation("invalid user id").Write(w)
		return
	}

	if err := s.store.DeleteGrant(ctx, userID, templateID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httperr.NotFound("access grant").Write(w)
			return
		}
		middleware.GetLoggerFromContext(ctx).Error("revoke access failed", "error", err)
		httperr.Internal("Unable to revoke access").Write(w)
		return
	}

	s.auditAction(ctx, r, audit.ActionAccessRevoked,
		fmt.Sprintf("revoked access to template %s from user %s", templateID, userID))

	writeData(w, http.StatusOK, map[string]string{"message": "access revoked"})
}
