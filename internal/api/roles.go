package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/praxlog/logbook-backend/internal/audit"
	"github.com/praxlog/logbook-backend/internal/auth"
	"github.com/praxlog/logbook-backend/internal/httperr"
	"github.com/praxlog/logbook-backend/internal/middleware"
	"github.com/praxlog/logbook-backend/internal/store"
)

type roleResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsSystem    bool      `json:"is_system"`
}

func toRoleResponse(role store.Role) roleResponse {
	return roleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		IsSystem:    role.IsSystem,
	}
}

func (s *Server) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := s.store.ListRoles(r.Context())
	if err != nil {
		middleware.GetLoggerFromContext(r.Context()).Error("list roles failed", "error", err)
		httperr.Internal("Unable to list roles").Write(w)
		return
	}

	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, toRoleResponse(role))
	}
	writeData(w, http.StatusOK, out)
}

type createRoleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := decodeJSON(r, &req); err != nil || req.Name == "" {
		httperr.Validation("role name is required").Write(w)
		return
	}

	role, err := s.store.CreateRole(r.Context(), req.Name, req.Description)
	if errors.Is(err, store.ErrConflict) {
		httperr.Conflict("A role with that name already exists").Write(w)
		return
	}
	if err != nil {
		middleware.GetLoggerFromContext(r.Context()).Error("create role failed", "error", err)
		httperr.Internal("Unable to create role").Write(w)
		return
	}

	writeData(w, http.StatusCreated, toRoleResponse(role))
}

// DeleteRole removes a custom role. Memberships and the permission set
// cascade in the database, so holders must have their cached resolutions
// invalidated the same way a permission sync does.
func (s *Server) DeleteRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	roleID, err := uuid.Parse(chi.URLParam(r, "roleID"))
	if err != nil {
		httperr.Validation("invalid role id").Write(w)
		return
	}

	role, err := s.store.GetRoleByID(ctx, roleID)
	if errors.Is(err, store.ErrNotFound) {
		httperr.NotFound("role").Write(w)
		return
	} else if err != nil {
		middleware.GetLoggerFromContext(ctx).Error("role lookup failed", "error", err)
		httperr.Internal("Unable to delete role").Write(w)
		return
	}

	err = s.store.DeleteRole(ctx, roleID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		httperr.NotFound("role").Write(w)
		return
	case errors.Is(err, store.ErrSystemRole):
		httperr.Forbidden("System roles cannot be deleted").Write(w)
		return
	case err != nil:
		middleware.GetLoggerFromContext(ctx).Error("delete role failed", "error", err)
		httperr.Internal("Unable to delete role").Write(w)
		return
	}

	if err := s.resolver.OnEvent(ctx, auth.Event{Kind: auth.PermissionSetChanged, Role: role.Name}); err != nil {
		middleware.GetLoggerFromContext(ctx).Warn("cache invalidation failed", "error", err)
	}

	writeData(w, http.StatusOK, map[string]string{"message": "role deleted"})
}

type syncPermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

// SyncRolePermissions atomically replaces a role's permission set and fires
// the invalidation event so cached resolutions refresh.
func (s *Server) SyncRolePermissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	roleID, err := uuid.Parse(chi.URLParam(r, "roleID"))
	if err != nil {
		httperr.Validation("invalid role id").Write(w)
		return
	}

	var req syncPermissionsRequest
	if err := decodeJSON(r, &req); err != nil {
		httperr.Validation("permissions list is required").Write(w)
		return
	}

	role, err := s.store.GetRoleByID(ctx, roleID)
	if errors.Is(err, store.ErrNotFound) {
		httperr.NotFound("role").Write(w)
		return
	} else if err != nil {
		middleware.GetLoggerFromContext(ctx).Error("role lookup failed", "error", err)
		httperr.Internal("Unable to sync permissions").Write(w)
		return
	}

	if err := s.store.SetRolePermissions(ctx, roleID, req.Permissions); err != nil {
		middleware.GetLoggerFromContext(ctx).Error("sync permissions failed", "error", err)
		httperr.Internal("Unable to sync permissions").Write(w)
		return
	}

	if err := s.resolver.OnEvent(ctx, auth.Event{Kind: auth.PermissionSetChanged, Role: role.Name}); err != nil {
		middleware.GetLoggerFromContext(ctx).Warn("cache invalidation failed", "error", err)
	}
	s.auditAction(ctx, r, audit.ActionPermissionsSynced,
		fmt.Sprintf("replaced permission set of role %q", role.Name))

	writeData(w, http.StatusOK, map[string]string{"message": "permissions synced"})
}

type assignRoleRequest struct {
	Role string `json:"role"`
}

func (s *Server) AssignUserRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httperr.Validation("invalid user id").Write(w)
		return
	}

	var req assignRoleRequest
	if err := decodeJSON(r, &req); err != nil || req.Role == "" {
		httperr.Validation("role name is required").Write(w)
		return
	}

	if _, err := s.store.GetRoleByName(ctx, req.Role); errors.Is(err, store.ErrNotFound) {
		httperr.NotFound("role").Write(w)
		return
	} else if err != nil {
		middleware.GetLoggerFromContext(ctx).Error("role lookup failed", "error", err)
		httperr.Internal("Unable to assign role").Write(w)
		return
	}

	if err := s.store.AssignRole(ctx, userID, req.Role); err != nil {
		middleware.GetLoggerFromContext(ctx).Error("assign role failed", "error", err)
		httperr.Internal("Unable to assign role").Write(w)
		return
	}

	if err := s.resolver.OnEvent(ctx, auth.Event{Kind: auth.RoleAssigned, UserID: userID}); err != nil {
		middleware.GetLoggerFromContext(ctx).Warn("cache invalidation failed", "error", err)
	}
	s.auditAction(ctx, r, audit.ActionRoleAssigned,
		fmt.Sprintf("assigned role %q to user %s", req.Role, userID))

	writeData(w, http.StatusOK, map[string]string{"message": "role assigned"})
}

func (s *Server) RemoveUserRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httperr.Validation("invalid user id").Write(w)
		return
	}
	roleName := chi.URLParam(r, "roleName")

	if err := s.store.RemoveRole(ctx, userID, roleName); err != nil {
		middleware.GetLoggerFromContext(ctx).Error("remove role failed", "error", err)
		httperr.Internal("Unable to remove role").Write(w)
		return
	}

	if err := s.resolver.OnEvent(ctx, auth.Event{Kind: auth.RoleRemoved, UserID: userID}); err != nil {
		middleware.GetLoggerFromContext(ctx).Warn("cache invalidation failed", "error", err)
	}
	s.auditAction(ctx, r, audit.ActionRoleRemoved,
		fmt.Sprintf("removed role %q from user %s", roleName, userID))

	writeData(w, http.StatusOK, map[string]string{"message": "role removed"})
}
