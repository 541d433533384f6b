package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/praxlog/logbook-backend/internal/httperr"
	"github.com/praxlog/logbook-backend/internal/middleware"
	"github.com/praxlog/logbook-backend/internal/store"
)

type adminUserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, offset := parsePagination(r)

	users, err := s.store.ListUsers(ctx, limit, offset)
	if err != nil {
		middleware.GetLoggerFromContext(ctx).Error("list users failed", "error", err)
		httperr.Internal("Unable to list users").Write(w)
		return
	}

	out := make([]adminUserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, adminUserResponse{
			ID:        u.ID.String(),
			Email:     u.Email,
			Status:    u.Status,
			IsAdmin:   u.IsAdmin,
			CreatedAt: u.CreatedAt,
		})
	}
	writeData(w, http.StatusOK, out)
}

type auditRecordResponse struct {
	ID          string    `json:"id"`
	UserID      *string   `json:"user_id,omitempty"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	IPAddress   string    `json:"ip_address"`
	UserAgent   string    `json:"user_agent"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *Server) AdminListAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, offset := parsePagination(r)

	filter := store.AuditFilter{
		Action: r.URL.Query().Get("action"),
		Limit:  limit,
		Offset: offset,
	}
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httperr.Validation("invalid user id filter").Write(w)
			return
		}
		filter.UserID = &id
	}
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httperr.Validation("since must be RFC 3339").Write(w)
			return
		}
		filter.Since = &t
	}
	if raw := r.URL.Query().Get("until"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httperr.Validation("until must be RFC 3339").Write(w)
			return
		}
		filter.Until = &t
	}

	records, err := s.store.ListAudit(ctx, filter)
	if err != nil {
		middleware.GetLoggerFromContext(ctx).Error("list audit failed", "error", err)
		httperr.Internal("Unable to list audit records").Write(w)
		return
	}

	out := make([]auditRecordResponse, 0, len(records))
	for _, rec := range records {
		item := auditRecordResponse{
			ID:          rec.ID.String(),
			Action:      rec.Action,
			Description: rec.Description,
			IPAddress:   rec.IPAddress,
			UserAgent:   rec.UserAgent,
			CreatedAt:   rec.CreatedAt,
		}
		if rec.UserID != nil {
			id := rec.UserID.String()
			item.UserID = &id
		}
		out = append(out, item)
	}
	writeData(w, http.StatusOK, out)
}
