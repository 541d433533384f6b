package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/praxlog/logbook-backend/internal/auth"
	"github.com/praxlog/logbook-backend/internal/httperr"
	"github.com/praxlog/logbook-backend/internal/middleware"
	"github.com/praxlog/logbook-backend/internal/store"
)

type entryResponse struct {
	ID         string    `json:"id"`
	TemplateID string    `json:"template_id"`
	AuthorID   string    `json:"author_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toEntryResponse(e store.Entry) entryResponse {
	return entryResponse{
		ID:         e.ID.String(),
		TemplateID: e.TemplateID.String(),
		AuthorID:   e.AuthorID.String(),
		Content:    e.Content,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

type createEntryRequest struct {
	Content string `json:"content"`
}

// CreateEntry trusts the template id resolved by the access filter; the body
// carries it only for discovery, never for authorization.
func (s *Server) CreateEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := auth.GetPrincipal(ctx)
	if !ok {
		httperr.Unauthorized("Authentication required").Write(w)
		return
	}
	templateID, _ := middleware.GetTemplateID(ctx)

	var req createEntryRequest
	if err := decodeJSON(r, &req); err != nil || req.Content == "" {
		httperr.Validation("entry content is required").Write(w)
		return
	}

	entry, err := s.store.CreateEntry(ctx, templateID, p.ID, req.Content)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httperr.NotFound("template").Write(w)
			return
		}
		middleware.GetLoggerFromContext(ctx).Error("create entry failed", "error", err)
		httperr.Internal("Unable to create entry").Write(w)
		return
	}

	writeData(w, http.StatusCreated, toEntryResponse(entry))
}

func (s *Server) ListEntries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID, _ := middleware.GetTemplateID(ctx)
	limit, offset := parsePagination(r)

	entries, err := s.store.ListEntries(ctx, templateID, limit, offset)
	if err != nil {
		middleware.GetLoggerFromContext(ctx).Error("list entries failed", "error", err)
		httperr.Internal("Unable to list entries").Write(w)
		return
	}

	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	writeData(w, http.StatusOK, out)
}

type updateEntryRequest struct {
	Content string `json:"content"`
}

func (s *Server) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID, _ := middleware.GetTemplateID(ctx)

	entryID, err := uuid.Parse(chi.URLParam(r, "entryID"))
	if err != nil {
		httperr.Validation("invalid entry id").Write(w)
		return
	}

	var req updateEntryRequest
	if err := decodeJSON(r, &req); err != nil || req.Content == "" {
		httperr.Validation("entry content is required").Write(w)
		return
	}

	entry, err := s.store.GetEntry(ctx, entryID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && entry.TemplateID != templateID) {
		httperr.NotFound("entry").Write(w)
		return
	}
	if err != nil {
		middleware.GetLoggerFromContext(ctx).Error("entry lookup failed", "error", err)
		httperr.Internal("Unable to update entry").Write(w)
		return
	}

	if err := s.store.UpdateEntry(ctx, entryID, req.Content); err != nil {
		middleware.GetLoggerFromContext(ctx).Error("update entry failed", "error", err)
		httperr.Internal("Unable to update entry").Write(w)
		return
	}

	writeData(w, http.StatusOK, map[string]string{"message": "entry updated"})
}

func (s *Server) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID, _ := middleware.GetTemplateID(ctx)

	entryID, err := uuid.Parse(chi.URLParam(r, "entryID"))
	if err != nil {
		httperr.Validation("invalid entry id").Write(w)
		return
	}

	entry, err := s.store.GetEntry(ctx, entryID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && entry.TemplateID != templateID) {
		httperr.NotFound("entry").Write(w)
		return
	}
	if err != nil {
		middleware.GetLoggerFromContext(ctx).Error("entry lookup failed", "error", err)
		httperr.Internal("Unable to delete entry").Write(w)
		return
	}

	if err := s.store.DeleteEntry(ctx, entryID); err != nil {
		middleware.GetLoggerFromContext(ctx).Error("delete entry failed", "error", err)
		httperr.Internal("Unable to delete entry").Write(w)
		return
	}

	writeData(w, http.StatusOK, map[string]string{"message": "entry deleted"})
}
