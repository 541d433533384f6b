package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/praxlog/logbook-backend/internal/audit"
	"github.com/praxlog/logbook-backend/internal/auth"
	"github.com/praxlog/logbook-backend/internal/httperr"
	"github.com/praxlog/logbook-backend/internal/middleware"
	"github.com/praxlog/logbook-backend/internal/store"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil || req.Email == "" || req.Password == "" {
		httperr.Validation("email and password are required").Write(w)
		return
	}

	ctx := r.Context()
	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, store.ErrNotFound) {
		httperr.Unauthorized("Invalid credentials").Write(w)
		return
	}
	if err != nil {
		middleware.GetLoggerFromContext(ctx).Error("login lookup failed", "error", err)
		httperr.Internal("Unable to sign in").Write(w)
		return
	}

	if user.Status != store.UserStatusActive || !auth.CheckPassword(user.PasswordHash, req.Password) {
		httperr.Unauthorized("Invalid credentials").Write(w)
		return
	}

	token, err := s.jwt.GenerateToken(ctx, user.ID)
	if err != nil {
		middleware.GetLoggerFromContext(ctx).Error("token generation failed", "error", err)
		httperr.Internal("Unable to sign in").Write(w)
		return
	}

	userID := user.ID
	s.auditor.Record(ctx, audit.Event{
		UserID:      &userID,
		Action:      audit.ActionUserLogin,
		Description: "user signed in",
		IPAddress:   middleware.GetClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	writeData(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(s.cfg.JWT.Expiry),
	})
}

func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := auth.GetPrincipal(ctx)
	if !ok {
		httperr.Unauthorized("Authentication required").Write(w)
		return
	}

	if err := s.tokens.Revoke(ctx, p.Token, p.TokenExpiresAt); err != nil {
		middleware.GetLoggerFromContext(ctx).Error("logout revocation failed", "error", err)
		httperr.Internal("Unable to sign out").Write(w)
		return
	}

	writeData(w, http.StatusOK, map[string]string{"message": "signed out"})
}

type meResponse struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	IsAdmin     bool     `json:"is_admin"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.GetPrincipal(r.Context())
	if !ok {
		httperr.Unauthorized("Authentication required").Write(w)
		return
	}

	writeData(w, http.StatusOK, meResponse{
		ID:          p.ID.String(),
		Email:       p.Email,
		IsAdmin:     p.IsAdmin,
		Roles:       p.Access.Roles,
		Permissions: p.Access.Permissions,
	})
}
