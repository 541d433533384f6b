package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/praxlog/logbook-backend/internal/auth"
	"github.com/praxlog/logbook-backend/internal/httperr"
	"github.com/praxlog/logbook-backend/internal/store"
)

const bearerPrefix = "Bearer "

// Authenticate requires a valid bearer credential and attaches the resolved
// principal to the request context. Expiry is not checked here; that is the
// freshness filter's job.
func (g *Guard) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, bearerPrefix) {
			denyUnauthenticated(w, r, "Authentication required")
			return
		}
		token := strings.TrimPrefix(authHeader, bearerPrefix)

		claims, err := g.jwt.ParseToken(ctx, token)
		if err != nil {
			denyUnauthenticated(w, r, "Invalid credential")
			return
		}

		revoked, err := g.tokens.IsRevoked(ctx, token)
		if err != nil {
			// fail closed on revocation-store faults
			GetLoggerFromContext(ctx).Error("revocation lookup failed", "error", err)
			httperr.Forbidden("Unable to verify credential").Write(w)
			return
		}
		if revoked {
			denyUnauthenticated(w, r, "Credential has been revoked")
			return
		}

		user, err := g.users.GetUserByID(ctx, claims.UserID)
		if errors.Is(err, store.ErrNotFound) {
			denyUnauthenticated(w, r, "Authentication required")
			return
		}
		if err != nil {
			GetLoggerFromContext(ctx).Error("principal lookup failed", "error", err)
			httperr.Forbidden("Unable to verify credential").Write(w)
			return
		}
		if user.Status != store.UserStatusActive {
			denyUnauthenticated(w, r, "Account is inactive")
			return
		}

		access, err := g.resolver.ResolveGlobalAccess(ctx, user.ID)
		if err != nil {
			GetLoggerFromContext(ctx).Error("access resolution failed", "error", err)
			httperr.Forbidden("Unable to resolve access").Write(w)
			return
		}

		principal := &auth.Principal{
			ID:             user.ID,
			Email:          user.Email,
			IsAdmin:        user.IsAdmin,
			Access:         access,
			Token:          token,
			TokenExpiresAt: claims.ExpiresAt,
		}

		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(ctx, principal)))
	})
}

// TokenFreshness rejects expired credentials after authentication has
// succeeded, revoking the credential server-side so it can never be replayed
// even if clocks drift.
func (g *Guard) TokenFreshness(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		p, ok := auth.GetPrincipal(ctx)
		if !ok {
			denyUnauthenticated(w, r, "Authentication required")
			return
		}

		if !p.TokenExpiresAt.IsZero() && time.Now().After(p.TokenExpiresAt) {
			if err := g.tokens.Revoke(ctx, p.Token, p.TokenExpiresAt); err != nil {
				GetLoggerFromContext(ctx).Warn("expired token revocation failed", "error", err)
			}
			httperr.TokenExpired("Session expired, please sign in again", p.TokenExpiresAt).Write(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// denyUnauthenticated content-negotiates the failure mode: API clients get
// the JSON envelope, interactive clients get a redirect to the login page.
func denyUnauthenticated(w http.ResponseWriter, r *http.Request, message string) {
	if wantsHTML(r) {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	httperr.Unauthorized(message).Write(w)
}

func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}
