package middleware

import (
	"fmt"
	"net/http"

	"github.com/praxlog/logbook-backend/internal/audit"
	"github.com/praxlog/logbook-backend/internal/auth"
	"github.com/praxlog/logbook-backend/internal/httperr"
)

// AdminArea is the coarse all-or-nothing filter for the legacy admin
// console: a credential plus the administrator flag, nothing granular. It is
// the only filter that writes an audit record on denial.
func (g *Guard) AdminArea(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		p, ok := auth.GetPrincipal(ctx)
		if !ok {
			denyUnauthenticated(w, r, "Authentication required")
			return
		}

		if !p.IsAdmin {
			userID := p.ID
			g.audit.Record(ctx, audit.Event{
				UserID:      &userID,
				Action:      audit.ActionAdminAccessDenied,
				Description: fmt.Sprintf("denied admin access to %s %s", r.Method, r.URL.Path),
				IPAddress:   GetClientIP(r),
				UserAgent:   r.UserAgent(),
			})
			httperr.Forbidden("Administrator access required").
				WithRequiredAccess("administrator").
				Write(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}
