package middleware

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/praxlog/logbook-backend/internal/auth"
	"github.com/praxlog/logbook-backend/internal/httperr"
	"github.com/praxlog/logbook-backend/internal/ratelimit"
)

// RateLimit bounds the call rate for a route per (method, path,
// principal-or-IP). It applies to anonymous requests too, so it can sit in
// front of authentication on high-value endpoints like login.
func (g *Guard) RateLimit(maxAttempts int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			subject := GetClientIP(r)
			if p, ok := auth.GetPrincipal(ctx); ok {
				subject = p.ID.String()
			}
			sig := ratelimit.Signature(r.Method, r.URL.Path, subject)

			result, err := g.limiter.Check(ctx, sig, maxAttempts, window)
			if err != nil {
				// counter store fault: fail closed
				GetLoggerFromContext(ctx).Error("rate limit check failed", "error", err)
			}
			if !result.Allowed {
				retrySeconds := int(math.Ceil(result.RetryAfter.Seconds()))
				if retrySeconds < 1 {
					retrySeconds = 1
				}
				retryMinutes := int(math.Ceil(float64(retrySeconds) / 60))

				w.Header().Set("Retry-After", fmt.Sprintf("%d", retrySeconds))
				w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", maxAttempts))
				w.Header().Set("X-RateLimit-Remaining", "0")
				httperr.RateLimited(
					fmt.Sprintf("Too many attempts. Please try again in %d minute(s).", retryMinutes),
					retrySeconds,
				).Write(w)
				return
			}

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", maxAttempts))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
			next.ServeHTTP(w, r)
		})
	}
}
