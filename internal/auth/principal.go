package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const principalKey contextKey = "principal"

// Principal is the resolved identity attached to the request context by the
// authentication stage. Downstream filters and handlers read it; they never
// re-derive it.
type Principal struct {
	ID             uuid.UUID
	Email          string
	IsAdmin        bool
	Access         Access
	Token          string
	TokenExpiresAt time.Time
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func GetPrincipal(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok
}
