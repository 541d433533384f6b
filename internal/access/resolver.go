// Package access resolves per-template roles and permissions for a
// principal, layering the platform-role escape hatch over the grant store.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/praxlog/logbook-backend/internal/auth"
	"github.com/praxlog/logbook-backend/internal/rbac"
	"github.com/praxlog/logbook-backend/internal/store"
)

// GrantReader is the slice of the store the resolver needs.
type GrantReader interface {
	GetGrant(ctx context.Context, userID, templateID uuid.UUID) (string, error)
}

type Resolver struct {
	grants GrantReader
}

func NewResolver(grants GrantReader) *Resolver {
	return &Resolver{grants: grants}
}

// ResolveRole returns the effective logbook role of the principal on the
// template. Principals holding a platform override role resolve to owner
// without a grant lookup. ok is false when no access exists.
func (r *Resolver) ResolveRole(ctx context.Context, p *auth.Principal, templateID uuid.UUID) (role string, ok bool, err error) {
	if p == nil {
		return "", false, nil
	}
	if p.Access.HasAnyRole(rbac.PlatformOverrideRoles) {
		return rbac.LogbookRoleOwner, true, nil
	}

	role, err = r.grants.GetGrant(ctx, p.ID, templateID)
	if errors.Is(err, store.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("grant lookup: %w", err)
	}
	return role, true, nil
}

// HasPermission reports whether the principal's effective logbook role on
// the template carries the given logbook permission.
func (r *Resolver) HasPermission(ctx context.Context, p *auth.Principal, templateID uuid.UUID, permission string) (bool, error) {
	role, ok, err := r.ResolveRole(ctx, p, templateID)
	if err != nil || !ok {
		return false, err
	}
	return rbac.LogbookRoleHasPermission(role, permission), nil
}

// HasAnyRole reports whether the principal's effective logbook role is one
// of the named roles (OR semantics). An empty list accepts any role.
func (r *Resolver) HasAnyRole(ctx context.Context, p *auth.Principal, templateID uuid.UUID, roles []string) (bool, error) {
	role, ok, err := r.ResolveRole(ctx, p, templateID)
	if err != nil || !ok {
		return false, err
	}
	if len(roles) == 0 {
		return true, nil
	}
	for _, want := range roles {
		if role == want {
			return true, nil
		}
	}
	return false, nil
}

// IsOwner reports whether the principal holds the owner grant on the
// template. The escape hatch here is the widened ownership override list, so
// managers and institution admins can perform structural operations too.
func (r *Resolver) IsOwner(ctx context.Context, p *auth.Principal, templateID uuid.UUID) (bool, error) {
	if p == nil {
		return false, nil
	}
	if p.Access.HasAnyRole(rbac.OwnershipOverrideRoles) {
		return true, nil
	}

	role, err := r.grants.GetGrant(ctx, p.ID, templateID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("grant lookup: %w", err)
	}
	return role == rbac.LogbookRoleOwner, nil
}
