package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/praxlog/logbook-backend/internal/logging"
)

// Access is the effective global entitlement set for one principal.
type Access struct {
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

func (a Access) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole implements OR semantics: one match admits.
func (a Access) HasAnyRole(roles []string) bool {
	for _, r := range roles {
		if a.HasRole(r) {
			return true
		}
	}
	return false
}

func (a Access) HasPermission(permission string) bool {
	for _, p := range a.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// HasAnyPermission implements OR semantics across the required set. AND
// semantics is expressed by stacking two permission guards on a route.
func (a Access) HasAnyPermission(permissions []string) bool {
	for _, p := range permissions {
		if a.HasPermission(p) {
			return true
		}
	}
	return false
}

// MembershipReader is the slice of the store the resolver needs.
type MembershipReader interface {
	GetUserRoles(ctx context.Context, userID uuid.UUID) ([]string, error)
	GetUserPermissions(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// EventKind enumerates the writes that invalidate cached access.
type EventKind int

const (
	RoleAssigned EventKind = iota + 1
	RoleRemoved
	PermissionSetChanged
)

// Event describes a membership or permission-set write.
type Event struct {
	Kind   EventKind
	UserID uuid.UUID // RoleAssigned / RoleRemoved
	Role   string    // PermissionSetChanged
}

// Resolver computes the effective global roles and permissions of a
// principal, caching per principal and invalidating on explicit events.
type Resolver struct {
	store MembershipReader
	cache AccessCache
}

func NewResolver(store MembershipReader, cache AccessCache) *Resolver {
	return &Resolver{store: store, cache: cache}
}

// ResolveGlobalAccess returns the union of roles and permissions for a
// principal. An unknown or role-less principal resolves to an empty Access
// without error; downstream checks then fail closed on the empty set.
func (r *Resolver) ResolveGlobalAccess(ctx context.Context, userID uuid.UUID) (Access, error) {
	if cached, ok, err := r.cache.Get(ctx, userID); err != nil {
		// A cache fault is not fatal for resolution; fall through to the
		// store and let the caller decide on store faults.
		logging.Warn("access cache read failed", "user_id", userID, "error", err)
	} else if ok {
		return *cached, nil
	}

	roles, err := r.store.GetUserRoles(ctx, userID)
	if err != nil {
		return Access{}, fmt.Errorf("resolving roles: %w", err)
	}
	permissions, err := r.store.GetUserPermissions(ctx, userID)
	if err != nil {
		return Access{}, fmt.Errorf("resolving permissions: %w", err)
	}

	access := Access{Roles: roles, Permissions: permissions}
	if err := r.cache.Set(ctx, userID, access); err != nil {
		logging.Warn("access cache write failed", "user_id", userID, "error", err)
	}
	return access, nil
}

// OnEvent applies point invalidation for a membership or permission-set
// write. Call sites fire it after the store write commits.
func (r *Resolver) OnEvent(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case RoleAssigned, RoleRemoved:
		return r.cache.InvalidateUser(ctx, ev.UserID)
	case PermissionSetChanged:
		return r.cache.InvalidateRole(ctx, ev.Role)
	default:
		return fmt.Errorf("unknown access event kind %d", ev.Kind)
	}
}
