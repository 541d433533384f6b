package api

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/praxlog/logbook-backend/internal/auth"
	"github.com/praxlog/logbook-backend/internal/store"
)

// DataStore is the persistence surface the handlers consume.
type DataStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (store.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	ListUsers(ctx context.Context, limit, offset int32) ([]store.User, error)

	CreateRole(ctx context.Context, name, description string) (store.Role, error)
	GetRoleByID(ctx context.Context, id uuid.UUID) (store.Role, error)
	GetRoleByName(ctx context.Context, name string) (store.Role, error)
	ListRoles(ctx context.Context) ([]store.Role, error)
	DeleteRole(ctx context.Context, id uuid.UUID) error
	SetRolePermissions(ctx context.Context, roleID uuid.UUID, permissionNames []string) error
	AssignRole(ctx context.Context, userID uuid.UUID, roleName string) error
	RemoveRole(ctx context.Context, userID uuid.UUID, roleName string) error

	CreateTemplate(ctx context.Context, name string, institutionID *uuid.UUID, ownerID uuid.UUID) (store.Template, error)
	GetTemplate(ctx context.Context, id uuid.UUID) (store.Template, error)
	RenameTemplate(ctx context.Context, id uuid.UUID, name string) error
	DeleteTemplate(ctx context.Context, id uuid.UUID) error

	UpsertGrant(ctx context.Context, userID, templateID uuid.UUID, role string, grantedBy *uuid.UUID) (store.AccessGrant, error)
	DeleteGrant(ctx context.Context, userID, templateID uuid.UUID) error
	ListGrants(ctx context.Context, templateID uuid.UUID) ([]store.AccessGrant, error)

	CreateEntry(ctx context.Context, templateID, authorID uuid.UUID, content string) (store.Entry, error)
	GetEntry(ctx context.Context, id uuid.UUID) (store.Entry, error)
	UpdateEntry(ctx context.Context, id uuid.UUID, content string) error
	DeleteEntry(ctx context.Context, id uuid.UUID) error
	ListEntries(ctx context.Context, templateID uuid.UUID, limit, offset int32) ([]store.Entry, error)

	ListAudit(ctx context.Context, f store.AuditFilter) ([]store.AuditRecord, error)
}

// TokenIssuer mints bearer credentials at login.
type TokenIssuer interface {
	GenerateToken(ctx context.Context, userID uuid.UUID) (string, error)
}

// TokenRevoker invalidates credentials at logout.
type TokenRevoker interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
}

// AccessInvalidator receives membership/permission write events so cached
// resolutions are refreshed.
type AccessInvalidator interface {
	OnEvent(ctx context.Context, ev auth.Event) error
}
