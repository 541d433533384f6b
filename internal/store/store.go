// Package store is the hand-written SQL layer for principals, roles,
// permissions, logbook templates, access grants, entries, and the audit
// trail. Queries run against the pgx pool owned by internal/database.
package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("resource conflict")
	ErrSystemRole = errors.New("system roles cannot be deleted")
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Status       string
	IsAdmin      bool
	CreatedAt    time.Time
	DeletedAt    *time.Time
}

type Role struct {
	ID          uuid.UUID
	Name        string
	Description string
	IsSystem    bool
	CreatedAt   time.Time
}

type Permission struct {
	ID          uuid.UUID
	Name        string
	Description string
}

type Template struct {
	ID            uuid.UUID
	Name          string
	InstitutionID *uuid.UUID
	OwnerID       uuid.UUID
	CreatedAt     time.Time
}

type AccessGrant struct {
	UserID     uuid.UUID
	TemplateID uuid.UUID
	Role       string
	GrantedBy  *uuid.UUID
	CreatedAt  time.Time
}

type Entry struct {
	ID         uuid.UUID
	TemplateID uuid.UUID
	AuthorID   uuid.UUID
	Content    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type AuditRecord struct {
	ID          uuid.UUID
	UserID      *uuid.UUID
	Action      string
	Description string
	IPAddress   string
	UserAgent   string
	CreatedAt   time.Time
}
