package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/praxlog/logbook-backend/internal/rbac"
)

// CreateUser inserts a user and assigns the default "user" role in the same
// transaction, mirroring the registration side effect.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (User, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return User{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var u User
	err = tx.QueryRow(ctx, `
		insert into users (id, email, password_hash, status)
		values ($1, $2, $3, $4)
		returning id, email, password_hash, status, is_admin, created_at, deleted_at
	`, uuid.New(), email, passwordHash, UserStatusActive).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Status, &u.IsAdmin, &u.CreatedAt, &u.DeletedAt,
	)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return User{}, ErrConflict
		}
		return User{}, err
	}

	_, err = tx.Exec(ctx, `
		insert into user_roles (user_id, role_id)
		select $1, id from roles where name = $2
		on conflict do nothing
	`, u.ID, rbac.RoleUser)
	if err != nil {
		return User{}, fmt.Errorf("assign default role: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return User{}, fmt.Errorf("commit: %w", err)
	}
	return u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx, `
		select id, email, password_hash, status, is_admin, created_at, deleted_at
		from users
		where id = $1 and deleted_at is null
	`, id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Status, &u.IsAdmin, &u.CreatedAt, &u.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx, `
		select id, email, password_hash, status, is_admin, created_at, deleted_at
		from users
		where email = $1 and deleted_at is null
	`, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Status, &u.IsAdmin, &u.CreatedAt, &u.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context, limit, offset int32) ([]User, error) {
	rows, err := s.pool.Query(ctx, `
		select id, email, password_hash, status, is_admin, created_at, deleted_at
		from users
		where deleted_at is null
		order by created_at
		limit $1 offset $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Status, &u.IsAdmin, &u.CreatedAt, &u.DeletedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SoftDeleteUser marks a user deleted without removing rows the audit trail
// may still reference. Access grants cascade through the trigger-equivalent
// delete below because grants are meaningless for a deleted principal.
func (s *Store) SoftDeleteUser(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		update users set deleted_at = now()
		where id = $1 and deleted_at is null
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx, `delete from template_access where user_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `delete from user_roles where user_id = $1`, id); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// SetUserAdmin toggles the coarse administrator flag checked by the admin
// console filter.
func (s *Store) SetUserAdmin(ctx context.Context, id uuid.UUID, isAdmin bool) error {
	tag, err := s.pool.Exec(ctx, `
		update users set is_admin = $2
		where id = $1 and deleted_at is null
	`, id, isAdmin)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetUserStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := s.pool.Exec(ctx, `
		update users set status = $2
		where id = $1 and deleted_at is null
	`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
