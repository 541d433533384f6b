package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateRole(ctx context.Context, name, description string) (Role, error) {
	var r Role
	err := s.pool.QueryRow(ctx, `
		insert into roles (id, name, description, is_system)
		values ($1, $2, $3, false)
		returning id, name, description, is_system, created_at
	`, uuid.New(), name, description).Scan(&r.ID, &r.Name, &r.Description, &r.IsSystem, &r.CreatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return Role{}, ErrConflict
		}
		return Role{}, err
	}
	return r, nil
}

func (s *Store) GetRoleByID(ctx context.Context, id uuid.UUID) (Role, error) {
	var r Role
	err := s.pool.QueryRow(ctx, `
		select id, name, description, is_system, created_at
		from roles where id = $1
	`, id).Scan(&r.ID, &r.Name, &r.Description, &r.IsSystem, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, ErrNotFound
	}
	if err != nil {
		return Role{}, err
	}
	return r, nil
}

func (s *Store) GetRoleByName(ctx context.Context, name string) (Role, error) {
	var r Role
	err := s.pool.QueryRow(ctx, `
		select id, name, description, is_system, created_at
		from roles where name = $1
	`, name).Scan(&r.ID, &r.Name, &r.Description, &r.IsSystem, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, ErrNotFound
	}
	if err != nil {
		return Role{}, err
	}
	return r, nil
}

func (s *Store) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := s.pool.Query(ctx, `
		select id, name, description, is_system, created_at
		from roles order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.IsSystem, &r.CreatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

// DeleteRole removes a custom role. System roles are immutable.
func (s *Store) DeleteRole(ctx context.Context, id uuid.UUID) error {
	var isSystem bool
	err := s.pool.QueryRow(ctx, `select is_system from roles where id = $1`, id).Scan(&isSystem)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if isSystem {
		return ErrSystemRole
	}

	_, err = s.pool.Exec(ctx, `delete from roles where id = $1`, id)
	return err
}

// SetRolePermissions atomically replaces a role's permission set (sync
// semantics). Permission names that do not exist are created on the fly so a
// sync is idempotent with respect to the seeded catalog.
func (s *Store) SetRolePermissions(ctx context.Context, roleID uuid.UUID, permissionNames []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `select exists(select 1 from roles where id = $1)`, roleID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx, `delete from role_permissions where role_id = $1`, roleID); err != nil {
		return err
	}

	for _, name := range permissionNames {
		var permID uuid.UUID
		err := tx.QueryRow(ctx, `
			insert into permissions (id, name, description)
			values ($1, $2, '')
			on conflict (name) do update set name = excluded.name
			returning id
		`, uuid.New(), name).Scan(&permID)
		if err != nil {
			return fmt.Errorf("ensure permission %q: %w", name, err)
		}
		if _, err := tx.Exec(ctx, `
			insert into role_permissions (role_id, permission_id)
			values ($1, $2)
			on conflict do nothing
		`, roleID, permID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// AssignRole adds a role membership; assigning an already-held role is a
// no-op.
func (s *Store) AssignRole(ctx context.Context, userID uuid.UUID, roleName string) error {
	_, err := s.pool.Exec(ctx, `
		insert into user_roles (user_id, role_id)
		select $1, id from roles where name = $2
		on conflict do nothing
	`, userID, roleName)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Store) RemoveRole(ctx context.Context, userID uuid.UUID, roleName string) error {
	_, err := s.pool.Exec(ctx, `
		delete from user_roles
		where user_id = $1 and role_id = (select id from roles where name = $2)
	`, userID, roleName)
	return err
}

func (s *Store) GetUserRoles(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		select r.name
		from user_roles ur
		join roles r on r.id = ur.role_id
		where ur.user_id = $1
		order by r.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// GetUserPermissions returns the union of permissions across all of the
// user's roles.
func (s *Store) GetUserPermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		select distinct p.name
		from user_roles ur
		join role_permissions rp on rp.role_id = ur.role_id
		join permissions p on p.id = rp.permission_id
		where ur.user_id = $1
		order by p.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
