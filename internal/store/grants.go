package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UpsertGrant assigns a logbook role on a template. The primary key on
// (user_id, template_id) makes a second grant for the same pair replace the
// prior role rather than coexist with it.
func (s *Store) UpsertGrant(ctx context.Context, userID, templateID uuid.UUID, role string, grantedBy *uuid.UUID) (AccessGrant, error) {
	var g AccessGrant
	err := s.pool.QueryRow(ctx, `
		insert into template_access (user_id, template_id, role, granted_by)
		values ($1, $2, $3, $4)
		on conflict (user_id, template_id)
		do update set role = excluded.role, granted_by = excluded.granted_by
		returning user_id, template_id, role, granted_by, created_at
	`, userID, templateID, role, grantedBy).Scan(
		&g.UserID, &g.TemplateID, &g.Role, &g.GrantedBy, &g.CreatedAt,
	)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return AccessGrant{}, ErrNotFound
		}
		return AccessGrant{}, err
	}
	return g, nil
}

// GetGrant returns the unique logbook role held by userID on templateID, or
// ErrNotFound when no grant exists.
func (s *Store) GetGrant(ctx context.Context, userID, templateID uuid.UUID) (string, error) {
	var role string
	err := s.pool.QueryRow(ctx, `
		select role from template_access
		where user_id = $1 and template_id = $2
	`, userID, templateID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return role, nil
}

func (s *Store) DeleteGrant(ctx context.Context, userID, templateID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		delete from template_access
		where user_id = $1 and template_id = $2
	`, userID, templateID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListGrants(ctx context.Context, templateID uuid.UUID) ([]AccessGrant, error) {
	rows, err := s.pool.Query(ctx, `
		select user_id, template_id, role, granted_by, created_at
		from template_access
		where template_id = $1
		order by created_at
	`, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []AccessGrant
	for rows.Next() {
		var g AccessGrant
		if err := rows.Scan(&g.UserID, &g.TemplateID, &g.Role, &g.GrantedBy, &g.CreatedAt); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}
