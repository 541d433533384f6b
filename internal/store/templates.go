package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/praxlog/logbook-backend/internal/rbac"
)

// CreateTemplate inserts a template and grants the creator the owner role on
// it in the same transaction.
func (s *Store) CreateTemplate(ctx context.Context, name string, institutionID *uuid.UUID, ownerID uuid.UUID) (Template, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Template{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var t Template
	err = tx.QueryRow(ctx, `
		insert into logbook_templates (id, name, institution_id, owner_id)
		values ($1, $2, $3, $4)
		returning id, name, institution_id, owner_id, created_at
	`, uuid.New(), name, institutionID, ownerID).Scan(
		&t.ID, &t.Name, &t.InstitutionID, &t.OwnerID, &t.CreatedAt,
	)
	if err != nil {
		return Template{}, err
	}

	_, err = tx.Exec(ctx, `
		insert into template_access (user_id, template_id, role, granted_by)
		values ($1, $2, $3, $1)
	`, ownerID, t.ID, rbac.LogbookRoleOwner)
	if err != nil {
		return Template{}, fmt.Errorf("grant owner access: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Template{}, fmt.Errorf("commit: %w", err)
	}
	return t, nil
}

func (s *Store) GetTemplate(ctx context.Context, id uuid.UUID) (Template, error) {
	var t Template
	err := s.pool.QueryRow(ctx, `
		select id, name, institution_id, owner_id, created_at
		from logbook_templates where id = $1
	`, id).Scan(&t.ID, &t.Name, &t.InstitutionID, &t.OwnerID, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Template{}, ErrNotFound
	}
	if err != nil {
		return Template{}, err
	}
	return t, nil
}

func (s *Store) RenameTemplate(ctx context.Context, id uuid.UUID, name string) error {
	tag, err := s.pool.Exec(ctx, `
		update logbook_templates set name = $2 where id = $1
	`, id, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTemplate removes a template; grants and entries cascade via foreign
// keys.
func (s *Store) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `delete from logbook_templates where id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
