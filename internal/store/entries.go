package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateEntry(ctx context.Context, templateID, authorID uuid.UUID, content string) (Entry, error) {
	var e Entry
	err := s.pool.QueryRow(ctx, `
		insert into logbook_entries (id, template_id, author_id, content)
		values ($1, $2, $3, $4)
		returning id, template_id, author_id, content, created_at, updated_at
	`, uuid.New(), templateID, authorID, content).Scan(
		&e.ID, &e.TemplateID, &e.AuthorID, &e.Content, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	return e, nil
}

func (s *Store) GetEntry(ctx context.Context, id uuid.UUID) (Entry, error) {
	var e Entry
	err := s.pool.QueryRow(ctx, `
		select id, template_id, author_id, content, created_at, updated_at
		from logbook_entries where id = $1
	`, id).Scan(&e.ID, &e.TemplateID, &e.AuthorID, &e.Content, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (s *Store) UpdateEntry(ctx context.Context, id uuid.UUID, content string) error {
	tag, err := s.pool.Exec(ctx, `
		update logbook_entries set content = $2, updated_at = now()
		where id = $1
	`, id, content)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `delete from logbook_entries where id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListEntries(ctx context.Context, templateID uuid.UUID, limit, offset int32) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, `
		select id, template_id, author_id, content, created_at, updated_at
		from logbook_entries
		where template_id = $1
		order by created_at desc
		limit $2 offset $3
	`, templateID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TemplateID, &e.AuthorID, &e.Content, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
