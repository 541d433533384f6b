package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InsertAudit appends one immutable audit record. There is no update path.
func (s *Store) InsertAudit(ctx context.Context, rec AuditRecord) error {
	id := rec.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		insert into audit_logs (id, user_id, action, description, ip_address, user_agent, created_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, id, rec.UserID, rec.Action, rec.Description, rec.IPAddress, rec.UserAgent, createdAt)
	return err
}

type AuditFilter struct {
	UserID *uuid.UUID
	Action string
	Since  *time.Time
	Until  *time.Time
	Limit  int32
	Offset int32
}

// ListAudit serves the reporting collaborators; it is not on the enforcement
// path.
func (s *Store) ListAudit(ctx context.Context, f AuditFilter) ([]AuditRecord, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		select id, user_id, action, description, ip_address, user_agent, created_at
		from audit_logs
		where ($1::uuid is null or user_id = $1)
		  and ($2 = '' or action = $2)
		  and ($3::timestamptz is null or created_at >= $3)
		  and ($4::timestamptz is null or created_at <= $4)
		order by created_at desc
		limit $5 offset $6
	`, f.UserID, f.Action, f.Since, f.Until, limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []AuditRecord
	for rows.Next() {
		var r AuditRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.Action, &r.Description, &r.IPAddress, &r.UserAgent, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// PruneAuditBefore deletes records older than cutoff and returns how many
// were removed. Used by the retention job, never by request handling.
func (s *Store) PruneAuditBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `delete from audit_logs where created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
