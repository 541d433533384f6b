// Package audit is the append-only sink for authorization-relevant events.
// Writes are fire-and-forget: a failed write is logged and never surfaced to
// the request that produced it.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/praxlog/logbook-backend/internal/store"
)

// Action codes recorded by the engine.
const (
	ActionAdminAccessDenied = "ADMIN_ACCESS_DENIED"
	ActionRoleAssigned      = "ROLE_ASSIGNED"
	ActionRoleRemoved       = "ROLE_REMOVED"
	ActionPermissionsSynced = "PERMISSIONS_SYNCED"
	ActionAccessGranted     = "TEMPLATE_ACCESS_GRANTED"
	ActionAccessRevoked     = "TEMPLATE_ACCESS_REVOKED"
	ActionTemplateDeleted   = "TEMPLATE_DELETED"
	ActionUserLogin         = "USER_LOGIN"
)

// Event is one authorization-relevant occurrence. UserID is nil for
// anonymous actors.
type Event struct {
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	Action      string     `json:"action"`
	Description string     `json:"description"`
	IPAddress   string     `json:"ip_address"`
	UserAgent   string     `json:"user_agent"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

// Recorder accepts events without ever failing the caller.
type Recorder interface {
	Record(ctx context.Context, ev Event)
}

// Writer is the slice of the store the sink needs.
type Writer interface {
	InsertAudit(ctx context.Context, rec store.AuditRecord) error
	PruneAuditBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

func (ev Event) record() store.AuditRecord {
	occurred := ev.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	return store.AuditRecord{
		ID:          uuid.New(),
		UserID:      ev.UserID,
		Action:      ev.Action,
		Description: ev.Description,
		IPAddress:   ev.IPAddress,
		UserAgent:   ev.UserAgent,
		CreatedAt:   occurred,
	}
}
