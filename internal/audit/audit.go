// Package audit records who did what in audit_logs.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/samuelozorio/nextpage-mvp-sub000/internal/store"
)

const (
	ActionLogin                = "auth.login"
	ActionLogout               = "auth.logout"
	ActionPointsImportStarted  = "points_import.started"
	ActionPointsImportFinished = "points_import.finished"
	ActionPointsImportRejected = "points_import.rejected"
)

type Inserter interface {
	InsertAuditLog(ctx context.Context, arg store.InsertAuditLogParams) error
}

type Logger struct {
	q Inserter
}

func NewLogger(q Inserter) *Logger {
	return &Logger{q: q}
}

type Entry struct {
	OrganizationID *uuid.UUID
	UserID         *uuid.UUID
	Action         string
	EntityType     string
	EntityID       *uuid.UUID
	RequestID      string
	Metadata       map[string]any
}

func (l *Logger) Log(ctx context.Context, entry Entry) error {
	metadata := []byte("{}")
	if len(entry.Metadata) > 0 {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		metadata = encoded
	}

	params := store.InsertAuditLogParams{
		OrganizationID: entry.OrganizationID,
		UserID:         entry.UserID,
		Action:         entry.Action,
		EntityType:     entry.EntityType,
		EntityID:       entry.EntityID,
		Metadata:       metadata,
	}
	if entry.RequestID != "" {
		params.RequestID = &entry.RequestID
	}

	if err := l.q.InsertAuditLog(ctx, params); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
