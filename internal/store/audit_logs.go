package store

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

type InsertAuditLogParams struct {
	OrganizationID *uuid.UUID
	UserID         *uuid.UUID
	Action         string
	EntityType     string
	EntityID       *uuid.UUID
	RequestID      *string
	Metadata       json.RawMessage
}

func (q *Queries) InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO audit_logs (organization_id, user_id, action, entity_type, entity_id, request_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, arg.OrganizationID, arg.UserID, arg.Action, arg.EntityType, arg.EntityID, arg.RequestID, []byte(arg.Metadata))
	return err
}
