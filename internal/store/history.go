package store

import (
	"context"

	"github.com/google/uuid"
)

type InsertPointsHistoryParams struct {
	UserID      uuid.UUID
	PointsAdded int64
	Description string
	ImportJobID *uuid.UUID
}

func (q *Queries) InsertPointsHistory(ctx context.Context, arg InsertPointsHistoryParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO points_history (user_id, points_added, description, import_job_id)
		VALUES ($1, $2, $3, $4)
	`, arg.UserID, arg.PointsAdded, arg.Description, arg.ImportJobID)
	return err
}

func (q *Queries) ListPointsHistoryByImportJob(ctx context.Context, importJobID uuid.UUID) ([]PointsHistory, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, user_id, points_added, description, import_job_id, created_at
		FROM points_history
		WHERE import_job_id = $1
		ORDER BY created_at
	`, importJobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []PointsHistory
	for rows.Next() {
		var h PointsHistory
		if err := rows.Scan(&h.ID, &h.UserID, &h.PointsAdded, &h.Description, &h.ImportJobID, &h.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, h)
	}
	return entries, rows.Err()
}
