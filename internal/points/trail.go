package points

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

const HistoryDescription = "spreadsheet import"

// Trail writes the points history entry that accompanies every credit.
type Trail struct {
	description string
}

func NewTrail() *Trail {
	return &Trail{description: HistoryDescription}
}

// Record appends one entry inside tx, so it commits or rolls back together
// with the credit it describes.
func (t *Trail) Record(ctx context.Context, tx Tx, accountID uuid.UUID, pointsAdded int64, importJobID uuid.UUID) error {
	err := tx.AppendHistory(ctx, HistoryEntry{
		AccountID:   accountID,
		PointsAdded: pointsAdded,
		Description: t.description,
		ImportJobID: importJobID,
	})
	if err != nil {
		return fmt.Errorf("append points history: %w", err)
	}
	return nil
}
