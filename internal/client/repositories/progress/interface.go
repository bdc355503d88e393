// Package progress stores the ledger rows: per-(user,habit) completion
// history and derived streak fields.
package progress

import (
	"context"

	"github.com/sciencehabits/sciencehabits/internal/client/models"
)

type Repository interface {
	// Get returns the ledger row for the pair or common.ErrorNotFound.
	Get(ctx context.Context, userID, habitID string) (*models.Progress, error)
	// Create inserts a fresh row; common.ErrorAlreadyExists when one exists.
	Create(ctx context.Context, p *models.Progress) error
	// Save replaces the full row. The caller recomputes derived fields
	// before saving; the row is written atomically or not at all.
	Save(ctx context.Context, p *models.Progress) error
	// Delete removes the row. Missing rows are not an error.
	Delete(ctx context.Context, userID, habitID string) error
	// ListForUser returns all ledger rows owned by the user.
	ListForUser(ctx context.Context, userID string) ([]models.Progress, error)
}
