// Package habits stores the habit catalog and user-authored custom habits.
package habits

import (
	"context"

	"github.com/sciencehabits/sciencehabits/internal/client/models"
)

type Repository interface {
	// Upsert inserts or replaces a habit by id.
	Upsert(ctx context.Context, h *models.Habit) error
	// GetByID returns the habit or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.Habit, error)
	// ListForUser returns catalog habits plus the user's custom habits.
	ListForUser(ctx context.Context, userID string) ([]models.Habit, error)
	// Delete removes a habit row. Missing rows are not an error.
	Delete(ctx context.Context, id string) error
	// DeleteCatalog removes all catalog (non-custom) habits; custom habits
	// survive a catalog reload.
	DeleteCatalog(ctx context.Context) error
}
