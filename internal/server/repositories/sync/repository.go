// Package sync stores the server-side document replicas produced by the
// client operation queue.
package sync

import (
	"context"
	"encoding/json"

	"github.com/sciencehabits/sciencehabits/internal/server/models"
)

type Repository interface {
	// GetProgress returns the progress replica for one habit, or
	// common.ErrorNotFound.
	GetProgress(ctx context.Context, userID string, habitID string) (*models.ProgressDoc, error)
	// UpsertProgress replaces the progress replica for one habit.
	UpsertProgress(ctx context.Context, userID string, habitID string, doc json.RawMessage) error
	// UpsertHabit replaces a user-authored habit replica.
	UpsertHabit(ctx context.Context, id string, userID string, doc json.RawMessage) error
	// DeleteHabit removes a habit replica and its progress replica.
	// Unknown ids are not an error.
	DeleteHabit(ctx context.Context, userID string, id string) error
	// UpsertProfile replaces the user's profile replica.
	UpsertProfile(ctx context.Context, userID string, doc json.RawMessage) error
	// ListHabits returns the user's habit replicas.
	ListHabits(ctx context.Context, userID string) ([]*models.HabitDoc, error)
	// ListProgress returns the user's progress replicas.
	ListProgress(ctx context.Context, userID string) ([]*models.ProgressDoc, error)
}
