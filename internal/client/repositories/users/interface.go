// Package users stores the local user profile.
package users

import (
	"context"

	"github.com/sciencehabits/sciencehabits/internal/client/models"
)

type Repository interface {
	// Save upserts the user row by id.
	Save(ctx context.Context, u *models.User) error
	// GetByID returns the user or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetAny returns the single local profile when one exists. The client is
	// a one-profile application; multiple rows only occur transiently during
	// account switches.
	GetAny(ctx context.Context) (*models.User, error)
	// Delete removes the user row. Missing rows are not an error.
	Delete(ctx context.Context, id string) error
}
