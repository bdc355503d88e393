// Package users stores sync accounts.
package users

import (
	"context"

	"github.com/sciencehabits/sciencehabits/internal/server/models"
)

type Repository interface {
	// Create inserts the account and fills in its generated id. A taken
	// username yields common.ErrorAlreadyExists.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	// GetByUserName returns the account or common.ErrorNotFound.
	GetByUserName(ctx context.Context, userName string) (*models.Account, error)
}
