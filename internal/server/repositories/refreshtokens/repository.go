// Package refreshtokens stores the opaque rotating refresh tokens.
package refreshtokens

import (
	"context"
	"time"

	"github.com/sciencehabits/sciencehabits/internal/server/models"
)

type Repository interface {
	// Create stores a token valid for the given duration.
	Create(ctx context.Context, userID string, token string, validity time.Duration) error
	// Find returns the token row or common.ErrorNotFound.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)
	// Delete removes a token. Missing tokens are not an error.
	Delete(ctx context.Context, token string) error
	// DeleteExpired prunes tokens past their expiry and reports how many
	// rows were removed.
	DeleteExpired(ctx context.Context) (int64, error)
}
