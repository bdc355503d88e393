// Package research caches catalog research articles for offline reading.
package research

import (
	"context"

	"github.com/sciencehabits/sciencehabits/internal/client/models"
)

type Repository interface {
	// Upsert inserts or replaces an article by id.
	Upsert(ctx context.Context, a *models.ResearchArticle) error
	// GetByID returns the article or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.ResearchArticle, error)
	// ListByLanguage returns all cached articles for a language.
	ListByLanguage(ctx context.Context, language string) ([]models.ResearchArticle, error)
	// DeleteAll clears the research cache (catalog reload).
	DeleteAll(ctx context.Context) error
}
