// Package content stores catalog documents in PostgreSQL.
package content

import (
	"context"
	"encoding/json"

	"github.com/sciencehabits/sciencehabits/internal/server/models"
)

type Repository interface {
	// Get returns the document for a content type and language, or
	// common.ErrorNotFound.
	Get(ctx context.Context, contentType string, language string) (*models.ContentDocument, error)
	// Upsert stores a document, replacing any existing one for the same
	// type and language.
	Upsert(ctx context.Context, contentType string, language string, body json.RawMessage) error
	// List returns every stored document, most recently updated first.
	List(ctx context.Context) ([]*models.ContentDocument, error)
}
