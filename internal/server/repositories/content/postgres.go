package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sciencehabits/sciencehabits/internal/common"
	"github.com/sciencehabits/sciencehabits/internal/dbx"
	"github.com/sciencehabits/sciencehabits/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, contentType string, language string) (*models.ContentDocument, error) {
	query := `
		SELECT body, updated_at
		FROM content
		WHERE type = $1 AND language = $2
	`
	doc := &models.ContentDocument{Type: contentType, Language: language}
	if err := r.db.QueryRowContext(ctx, query, contentType, language).Scan(&doc.Body, &doc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return doc, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, contentType string, language string, body json.RawMessage) error {
	query := `
		INSERT INTO content (type, language, body, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (type, language)
		DO UPDATE SET body = EXCLUDED.body, updated_at = now()
	`
	if _, err := r.db.ExecContext(ctx, query, contentType, language, []byte(body)); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.ContentDocument, error) {
	query := `
		SELECT type, language, body, updated_at
		FROM content
		ORDER BY updated_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var docs []*models.ContentDocument
	for rows.Next() {
		doc := &models.ContentDocument{}
		if err := rows.Scan(&doc.Type, &doc.Language, &doc.Body, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return docs, nil
}
