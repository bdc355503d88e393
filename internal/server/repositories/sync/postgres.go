package sync

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

func (r *PostgresRepository) GetProgress(ctx context.Context, userID string, habitID string) (*models.ProgressDoc, error) {
	query := `
		SELECT doc, updated_at
		FROM progress_docs
		WHERE user_id = $1 AND habit_id = $2
	`
	doc := &models.ProgressDoc{UserID: userID, HabitID: habitID}
	if err := r.db.QueryRowContext(ctx, query, userID, habitID).Scan(&doc.Doc, &doc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return doc, nil
}

func (r *PostgresRepository) UpsertProgress(ctx context.Context, userID string, habitID string, doc json.RawMessage) error {
	query := `
		INSERT INTO progress_docs (user_id, habit_id, doc, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, habit_id)
		DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()
	`
	if _, err := r.db.ExecContext(ctx, query, userID, habitID, []byte(doc)); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpsertHabit(ctx context.Context, id string, userID string, doc json.RawMessage) error {
	query := `
		INSERT INTO habit_docs (id, user_id, doc, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id)
		DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()
		WHERE habit_docs.user_id = EXCLUDED.user_id
	`
	if _, err := r.db.ExecContext(ctx, query, id, userID, []byte(doc)); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteHabit(ctx context.Context, userID string, id string) error {
	query := `
		DELETE FROM habit_docs
		WHERE id = $1 AND user_id = $2
	`
	if _, err := r.db.ExecContext(ctx, query, id, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	query = `
		DELETE FROM progress_docs
		WHERE user_id = $1 AND habit_id = $2
	`
	if _, err := r.db.ExecContext(ctx, query, userID, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpsertProfile(ctx context.Context, userID string, doc json.RawMessage) error {
	query := `
		INSERT INTO profile_docs (user_id, doc, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id)
		DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()
	`
	if _, err := r.db.ExecContext(ctx, query, userID, []byte(doc)); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListHabits(ctx context.Context, userID string) ([]*models.HabitDoc, error) {
	query := `
		SELECT id, doc, updated_at
		FROM habit_docs
		WHERE user_id = $1
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var docs []*models.HabitDoc
	for rows.Next() {
		doc := &models.HabitDoc{UserID: userID}
		if err := rows.Scan(&doc.ID, &doc.Doc, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return docs, nil
}

func (r *PostgresRepository) ListProgress(ctx context.Context, userID string) ([]*models.ProgressDoc, error) {
	query := `
		SELECT habit_id, doc, updated_at
		FROM progress_docs
		WHERE user_id = $1
		ORDER BY habit_id
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var docs []*models.ProgressDoc
	for rows.Next() {
		doc := &models.ProgressDoc{UserID: userID}
		if err := rows.Scan(&doc.HabitID, &doc.Doc, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return docs, nil
}
