package research

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sciencehabits/sciencehabits/internal/client/models"
	"github.com/sciencehabits/sciencehabits/internal/common"
	"github.com/sciencehabits/sciencehabits/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, a *models.ResearchArticle) error {
	habitIDs := a.HabitIDs
	if habitIDs == nil {
		habitIDs = []string{}
	}
	ids, err := json.Marshal(habitIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal habit ids: %w", err)
	}

	query := `INSERT OR REPLACE INTO research (id, language, title, summary, reading_minutes, habit_ids)
			VALUES (?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query, a.ID, a.Language, a.Title, a.Summary, a.ReadingMinutes, string(ids))
	if err != nil {
		return fmt.Errorf("failed to upsert research article: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.ResearchArticle, error) {
	query := `SELECT id, language, title, summary, reading_minutes, habit_ids FROM research WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	a, err := scanArticle(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *SQLiteRepository) ListByLanguage(ctx context.Context, language string) ([]models.ResearchArticle, error) {
	query := `SELECT id, language, title, summary, reading_minutes, habit_ids FROM research
			WHERE language = ? ORDER BY title`
	rows, err := r.db.QueryContext(ctx, query, language)
	if err != nil {
		return nil, fmt.Errorf("failed to select research articles: %w", err)
	}
	defer rows.Close()

	var result []models.ResearchArticle
	for rows.Next() {
		a, err := scanArticle(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM research`); err != nil {
		return fmt.Errorf("failed to clear research cache: %w", err)
	}
	return nil
}

func scanArticle(scan func(dest ...any) error) (*models.ResearchArticle, error) {
	a := &models.ResearchArticle{}
	var ids string
	if err := scan(&a.ID, &a.Language, &a.Title, &a.Summary, &a.ReadingMinutes, &ids); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(ids), &a.HabitIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal habit ids: %w", err)
	}
	return a, nil
}
