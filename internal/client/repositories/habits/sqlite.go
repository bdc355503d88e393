package habits

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

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

const habitColumns = `id, title, description, time_minutes, category, difficulty, equipment,
	frequency, goal_tags, lifestyle_tags, time_tags, instructions, research_ids, is_custom, user_id, created_at`

func (r *SQLiteRepository) Upsert(ctx context.Context, h *models.Habit) error {
	frequency, err := json.Marshal(h.Frequency)
	if err != nil {
		return fmt.Errorf("failed to marshal frequency: %w", err)
	}
	goalTags, err := marshalTags(h.GoalTags)
	if err != nil {
		return err
	}
	lifestyleTags, err := marshalTags(h.LifestyleTags)
	if err != nil {
		return err
	}
	timeTags, err := marshalTags(h.TimeTags)
	if err != nil {
		return err
	}
	researchIDs, err := marshalTags(h.ResearchIDs)
	if err != nil {
		return err
	}

	query := `INSERT OR REPLACE INTO habits (` + habitColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		h.ID, h.Title, h.Description, h.TimeMinutes, h.Category, h.Difficulty, h.Equipment,
		string(frequency), goalTags, lifestyleTags, timeTags, h.Instructions, researchIDs,
		h.IsCustom, h.UserID, h.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert habit: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Habit, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+habitColumns+` FROM habits WHERE id = ?`, id)
	h, err := scanHabit(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, err
	}
	return h, nil
}

func (r *SQLiteRepository) ListForUser(ctx context.Context, userID string) ([]models.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits
			WHERE is_custom = 0 OR user_id = ?
			ORDER BY is_custom, title`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select habits: %w", err)
	}
	defer rows.Close()

	var result []models.Habit
	for rows.Next() {
		h, err := scanHabit(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM habits WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteCatalog(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM habits WHERE is_custom = 0`); err != nil {
		return fmt.Errorf("failed to clear habit catalog: %w", err)
	}
	return nil
}

func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tags: %w", err)
	}
	return string(b), nil
}

func scanHabit(scan func(dest ...any) error) (*models.Habit, error) {
	h := &models.Habit{}
	var frequency, goalTags, lifestyleTags, timeTags, researchIDs, createdAt string
	err := scan(&h.ID, &h.Title, &h.Description, &h.TimeMinutes, &h.Category, &h.Difficulty,
		&h.Equipment, &frequency, &goalTags, &lifestyleTags, &timeTags, &h.Instructions,
		&researchIDs, &h.IsCustom, &h.UserID, &createdAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(frequency), &h.Frequency); err != nil {
		return nil, fmt.Errorf("failed to unmarshal frequency: %w", err)
	}
	for _, pair := range []struct {
		raw  string
		dest *[]string
	}{
		{goalTags, &h.GoalTags},
		{lifestyleTags, &h.LifestyleTags},
		{timeTags, &h.TimeTags},
		{researchIDs, &h.ResearchIDs},
	} {
		if err := json.Unmarshal([]byte(pair.raw), pair.dest); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	if h.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return h, nil
}
