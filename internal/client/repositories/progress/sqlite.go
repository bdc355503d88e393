package progress

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

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

const progressColumns = `id, user_id, habit_id, date_started, completions,
	current_streak, longest_streak, total_days, weekly_progress, periodic_progress`

func (r *SQLiteRepository) Get(ctx context.Context, userID, habitID string) (*models.Progress, error) {
	query := `SELECT ` + progressColumns + ` FROM progress WHERE user_id = ? AND habit_id = ?`
	row := r.db.QueryRowContext(ctx, query, userID, habitID)
	p, err := scanProgress(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, p *models.Progress) error {
	completions, weekly, periodic, err := marshalDerived(p)
	if err != nil {
		return err
	}

	query := `INSERT INTO progress (` + progressColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		p.ID, p.UserID, p.HabitID, p.DateStarted, completions,
		p.CurrentStreak, p.LongestStreak, p.TotalDays, weekly, periodic)
	if err != nil {
		if isUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("failed to insert progress: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Save(ctx context.Context, p *models.Progress) error {
	completions, weekly, periodic, err := marshalDerived(p)
	if err != nil {
		return err
	}

	query := `INSERT INTO progress (` + progressColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET date_started = excluded.date_started,
				completions = excluded.completions,
				current_streak = excluded.current_streak,
				longest_streak = excluded.longest_streak,
				total_days = excluded.total_days,
				weekly_progress = excluded.weekly_progress,
				periodic_progress = excluded.periodic_progress
	`
	_, err = r.db.ExecContext(ctx, query,
		p.ID, p.UserID, p.HabitID, p.DateStarted, completions,
		p.CurrentStreak, p.LongestStreak, p.TotalDays, weekly, periodic)
	if err != nil {
		return fmt.Errorf("failed to upsert progress: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, userID, habitID string) error {
	query := `DELETE FROM progress WHERE user_id = ? AND habit_id = ?`
	if _, err := r.db.ExecContext(ctx, query, userID, habitID); err != nil {
		return fmt.Errorf("failed to delete progress: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListForUser(ctx context.Context, userID string) ([]models.Progress, error) {
	query := `SELECT ` + progressColumns + ` FROM progress WHERE user_id = ? ORDER BY habit_id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select progress: %w", err)
	}
	defer rows.Close()

	var result []models.Progress
	for rows.Next() {
		p, err := scanProgress(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func marshalDerived(p *models.Progress) (completions, weekly, periodic string, err error) {
	c := p.Completions
	if c == nil {
		c = []string{}
	}
	cb, err := json.Marshal(c)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to marshal completions: %w", err)
	}
	w := p.WeeklyProgress
	if w == nil {
		w = []models.PeriodProgress{}
	}
	wb, err := json.Marshal(w)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to marshal weekly progress: %w", err)
	}
	pe := p.PeriodicProgress
	if pe == nil {
		pe = []models.PeriodProgress{}
	}
	pb, err := json.Marshal(pe)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to marshal periodic progress: %w", err)
	}
	return string(cb), string(wb), string(pb), nil
}

func scanProgress(scan func(dest ...any) error) (*models.Progress, error) {
	p := &models.Progress{}
	var completions, weekly, periodic string
	err := scan(&p.ID, &p.UserID, &p.HabitID, &p.DateStarted, &completions,
		&p.CurrentStreak, &p.LongestStreak, &p.TotalDays, &weekly, &periodic)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(completions), &p.Completions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal completions: %w", err)
	}
	if err := json.Unmarshal([]byte(weekly), &p.WeeklyProgress); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weekly progress: %w", err)
	}
	if err := json.Unmarshal([]byte(periodic), &p.PeriodicProgress); err != nil {
		return nil, fmt.Errorf("failed to unmarshal periodic progress: %w", err)
	}
	if len(p.WeeklyProgress) == 0 {
		p.WeeklyProgress = nil
	}
	if len(p.PeriodicProgress) == 0 {
		p.PeriodicProgress = nil
	}
	return p, nil
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite reports constraint failures in the error text;
	// there is no exported errno type to match against.
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
