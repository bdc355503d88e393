package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sciencehabits/sciencehabits/internal/client/models"
	"github.com/sciencehabits/sciencehabits/internal/client/repositories/habits"
	"github.com/sciencehabits/sciencehabits/internal/client/repositories/progress"
	"github.com/sciencehabits/sciencehabits/internal/common"
	"github.com/sciencehabits/sciencehabits/internal/dbx"
)

type HabitService interface {
	// CreateCustom stores a user-authored habit. The id is assigned here
	// when the caller left it empty.
	CreateCustom(ctx context.Context, userID string, h *models.Habit) (*models.Habit, error)
	// Get returns a habit by id or common.ErrorNotFound.
	Get(ctx context.Context, id string) (*models.Habit, error)
	// List returns the catalog plus the user's custom habits.
	List(ctx context.Context, userID string) ([]models.Habit, error)
	// Delete removes a habit together with its ledger row. Catalog habits
	// cannot be deleted.
	Delete(ctx context.Context, userID, habitID string) error
	// Put stores a habit row as-is. Used when replaying buffered
	// custom-habit operations.
	Put(ctx context.Context, h *models.Habit) error
}

type habitService struct {
	db  *sql.DB
	now func() time.Time
}

func NewHabitService(db *sql.DB) HabitService {
	return &habitService{db: db, now: time.Now}
}

func (s *habitService) CreateCustom(ctx context.Context, userID string, h *models.Habit) (*models.Habit, error) {
	if h.Title == "" {
		return nil, fmt.Errorf("%w: habit title is required", common.ErrorValidation)
	}
	switch h.Frequency.Type {
	case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyPeriodic:
	case "":
		h.Frequency.Type = models.FrequencyDaily
	default:
		return nil, fmt.Errorf("%w: unknown frequency type %q", common.ErrorValidation, h.Frequency.Type)
	}

	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	h.IsCustom = true
	h.UserID = userID
	h.CreatedAt = s.now().UTC()

	if err := habits.NewSQLiteRepository(s.db).Upsert(ctx, h); err != nil {
		return nil, fmt.Errorf("saving habit: %w", err)
	}
	return h, nil
}

func (s *habitService) Get(ctx context.Context, id string) (*models.Habit, error) {
	return habits.NewSQLiteRepository(s.db).GetByID(ctx, id)
}

func (s *habitService) List(ctx context.Context, userID string) ([]models.Habit, error) {
	return habits.NewSQLiteRepository(s.db).ListForUser(ctx, userID)
}

func (s *habitService) Delete(ctx context.Context, userID, habitID string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		habitRepo := habits.NewSQLiteRepository(tx)

		h, err := habitRepo.GetByID(ctx, habitID)
		if err != nil {
			return fmt.Errorf("loading habit: %w", err)
		}
		if !h.IsCustom {
			return fmt.Errorf("%w: catalog habits cannot be deleted", common.ErrorValidation)
		}
		if h.UserID != userID {
			return common.ErrorUnauthorized
		}

		if err := habitRepo.Delete(ctx, habitID); err != nil {
			return fmt.Errorf("deleting habit: %w", err)
		}
		// ledger row goes with the habit
		if err := progress.NewSQLiteRepository(tx).Delete(ctx, userID, habitID); err != nil {
			return fmt.Errorf("deleting progress: %w", err)
		}
		return nil
	})
}

func (s *habitService) Put(ctx context.Context, h *models.Habit) error {
	return habits.NewSQLiteRepository(s.db).Upsert(ctx, h)
}
