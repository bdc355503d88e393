package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sciencehabits/sciencehabits/internal/client/models"
	"github.com/sciencehabits/sciencehabits/internal/client/repositories/habits"
	"github.com/sciencehabits/sciencehabits/internal/client/repositories/progress"
	"github.com/sciencehabits/sciencehabits/internal/common"
	"github.com/sciencehabits/sciencehabits/internal/datex"
	"github.com/sciencehabits/sciencehabits/internal/dbx"
)

type LedgerService interface {
	// MarkComplete records a completion for the (user, habit) pair on the
	// given day (today when date is empty) and recomputes the derived
	// fields in the same transaction. Marking an already-completed day is
	// a no-op. The ledger row is created implicitly on first completion.
	MarkComplete(ctx context.Context, userID, habitID, date string) (*models.Progress, error)
	// Create inserts a zeroed ledger row for the pair, started today.
	// Returns common.ErrorAlreadyExists when a row exists.
	Create(ctx context.Context, userID, habitID string) (*models.Progress, error)
	// Get returns the ledger row for the pair or common.ErrorNotFound.
	Get(ctx context.Context, userID, habitID string) (*models.Progress, error)
	// List returns every ledger row owned by the user.
	List(ctx context.Context, userID string) ([]models.Progress, error)
	// Put replaces a ledger row wholesale, recomputing derived fields
	// from its completion set. Used when replaying buffered updates.
	Put(ctx context.Context, p *models.Progress) (*models.Progress, error)
	// Delete removes the ledger row for the pair.
	Delete(ctx context.Context, userID, habitID string) error
}

type ledgerService struct {
	db  *sql.DB
	now func() time.Time
}

func NewLedgerService(db *sql.DB) LedgerService {
	return &ledgerService{db: db, now: time.Now}
}

func (s *ledgerService) MarkComplete(ctx context.Context, userID, habitID, date string) (*models.Progress, error) {
	day := date
	if day == "" {
		day = datex.Format(s.now())
	}
	if !datex.Valid(day) {
		return nil, fmt.Errorf("%w: bad date %q", common.ErrorValidation, day)
	}

	var result *models.Progress
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		habitRepo := habits.NewSQLiteRepository(tx)
		progressRepo := progress.NewSQLiteRepository(tx)

		habit, err := habitRepo.GetByID(ctx, habitID)
		if err != nil {
			return fmt.Errorf("loading habit: %w", err)
		}

		p, err := progressRepo.Get(ctx, userID, habitID)
		if errors.Is(err, common.ErrorNotFound) {
			p = &models.Progress{
				ID:          models.ProgressID(userID, habitID),
				UserID:      userID,
				HabitID:     habitID,
				DateStarted: day,
				Completions: []string{},
			}
			if err := progressRepo.Create(ctx, p); err != nil {
				return fmt.Errorf("creating progress: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("loading progress: %w", err)
		}

		if p.Completed(day) {
			result = p
			return nil
		}

		p.Completions = append(p.Completions, day)
		if err := RecomputeProgress(p, habit.Frequency, datex.Format(s.now())); err != nil {
			return fmt.Errorf("recomputing progress: %w", err)
		}

		if err := progressRepo.Save(ctx, p); err != nil {
			return fmt.Errorf("saving progress: %w", err)
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ledgerService) Create(ctx context.Context, userID, habitID string) (*models.Progress, error) {
	p := &models.Progress{
		ID:          models.ProgressID(userID, habitID),
		UserID:      userID,
		HabitID:     habitID,
		DateStarted: datex.Format(s.now()),
		Completions: []string{},
	}
	if err := progress.NewSQLiteRepository(s.db).Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ledgerService) Get(ctx context.Context, userID, habitID string) (*models.Progress, error) {
	return progress.NewSQLiteRepository(s.db).Get(ctx, userID, habitID)
}

func (s *ledgerService) List(ctx context.Context, userID string) ([]models.Progress, error) {
	return progress.NewSQLiteRepository(s.db).ListForUser(ctx, userID)
}

func (s *ledgerService) Put(ctx context.Context, p *models.Progress) (*models.Progress, error) {
	if p.UserID == "" || p.HabitID == "" {
		return nil, fmt.Errorf("%w: progress needs user and habit ids", common.ErrorValidation)
	}
	if p.ID == "" {
		p.ID = models.ProgressID(p.UserID, p.HabitID)
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		habitRepo := habits.NewSQLiteRepository(tx)
		progressRepo := progress.NewSQLiteRepository(tx)

		habit, err := habitRepo.GetByID(ctx, p.HabitID)
		if err != nil {
			return fmt.Errorf("loading habit: %w", err)
		}

		if err := RecomputeProgress(p, habit.Frequency, datex.Format(s.now())); err != nil {
			return fmt.Errorf("recomputing progress: %w", err)
		}

		if err := progressRepo.Create(ctx, p); errors.Is(err, common.ErrorAlreadyExists) {
			return progressRepo.Save(ctx, p)
		} else if err != nil {
			return fmt.Errorf("saving progress: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ledgerService) Delete(ctx context.Context, userID, habitID string) error {
	return progress.NewSQLiteRepository(s.db).Delete(ctx, userID, habitID)
}
