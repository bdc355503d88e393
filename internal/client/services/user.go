package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sciencehabits/sciencehabits/internal/client/models"
	"github.com/sciencehabits/sciencehabits/internal/client/repositories/users"
	"github.com/sciencehabits/sciencehabits/internal/common"
)

type UserService interface {
	// Create stores the onboarding profile. The id is assigned here when
	// the caller left it empty.
	Create(ctx context.Context, u *models.User) (*models.User, error)
	// Current returns the local profile or common.ErrorNotFound before
	// onboarding has completed.
	Current(ctx context.Context) (*models.User, error)
	// Update persists changed settings and bumps UpdatedAt.
	Update(ctx context.Context, u *models.User) (*models.User, error)
	// Put stores a user row as-is. Used when replaying buffered updates.
	Put(ctx context.Context, u *models.User) error
}

type userService struct {
	db  *sql.DB
	now func() time.Time
}

func NewUserService(db *sql.DB) UserService {
	return &userService{db: db, now: time.Now}
}

func (s *userService) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if u.Name == "" {
		return nil, fmt.Errorf("%w: user name is required", common.ErrorValidation)
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Language == "" {
		u.Language = "en"
	}
	ts := s.now().UTC()
	u.CreatedAt = ts
	u.UpdatedAt = ts

	if err := users.NewSQLiteRepository(s.db).Save(ctx, u); err != nil {
		return nil, fmt.Errorf("saving user: %w", err)
	}
	return u, nil
}

func (s *userService) Current(ctx context.Context) (*models.User, error) {
	return users.NewSQLiteRepository(s.db).GetAny(ctx)
}

func (s *userService) Update(ctx context.Context, u *models.User) (*models.User, error) {
	if u.ID == "" {
		return nil, fmt.Errorf("%w: user id is required", common.ErrorValidation)
	}
	u.UpdatedAt = s.now().UTC()

	if err := users.NewSQLiteRepository(s.db).Save(ctx, u); err != nil {
		return nil, fmt.Errorf("saving user: %w", err)
	}
	return u, nil
}

func (s *userService) Put(ctx context.Context, u *models.User) error {
	return users.NewSQLiteRepository(s.db).Save(ctx, u)
}
