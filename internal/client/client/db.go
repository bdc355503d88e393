package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/sciencehabits/sciencehabits/internal/client/migrations"
	"github.com/sciencehabits/sciencehabits/internal/client/repositories/habits"
	"github.com/sciencehabits/sciencehabits/internal/client/repositories/meta"
	"github.com/sciencehabits/sciencehabits/internal/client/repositories/progress"
	"github.com/sciencehabits/sciencehabits/internal/client/repositories/queue"
	"github.com/sciencehabits/sciencehabits/internal/client/repositories/research"
	"github.com/sciencehabits/sciencehabits/internal/client/repositories/users"
)

// Repositories bundles the local stores plus the DB handle services need for
// cross-repository transactions.
type Repositories struct {
	DB       *sql.DB
	Users    users.Repository
	Habits   habits.Repository
	Progress progress.Repository
	Research research.Repository
	Queue    queue.Repository
	Meta     meta.Repository
}

// RunMigrations applies all pending embedded schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (creating if necessary) the local SQLite database,
// migrates the schema and wires the repositories.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Repositories{
		DB:       db,
		Users:    users.NewSQLiteRepository(db),
		Habits:   habits.NewSQLiteRepository(db),
		Progress: progress.NewSQLiteRepository(db),
		Research: research.NewSQLiteRepository(db),
		Queue:    queue.NewSQLiteRepository(db),
		Meta:     meta.NewSQLiteRepository(db),
	}, nil
}
