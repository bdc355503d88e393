// Package server initializes and runs the companion server: it opens the
// PostgreSQL pool, applies migrations, wires the services and starts the
// HTTP API with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sciencehabits/sciencehabits/internal/logging"
	"github.com/sciencehabits/sciencehabits/internal/server/config"
	"github.com/sciencehabits/sciencehabits/internal/server/httpapi"
	"github.com/sciencehabits/sciencehabits/internal/server/repositories/repomanager"
	"github.com/sciencehabits/sciencehabits/internal/server/services"
)

// tokenPruneInterval is how often expired refresh tokens are removed.
const tokenPruneInterval = time.Hour

type App struct {
	config         *config.Config
	logger         logging.Logger
	db             *sql.DB
	userService    *services.UserService
	contentService *services.ContentService
	syncService    *services.SyncService
}

func NewApp(c *config.Config) (*App, error) {
	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return &App{
		config:         c,
		logger:         logger,
		db:             db,
		userService:    services.NewUserService(db, rm, c),
		contentService: services.NewContentService(db, rm, c),
		syncService:    services.NewSyncService(db, rm),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.userService, app.contentService, app.syncService, app.config, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// pruneTokens periodically deletes expired refresh tokens.
func (app *App) pruneTokens(ctx context.Context) {
	ticker := time.NewTicker(tokenPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.userService.PruneExpiredTokens(ctx)
			if err != nil {
				app.logger.Error(ctx, "token prune failed", "error", err)
				continue
			}
			if n > 0 {
				app.logger.Info(ctx, "pruned expired refresh tokens", "count", n)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	go app.pruneTokens(ctx)

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "error closing db", "error", err)
	}
}
