package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/sciencehabits/sciencehabits/internal/client/client"
	"github.com/sciencehabits/sciencehabits/internal/client/config"
	"github.com/sciencehabits/sciencehabits/internal/client/services"
	"github.com/sciencehabits/sciencehabits/internal/logging"
)

// App wires the tracker services behind the interactive REPL.
type App struct {
	config  *config.Config
	log     logging.Logger
	repos   *client.Repositories
	bus     *services.Bus
	auth    services.AuthService
	users   services.UserService
	habits  services.HabitService
	ledger  services.LedgerService
	catalog services.CatalogService
	queue   services.QueueService
	agent   *services.SyncAgent
	tracker *services.Tracker

	userName string
	reader   *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()

	logFile, err := os.OpenFile("sciencehabits.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	log := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(logFile, nil)))

	repos, err := client.InitDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}

	apiClient := client.NewHTTPClient(c.ServerEndpointAddr)

	bus := services.NewBus()
	auth := services.NewAuthService(apiClient, repos.Meta, log)
	users := services.NewUserService(repos.DB)
	habits := services.NewHabitService(repos.DB)
	ledger := services.NewLedgerService(repos.DB)
	catalog := services.NewCatalogService(repos.DB, apiClient, log)
	queue := services.NewQueueService(repos.Queue, bus, log, c.MaxRetryAttempts)
	dispatcher := services.NewDispatcher(ledger, habits, users, apiClient, auth, log,
		c.RetryBackoff, c.MaxRetryAttempts)
	agent := services.NewSyncAgent(apiClient, queue, dispatcher, bus, log,
		c.OnlineCheckInterval, c.AutoSyncInterval)
	tracker := services.NewTracker(agent, queue, dispatcher, log)

	return &App{
		config:  c,
		log:     log,
		repos:   repos,
		bus:     bus,
		auth:    auth,
		users:   users,
		habits:  habits,
		ledger:  ledger,
		catalog: catalog,
		queue:   queue,
		agent:   agent,
		tracker: tracker,
		reader:  bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.repos.DB.Close()

	go a.agent.Run(ctx)

	a.Root(ctx)
}
