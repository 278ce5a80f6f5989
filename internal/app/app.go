package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"questTracker/internal/appstate"
	"questTracker/internal/config"
	"questTracker/internal/handlers"
	"questTracker/internal/legacy"
	"questTracker/internal/logger"
	"questTracker/internal/middleware"
	"questTracker/internal/repository/quest/inmemory"
	"questTracker/internal/repository/quest/postgres"
	"questTracker/internal/repository/quest/sqlite"
	"questTracker/internal/service"
	"questTracker/internal/worker"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Repository is a quest store the app owns and closes.
type Repository interface {
	service.QuestRepository
	Close() error
}

type App struct {
	config     *config.Config
	server     *http.Server
	router     chi.Router
	repository Repository
	service    *service.QuestService
	loop       *appstate.Loop
	state      *appstate.State
	worker     *worker.SnapshotWorker
	shutdowns  []func() // run in reverse order by Close
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

// Init sets up logging, the configured store and the service. Commands that
// do not serve HTTP stop here.
func (a *App) Init(ctx context.Context) error {
	err := logger.InitWithOptions(logger.Options{
		Development: a.config.Logging.Development,
		Level:       a.config.Logging.Level,
		File:        a.config.Logging.File,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Debug("App: Flushing logs")
		logger.Sync()
	})

	repo, err := a.openRepository(ctx)
	if err != nil {
		return err
	}
	a.repository = repo
	a.shutdowns = append(a.shutdowns, func() {
		if err := repo.Close(); err != nil {
			logger.Warn("App: Could not close repository", zap.Error(err))
		}
	})

	a.service = service.NewQuestService(repo,
		service.WithCacheTTL(a.config.Progress.CacheTTL),
		service.WithImporter(legacy.NewImporter(a.config.Import)),
	)

	logger.Info("App: Initialized", zap.String("repository", a.config.Repository.Type))
	return nil
}

func (a *App) openRepository(ctx context.Context) (Repository, error) {
	db := a.config.Database
	switch a.config.Repository.Type {
	case config.RepositorySQLite:
		return sqlite.New(db.Path)
	case config.RepositoryPostgres:
		return postgres.New(ctx, db.URL, postgres.WithPoolLimits(db.MaxConnections, db.MinConnections, db.IdleTimeout))
	case config.RepositoryMemory:
		return a.openMemory(ctx)
	}
	return nil, fmt.Errorf("unknown repository type %q", a.config.Repository.Type)
}

// openMemory loads the legacy files into a memory store that writes status
// changes back to the status file.
func (a *App) openMemory(ctx context.Context) (Repository, error) {
	statusPath := a.config.Repository.StatusFile
	if statusPath == "" {
		statusPath = a.config.Import.StatusFile
	}
	sf, err := legacy.OpenStatusFile(statusPath)
	if err != nil {
		return nil, fmt.Errorf("open status file: %w", err)
	}
	res, err := legacy.NewImporter(a.config.Import).LoadFrom(sf, a.config.Import.Spreadsheet)
	if err != nil {
		return nil, fmt.Errorf("load legacy data: %w", err)
	}

	storage := inmemory.NewQuestStorage(inmemory.WithStatusSaver(sf))
	now := time.Now()
	for _, q := range res.Quests {
		q.LastModified = now
	}
	if err := storage.UpsertAll(ctx, res.Quests); err != nil {
		return nil, err
	}
	return storage, nil
}

func (a *App) Service() *service.QuestService {
	return a.service
}

func (a *App) Config() *config.Config {
	return a.config
}

// Handler builds the event loop, shared state and router. The loop runs until
// ctx is cancelled.
func (a *App) Handler(ctx context.Context) http.Handler {
	a.loop = appstate.NewLoop(64)
	go a.loop.Run(ctx)
	a.state = appstate.NewState(a.loop, a.service, appstate.WithDebounce(a.config.Search.Debounce))

	a.router = handlers.NewRouter(
		handlers.NewQuestHandler(a.service, a.state),
		middleware.RequestID,
		middleware.Logging,
		chimiddleware.Recoverer,
		middleware.RateLimit(a.config.Server.RateLimit),
	)
	return a.router
}

// Serve runs the HTTP API, and the snapshot worker when enabled, until ctx is
// cancelled, then shuts the server down gracefully.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.server = &http.Server{
		Addr:              a.config.GetServerAddr(),
		Handler:           a.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if a.config.Backup.Enabled {
		a.worker = worker.NewSnapshotWorker(a.service, a.config.Backup)
		go a.worker.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP: Server started", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP: Server failed", err)
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("HTTP: Shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer stop()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP: Graceful shutdown failed", err)
		return fmt.Errorf("shutdown: %w", err)
	}
	a.loop.Stop()
	return nil
}

// Close releases everything Init opened.
func (a *App) Close() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	a.shutdowns = nil
}
