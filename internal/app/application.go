// Package app wires configuration, storage, the HTTP API and background jobs
// into a runnable backend.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	"github.com/bestsbot/backend/internal/config"
	"github.com/bestsbot/backend/internal/httpapi"
	"github.com/bestsbot/backend/internal/httpserver"
	"github.com/bestsbot/backend/internal/logging"
	"github.com/bestsbot/backend/internal/metrics"
	"github.com/bestsbot/backend/internal/middleware"
	"github.com/bestsbot/backend/internal/platform/migrations"
	"github.com/bestsbot/backend/internal/storage"
	"github.com/bestsbot/backend/internal/storage/jsonfile"
	"github.com/bestsbot/backend/internal/storage/memory"
	"github.com/bestsbot/backend/internal/storage/postgres"
)

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logging.Logger
	httpServer *httpserver.Server
	hub        *httpapi.Hub
	backup     *backupJob
	db         *sql.DB
}

// New constructs an application from loaded configuration.
func New(cfg *config.Config) (*Application, error) {
	log := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	store, db, fileStore, err := buildStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("configure storage: %w", err)
	}

	hub := httpapi.NewHub(log)
	api := httpapi.New(httpapi.Config{
		Store:  store,
		Logger: log,
		Hub:    hub,
	})

	var handler http.Handler = api.Router()
	handler = metrics.InstrumentHandler(handler)
	handler = middleware.LoggingMiddleware(log)(handler)
	if cfg.RateLimit.RequestsPerSecond > 0 {
		rl := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
		rl.StartCleanup(10 * time.Minute)
		handler = rl.Handler(handler)
	}
	handler = middleware.NewCORSMiddleware(cfg.CORS.AllowedOrigins).Handler(handler)

	app := &Application{
		cfg:        cfg,
		log:        log,
		httpServer: httpserver.New(cfg.Server, handler),
		hub:        hub,
		db:         db,
	}

	if cfg.Backup.Schedule != "" && fileStore != nil {
		job, err := newBackupJob(cfg.Backup, fileStore, log)
		if err != nil {
			return nil, fmt.Errorf("configure backup job: %w", err)
		}
		app.backup = job
	}

	return app, nil
}

// Run starts the HTTP server and blocks until the context is cancelled or the
// server fails.
func (a *Application) Run(ctx context.Context) error {
	if a.backup != nil {
		a.backup.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", a.httpServer.Addr()).Info("http server listening")
		if err := a.httpServer.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the server, background jobs and storage.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if a.backup != nil {
		a.backup.Stop()
	}
	a.hub.Close()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}

	return nil
}

// buildStore returns the configured store. The jsonfile store is also returned
// concretely so the backup job can snapshot it.
func buildStore(cfg *config.Config) (storage.Store, *sql.DB, *jsonfile.Store, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return memory.New(), nil, nil, nil

	case "jsonfile":
		store, err := jsonfile.Open(cfg.Storage.DataDir)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, nil, store, nil

	case "postgres":
		db, err := openDatabase(cfg.Storage)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := migrations.Apply(context.Background(), db); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("apply migrations: %w", err)
		}
		store := postgres.New(db)
		if err := store.SeedDefaultManagers(context.Background()); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("seed managers: %w", err)
		}
		return store, db, nil, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func openDatabase(cfg config.StorageConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
