// Package app wires the shared resources of gulp (catalog, object storage,
// wiki client, ingestion pipeline, list manager) and runs the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	httpapi "github.com/gulp-tools/gulp/internal/api/http"
	"github.com/gulp-tools/gulp/internal/catalog"
	"github.com/gulp-tools/gulp/internal/config"
	"github.com/gulp-tools/gulp/internal/list"
	"github.com/gulp-tools/gulp/internal/logging"
	"github.com/gulp-tools/gulp/internal/mediawiki"
	"github.com/gulp-tools/gulp/internal/observability"
	"github.com/gulp-tools/gulp/internal/server"
	"github.com/gulp-tools/gulp/internal/source"
	"github.com/gulp-tools/gulp/internal/storage"
	"github.com/gulp-tools/gulp/internal/upload"
)

// sourceStatsWindow is how long an idle source kind stays in the import stats.
const sourceStatsWindow = 24 * time.Hour

// App owns the shared resources. Commands build one, use its components and
// Close it; the serve command additionally runs Serve.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	Catalog  *catalog.SQLCatalog
	Storage  storage.ObjectStorage
	Wiki     *mediawiki.Client
	Uploads  *upload.Service
	Pipeline *source.Pipeline
	Manager  *list.Manager

	shutdown *server.ShutdownManager

	mu    sync.Mutex
	addr  string
	ready chan struct{}
}

// New resolves and validates cfg and opens every shared resource.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	logger = logging.OrDefault(logger)

	a := &App{
		cfg:      cfg,
		logger:   logger,
		ready:    make(chan struct{}),
		shutdown: server.NewShutdownManager(server.ShutdownConfig{Logger: logger}),
	}
	if err := a.initSharedResources(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) initSharedResources(ctx context.Context) error {
	var err error

	a.Catalog, err = catalog.Open(ctx, catalog.Options{
		Driver:          a.cfg.Database.Driver,
		DSN:             a.cfg.Database.DSN,
		MaxOpenConns:    a.cfg.Database.MaxOpenConns,
		MaxIdleConns:    a.cfg.Database.MaxIdleConns,
		IdleTTL:         a.cfg.Database.IdleTTL,
		ConnMaxLifetime: a.cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	a.shutdown.RegisterCloser("catalog", a.Catalog)
	a.logger.Info("catalog opened", "driver", a.cfg.Database.Driver)

	a.Storage, err = storage.New(ctx, a.cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	if a.cfg.Storage.Type == "s3" {
		a.logger.Info("storage initialized", "type", "s3", "bucket", a.cfg.Storage.S3.Bucket,
			"region", a.cfg.Storage.S3.Region, "endpoint", a.cfg.Storage.S3.Endpoint)
	} else {
		a.logger.Info("storage initialized", "type", a.cfg.Storage.Type, "path", a.cfg.Storage.Path)
	}

	a.Wiki = mediawiki.NewClient(mediawiki.Options{
		UserAgent:         a.cfg.Wiki.UserAgent,
		APIURL:            a.cfg.Wiki.APIURL,
		RequestsPerSecond: a.cfg.Wiki.RequestsPerSecond,
		Burst:             a.cfg.Wiki.Burst,
		Concurrency:       a.cfg.Wiki.Concurrency,
		Timeout:           a.cfg.Wiki.Timeout,
		Logger:            a.logger.With("component", "mediawiki"),
	})

	a.Uploads = upload.NewService(a.Catalog, a.Storage, a.logger.With("component", "upload"))
	a.Pipeline = source.NewPipeline(source.Options{
		Files:       a.Uploads,
		HTTP:        a.Wiki,
		Titles:      a.Wiki,
		Oracle:      a.Wiki,
		PagePileURL: a.cfg.Wiki.PagePileURL,
		Logger:      a.logger.With("component", "source"),
	})
	a.Manager = list.NewManager(list.Options{
		Catalog:   a.Catalog,
		Source:    a.Pipeline,
		Files:     a.Uploads,
		BatchSize: a.cfg.Ingest.BatchSize,
		Stats:     observability.NewSourceStats(sourceStatsWindow),
		Logger:    a.logger.With("component", "list"),
	})
	return nil
}

// Config returns the resolved configuration.
func (a *App) Config() *config.Config { return a.cfg }

// Handler builds the API handler with shutdown tracking in front.
func (a *App) Handler() http.Handler {
	api := httpapi.New(httpapi.Options{
		Manager:        a.Manager,
		Uploads:        a.Uploads,
		GuessLimit:     a.cfg.Ingest.GuessLimit,
		MaxUploadBytes: a.cfg.HTTP.MaxUploadMB << 20,
		Logger:         a.logger.With("component", "http"),
	})
	return api.Handler(server.ShutdownMiddleware(a.shutdown))
}

// Serve runs the HTTP API until a signal arrives, ctx is cancelled or the
// server fails, then shuts everything down.
func (a *App) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.HTTP.Addr)
	if err != nil {
		_ = a.Close()
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.HTTP.Addr, err)
	}
	a.mu.Lock()
	a.addr = ln.Addr().String()
	a.mu.Unlock()
	close(a.ready)

	srv := &http.Server{
		Handler:      a.Handler(),
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
		IdleTimeout:  a.cfg.HTTP.IdleTimeout,
	}

	serveErr := server.Start(srv, ln, a.shutdown)
	failed := make(chan error, 1)
	go func() {
		err := <-serveErr
		if err != nil {
			a.logger.Error("http server failed", "error", err)
			_ = a.shutdown.Shutdown(context.Background(), "http server failed")
		}
		failed <- err
	}()

	err = a.shutdown.ListenForSignals(ctx)
	return errors.Join(<-failed, err)
}

// Addr blocks until Serve listens and returns the bound address.
func (a *App) Addr(ctx context.Context) (string, error) {
	select {
	case <-a.ready:
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.addr, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close releases every shared resource. It is safe to call more than once.
func (a *App) Close() error {
	return a.shutdown.Shutdown(context.Background(), "closing")
}
