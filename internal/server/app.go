// Package server initializes and runs the application: it selects the
// metadata and blob backends from configuration, wires the verification
// service into the HTTP API, and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/akulikov/driveguard/internal/digest"
	"github.com/akulikov/driveguard/internal/logging"
	"github.com/akulikov/driveguard/internal/server/blob"
	"github.com/akulikov/driveguard/internal/server/config"
	httpapi "github.com/akulikov/driveguard/internal/server/http"
	"github.com/akulikov/driveguard/internal/server/repositories/records"
	"github.com/akulikov/driveguard/internal/server/repositories/repomanager"
	"github.com/akulikov/driveguard/internal/server/services"
)

// OpenRecords opens the metadata backend named in the configuration. The
// returned closers release the backend's resources and must be called in
// reverse order.
func OpenRecords(ctx context.Context, cfg *config.Config) (records.Repository, []func() error, error) {
	switch cfg.MetadataBackend {
	case config.MetadataBackendPostgres:
		db, err := sql.Open("pgx", cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("db init error: %w", err)
		}

		m := repomanager.NewPostgresRepositoryManager()
		if err := m.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrations error: %w", err)
		}
		return m.Records(db), []func() error{db.Close}, nil

	case config.MetadataBackendBolt:
		repo, err := records.NewBoltRepository(cfg.BoltPath)
		if err != nil {
			return nil, nil, fmt.Errorf("bolt init error: %w", err)
		}
		return repo, []func() error{repo.Close}, nil

	case config.MetadataBackendMemory:
		return records.NewMemoryRepository(), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown metadata backend: %q", cfg.MetadataBackend)
	}
}

// OpenBlobs opens the blob backend named in the configuration.
func OpenBlobs(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	switch cfg.BlobBackend {
	case config.BlobBackendS3:
		return blob.NewS3Store(ctx, blob.S3Config{
			User:         cfg.S3RootUser,
			Password:     cfg.S3RootPassword,
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
		})

	case config.BlobBackendMemory:
		return blob.NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unknown blob backend: %q", cfg.BlobBackend)
	}
}

// NewVerifier wires the configured backends into a verification service.
func NewVerifier(ctx context.Context, cfg *config.Config, logger logging.Logger) (*services.Verifier, []func() error, error) {
	engine, err := digest.New(cfg.HashAlgorithm)
	if err != nil {
		return nil, nil, err
	}

	repo, closers, err := OpenRecords(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	blobs, err := OpenBlobs(ctx, cfg)
	if err != nil {
		closeAll(closers, logger)
		return nil, nil, err
	}

	verifier := services.NewVerifier(repo, blobs, engine, logger,
		cfg.MaxUploadSizeBytes, cfg.VerifyWorkers)
	return verifier, closers, nil
}

func closeAll(closers []func() error, logger logging.Logger) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			logger.Error(context.Background(), "close error", "error", err)
		}
	}
}

type App struct {
	config   *config.Config
	logger   logging.Logger
	verifier *services.Verifier
	closers  []func() error
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	verifier, closers, err := NewVerifier(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &App{config: cfg, logger: logger, verifier: verifier, closers: closers}, nil
}

// Close releases backend resources in reverse acquisition order.
func (app *App) Close() {
	closeAll(app.closers, app.logger)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves the HTTP API until the context is cancelled or a termination
// signal arrives.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.Close()

	app.logger.Info(ctx, "starting app", "addr", app.config.EndpointAddrHTTP,
		"metadata_backend", app.config.MetadataBackend, "blob_backend", app.config.BlobBackend)

	app.initSignalHandler(cancelFunc)

	handlers := httpapi.NewHandlers(app.verifier, app.logger)
	router := httpapi.NewRouter(handlers, []byte(app.config.SecretKey), app.logger)
	srv := httpapi.NewServer(app.config.EndpointAddrHTTP, router, app.logger)

	if err := srv.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}
