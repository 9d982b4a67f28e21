// Package server wires configuration, storage and collaborators into the
// note and inbox services.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/saythanks/saythanks/internal/logging"
	"github.com/saythanks/saythanks/internal/server/audio"
	"github.com/saythanks/saythanks/internal/server/config"
	"github.com/saythanks/saythanks/internal/server/identity"
	"github.com/saythanks/saythanks/internal/server/metrics"
	"github.com/saythanks/saythanks/internal/server/migrations"
	"github.com/saythanks/saythanks/internal/server/notify"
	"github.com/saythanks/saythanks/internal/server/repositories/repomanager"
	"github.com/saythanks/saythanks/internal/server/services"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Seams for tests.
var (
	sqlOpen = sql.Open

	newRepositoryManager = repomanager.NewPostgresRepositoryManager

	newAudioStore = func(ctx context.Context, opts audio.Options) (audio.Store, error) {
		return audio.NewS3Store(ctx, opts)
	}

	newIdentityProvider = func(domain, token string) (identity.Provider, error) {
		return identity.NewAuth0Provider(domain, token)
	}

	logOutput io.Writer = os.Stderr
)

// App owns the database pool and the services built on it.
type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	audio       audio.Store
	identity    identity.Provider
	notifier    notify.Notifier
	metrics     *metrics.Metrics

	Notes   *services.NoteService
	Inboxes *services.InboxService
}

// NewApp opens the database, optionally migrates it, resolves schema
// capabilities and builds the services. Close releases the pool.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(logOutput, logging.Options{
		Backend: c.LogBackend,
		Format:  c.LogFormat,
		Level:   c.LogLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	db, err := sqlOpen("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	app := &App{
		config: c,
		logger: logger,
		db:     db,
		notifier: notify.NewSMTPNotifier(c.SMTPHost, c.SMTPPort, c.SMTPUser, c.SMTPPassword, c.MailFrom,
			notify.WithRateLimit(c.SMTPRateLimit, 1)),
		metrics: metrics.New(),
	}

	if c.S3RootUser != "" && c.S3Bucket != "" {
		st, err := newAudioStore(ctx, audio.Options{
			Region:      c.S3Region,
			AccessKey:   c.S3RootUser,
			SecretKey:   c.S3RootPassword,
			Bucket:      c.S3Bucket,
			Endpoint:    c.S3BaseEndpoint,
			URLValidity: c.AudioURLValidityDuration,
		})
		if err != nil {
			db.Close()
			return nil, err
		}
		app.audio = st
	} else {
		logger.Info(ctx, "no S3 credentials configured, voice notes disabled")
	}

	if c.Auth0Domain != "" && c.Auth0Token != "" {
		p, err := newIdentityProvider(c.Auth0Domain, c.Auth0Token)
		if err != nil {
			db.Close()
			return nil, err
		}
		app.identity = p
	} else {
		logger.Info(ctx, "no Auth0 credentials configured, email resolution disabled")
	}

	if c.MigrateOnStart {
		if err := app.Migrate(ctx, 0); err != nil {
			db.Close()
			return nil, err
		}
		return app, nil
	}

	if err := app.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return app, nil
}

// init resolves schema capabilities and (re)builds the services.
func (app *App) init(ctx context.Context) error {
	rm, err := newRepositoryManager(ctx, app.db)
	if err != nil {
		return fmt.Errorf("repository init error: %w", err)
	}
	app.repomanager = rm

	app.logger.Info(ctx, "schema capabilities resolved", "audio_path", rm.Capabilities().AudioPath)

	app.Notes = services.NewNoteService(app.db, rm, app.notifier, app.audio, app.logger, app.metrics)
	app.Inboxes = services.NewInboxService(app.db, rm, app.Notes, app.identity, app.config.IDTokenSecret,
		app.logger, app.metrics)
	return nil
}

// Migrate applies migrations up to target (zero means latest) and rebuilds
// the services against the new schema.
func (app *App) Migrate(ctx context.Context, target int64) error {
	rm := app.repomanager
	if rm == nil {
		rm = repomanager.NewPostgresRepositoryManagerWithCapabilities(migrations.Capabilities{})
	}
	if err := rm.RunMigrations(ctx, app.db, target); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return app.init(ctx)
}

// SchemaVersion reports the applied migration version.
func (app *App) SchemaVersion(ctx context.Context) (int64, error) {
	return app.repomanager.SchemaVersion(ctx, app.db)
}

// Logger returns the application logger.
func (app *App) Logger() logging.Logger {
	return app.logger
}

// Metrics returns the service counters.
func (app *App) Metrics() *metrics.Metrics {
	return app.metrics
}

// Close releases the database pool and, if configured, dumps the counters
// to the metrics textfile.
func (app *App) Close() error {
	var dumpErr error
	if app.config.MetricsTextfile != "" {
		if dumpErr = app.metrics.WriteTextfile(app.config.MetricsTextfile); dumpErr != nil {
			dumpErr = fmt.Errorf("metrics dump error: %w", dumpErr)
		}
	}
	if err := app.db.Close(); err != nil {
		return err
	}
	return dumpErr
}

// WithSignals returns a context canceled on SIGINT, SIGTERM or SIGQUIT.
func WithSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
}
