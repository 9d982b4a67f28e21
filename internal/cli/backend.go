// Package cli implements the saythanks operator command line.
package cli

import (
	"context"
	"io"

	"github.com/saythanks/saythanks/internal/server"
	"github.com/saythanks/saythanks/internal/server/config"
	"github.com/saythanks/saythanks/internal/server/models"
	"github.com/saythanks/saythanks/internal/server/services"
)

// Inboxes is the inbox surface the commands drive.
type Inboxes interface {
	Register(ctx context.Context, slug, accountID, email string) (services.RegisterResult, error)
	RegisterWithToken(ctx context.Context, slug, idToken string) (services.RegisterResult, error)
	Get(ctx context.Context, slug string) (*models.Inbox, error)
	IsEnabled(ctx context.Context, slug string) (bool, error)
	IsEmailEnabled(ctx context.Context, slug string) (bool, error)
	EnableAccount(ctx context.Context, slug string) error
	DisableAccount(ctx context.Context, slug string) error
	EnableEmail(ctx context.Context, slug string) error
	DisableEmail(ctx context.Context, slug string) error
	GetEmail(ctx context.Context, slug string) (string, error)
	ResolvedEmail(ctx context.Context, slug string) (string, error)
	SubmitNote(ctx context.Context, slug, body, byline, audioPath string) (*models.Note, error)
	SubmitVoiceNote(ctx context.Context, slug, body, byline string, recording io.Reader, contentType string) (*models.Note, error)
	NotifyOwner(ctx context.Context, slug string, note *models.Note, topic string) (bool, error)
	Notes(ctx context.Context, slug string, page, pageSize int) (*models.NotePage, error)
	SearchNotes(ctx context.Context, slug, term string, page, pageSize int) (*models.NotePage, error)
	ArchivedNotes(ctx context.Context, slug string) ([]*models.Note, error)
	Export(ctx context.Context, slug, format string) ([]byte, error)
}

// Notes is the single-note surface the commands drive.
type Notes interface {
	Fetch(ctx context.Context, id string) (*models.Note, error)
	Archive(ctx context.Context, note *models.Note) error
	Notify(ctx context.Context, note *models.Note, email, topic, audioPath string) error
}

// Backend is everything a command needs for one invocation.
type Backend interface {
	Inboxes() Inboxes
	Notes() Notes
	Migrate(ctx context.Context, target int64) error
	SchemaVersion(ctx context.Context) (int64, error)
	Close() error
}

// Opener builds a Backend from the resolved configuration.
type Opener func(ctx context.Context, cfg *config.Config) (Backend, error)

type appBackend struct {
	app *server.App
}

func (b appBackend) Inboxes() Inboxes { return b.app.Inboxes }
func (b appBackend) Notes() Notes     { return b.app.Notes }
func (b appBackend) Close() error     { return b.app.Close() }

func (b appBackend) Migrate(ctx context.Context, target int64) error {
	return b.app.Migrate(ctx, target)
}

func (b appBackend) SchemaVersion(ctx context.Context) (int64, error) {
	return b.app.SchemaVersion(ctx)
}

// OpenApp is the production Opener: a server.App over PostgreSQL.
func OpenApp(ctx context.Context, cfg *config.Config) (Backend, error) {
	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return appBackend{app: app}, nil
}
