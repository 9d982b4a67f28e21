package inboxes

import (
	"context"

	"github.com/saythanks/saythanks/internal/server/models"
)

// Repository persists the slug ↔ account id ↔ email mapping and the
// per-inbox flags.
type Repository interface {
	Create(ctx context.Context, inbox *models.Inbox) error
	GetBySlug(ctx context.Context, slug string) (*models.Inbox, error)
	GetByAuthID(ctx context.Context, authID string) (*models.Inbox, error)
	AuthID(ctx context.Context, slug string) (string, error)
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
	ExistsByAuthID(ctx context.Context, authID string) (bool, error)
	Email(ctx context.Context, slug string) (string, error)
	EmailEnabled(ctx context.Context, slug string) (bool, error)
	Enabled(ctx context.Context, slug string) (bool, error)
	SetEmailEnabled(ctx context.Context, slug string, enabled bool) error
	SetEnabled(ctx context.Context, slug string, enabled bool) error
}
