package notes

import (
	"context"

	"github.com/saythanks/saythanks/internal/server/models"
)

// Repository persists notes. Listing methods filter by the owning inbox's
// account id and return rows newest first; ties are left to the engine.
type Repository interface {
	GetByID(ctx context.Context, id string) (*models.Note, error)
	Exists(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, note *models.Note, authID string) error
	Archive(ctx context.Context, id string) error
	CountActive(ctx context.Context, authID string) (int, error)
	ListActive(ctx context.Context, authID string, limit, offset int) ([]*models.Note, error)
	CountSearch(ctx context.Context, authID, term string) (int, error)
	Search(ctx context.Context, authID, term string, limit, offset int) ([]*models.Note, error)
	ListAllActive(ctx context.Context, authID string) ([]*models.Note, error)
	ListArchived(ctx context.Context, authID string) ([]*models.Note, error)
}
