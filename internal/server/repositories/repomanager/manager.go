package repomanager

import (
	"context"
	"database/sql"

	"github.com/saythanks/saythanks/internal/dbx"
	"github.com/saythanks/saythanks/internal/server/migrations"
	"github.com/saythanks/saythanks/internal/server/repositories/inboxes"
	"github.com/saythanks/saythanks/internal/server/repositories/notes"
)

// RepositoryManager vends repositories bound to a caller-chosen handle, so a
// service can run several statements on one connection or transaction.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB, target int64) error
	SchemaVersion(ctx context.Context, db *sql.DB) (int64, error)
	Capabilities() migrations.Capabilities
	Inboxes(db dbx.DBTX) inboxes.Repository
	Notes(db dbx.DBTX) notes.Repository
}
