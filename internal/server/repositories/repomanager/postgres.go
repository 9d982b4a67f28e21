// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/saythanks/saythanks/internal/dbx"
	"github.com/saythanks/saythanks/internal/server/migrations"
	"github.com/saythanks/saythanks/internal/server/repositories/inboxes"
	"github.com/saythanks/saythanks/internal/server/repositories/notes"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes schema migration hooks. Capabilities are fixed at construction.
type PostgresRepositoryManager struct {
	caps migrations.Capabilities
}

// Inboxes returns an inboxes.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Inboxes(db dbx.DBTX) inboxes.Repository {
	return inboxes.NewPostgresRepository(db)
}

// Notes returns a notes.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Notes(db dbx.DBTX) notes.Repository {
	return notes.NewPostgresRepository(db, m.caps)
}

// Capabilities reports the optional schema features resolved at startup.
func (m *PostgresRepositoryManager) Capabilities() migrations.Capabilities {
	return m.caps
}

// Seams for testing goose.
var (
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return goose.UpContext(ctx, db, dir, opts...)
	}
	gooseUpToContext = func(ctx context.Context, db *sql.DB, dir string, version int64, opts ...goose.OptionsFunc) error {
		return goose.UpToContext(ctx, db, dir, version, opts...)
	}
	gooseGetDBVersionContext = func(ctx context.Context, db *sql.DB) (int64, error) {
		return goose.GetDBVersionContext(ctx, db)
	}
)

func setupGoose() error {
	goose.SetBaseFS(migrations.Migrations)
	return goose.SetDialect("pgx")
}

// RunMigrations applies the embedded migrations. A positive target stops at
// that version; zero applies everything.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB, target int64) error {
	if err := setupGoose(); err != nil {
		return err
	}
	if target > 0 {
		return gooseUpToContext(ctx, db, ".", target)
	}
	return gooseUpContext(ctx, db, ".")
}

// SchemaVersion returns the highest applied migration version.
func (m *PostgresRepositoryManager) SchemaVersion(ctx context.Context, db *sql.DB) (int64, error) {
	if err := setupGoose(); err != nil {
		return 0, err
	}
	v, err := gooseGetDBVersionContext(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("schema version: %w", err)
	}
	return v, nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager
// and resolves schema capabilities once from the applied migration version.
func NewPostgresRepositoryManager(ctx context.Context, db *sql.DB) (RepositoryManager, error) {
	m := &PostgresRepositoryManager{}

	v, err := m.SchemaVersion(ctx, db)
	if err != nil {
		return nil, err
	}
	m.caps = migrations.CapabilitiesFor(v)
	return m, nil
}

// NewPostgresRepositoryManagerWithCapabilities skips version detection.
func NewPostgresRepositoryManagerWithCapabilities(caps migrations.Capabilities) RepositoryManager {
	return &PostgresRepositoryManager{caps: caps}
}
