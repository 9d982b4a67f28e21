// Package inboxes provides the PostgreSQL-backed repository for inboxes.
package inboxes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/saythanks/saythanks/internal/common"
	"github.com/saythanks/saythanks/internal/dbx"
	"github.com/saythanks/saythanks/internal/server/models"
)

// Constraint names from the inboxes migration.
const (
	SlugConstraint   = "inboxes_slug_key"
	AuthIDConstraint = "inboxes_auth_id_key"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the mapping. Flags take their schema defaults. The driver
// error is returned wrapped so callers can classify unique violations.
func (r *PostgresRepository) Create(ctx context.Context, inbox *models.Inbox) error {
	query :=
		`INSERT INTO inboxes (slug, auth_id, email)
		 VALUES ($1, $2, $3)
		 RETURNING email_enabled, enabled`

	err := r.db.QueryRowContext(ctx, query, inbox.Slug, inbox.AuthID, inbox.Email).
		Scan(&inbox.EmailEnabled, &inbox.Enabled)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (*models.Inbox, error) {
	return r.get(ctx, `WHERE slug = $1`, slug)
}

func (r *PostgresRepository) GetByAuthID(ctx context.Context, authID string) (*models.Inbox, error) {
	return r.get(ctx, `WHERE auth_id = $1`, authID)
}

func (r *PostgresRepository) get(ctx context.Context, where string, arg string) (*models.Inbox, error) {
	query := `SELECT slug, auth_id, email, email_enabled, enabled FROM inboxes ` + where

	inbox := &models.Inbox{}
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&inbox.Slug, &inbox.AuthID, &inbox.Email, &inbox.EmailEnabled, &inbox.Enabled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return inbox, nil
}

// AuthID returns the account id linked to slug.
func (r *PostgresRepository) AuthID(ctx context.Context, slug string) (string, error) {
	var authID string
	err := r.scalar(ctx, `SELECT auth_id FROM inboxes WHERE slug = $1`, slug, &authID)
	return authID, err
}

func (r *PostgresRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var ok bool
	err := r.scalar(ctx, `SELECT EXISTS (SELECT 1 FROM inboxes WHERE slug = $1)`, slug, &ok)
	return ok, err
}

func (r *PostgresRepository) ExistsByAuthID(ctx context.Context, authID string) (bool, error) {
	var ok bool
	err := r.scalar(ctx, `SELECT EXISTS (SELECT 1 FROM inboxes WHERE auth_id = $1)`, authID, &ok)
	return ok, err
}

// Email returns the locally stored contact address.
func (r *PostgresRepository) Email(ctx context.Context, slug string) (string, error) {
	var email string
	err := r.scalar(ctx, `SELECT email FROM inboxes WHERE slug = $1`, slug, &email)
	return email, err
}

func (r *PostgresRepository) EmailEnabled(ctx context.Context, slug string) (bool, error) {
	var ok bool
	err := r.scalar(ctx, `SELECT email_enabled FROM inboxes WHERE slug = $1`, slug, &ok)
	return ok, err
}

func (r *PostgresRepository) Enabled(ctx context.Context, slug string) (bool, error) {
	var ok bool
	err := r.scalar(ctx, `SELECT enabled FROM inboxes WHERE slug = $1`, slug, &ok)
	return ok, err
}

func (r *PostgresRepository) SetEmailEnabled(ctx context.Context, slug string, enabled bool) error {
	return r.update(ctx, `UPDATE inboxes SET email_enabled = $2 WHERE slug = $1`, slug, enabled)
}

func (r *PostgresRepository) SetEnabled(ctx context.Context, slug string, enabled bool) error {
	return r.update(ctx, `UPDATE inboxes SET enabled = $2 WHERE slug = $1`, slug, enabled)
}

func (r *PostgresRepository) scalar(ctx context.Context, query, arg string, dst any) error {
	err := r.db.QueryRowContext(ctx, query, arg).Scan(dst)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) update(ctx context.Context, query, slug string, value bool) error {
	res, err := r.db.ExecContext(ctx, query, slug, value)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
