// Package notes provides the PostgreSQL-backed repository for thank-you notes.
package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/saythanks/saythanks/internal/common"
	"github.com/saythanks/saythanks/internal/dbx"
	"github.com/saythanks/saythanks/internal/server/migrations"
	"github.com/saythanks/saythanks/internal/server/models"
)

// PostgresRepository implements note storage over a dbx.DBTX (*sql.DB, *sql.Conn or *sql.Tx).
type PostgresRepository struct {
	db   dbx.DBTX
	caps migrations.Capabilities
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
// caps decides whether notes.audio_path is read and written.
func NewPostgresRepository(db dbx.DBTX, caps migrations.Capabilities) *PostgresRepository {
	return &PostgresRepository{db: db, caps: caps}
}

// columns is the select list shared by every note query, with i.slug last.
func (r *PostgresRepository) columns() string {
	audio := "NULL::text"
	if r.caps.AudioPath {
		audio = "n.audio_path"
	}
	return "n.uuid, n.body, n.byline, n.archived, n.timestamp, " + audio + ", i.slug"
}

const fromNotes = ` FROM notes n JOIN inboxes i ON i.auth_id = n.inboxes_auth_id `

func scanNote(row interface{ Scan(...any) error }) (*models.Note, error) {
	var (
		n     models.Note
		audio sql.NullString
	)
	if err := row.Scan(&n.ID, &n.Body, &n.Byline, &n.Archived, &n.Timestamp, &audio, &n.Inbox); err != nil {
		return nil, err
	}
	n.AudioPath = audio.String
	return &n, nil
}

// GetByID loads a note by UUID. A missing row yields common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Note, error) {
	query := `SELECT ` + r.columns() + fromNotes + `WHERE n.uuid = $1`

	n, err := scanNote(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// Exists reports whether a note with the given UUID is stored.
func (r *PostgresRepository) Exists(ctx context.Context, id string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM notes WHERE uuid = $1)`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

// Create inserts the note's core fields for the inbox with authID, plus
// audio_path when the schema has it and the note carries one. ID and
// Timestamp are filled from the inserted row.
func (r *PostgresRepository) Create(ctx context.Context, note *models.Note, authID string) error {
	cols := []string{"body", "byline", "inboxes_auth_id"}
	args := []any{note.Body, note.Byline, authID}
	if r.caps.AudioPath && note.AudioPath != "" {
		cols = append(cols, "audio_path")
		args = append(args, note.AudioPath)
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := `INSERT INTO notes (` + strings.Join(cols, ", ") + `)
		VALUES (` + strings.Join(placeholders, ", ") + `)
		RETURNING uuid, timestamp`

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&note.ID, &note.Timestamp); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Archive sets archived on the note. Archiving an archived note is a no-op
// success; an unknown id yields common.ErrorNotFound.
func (r *PostgresRepository) Archive(ctx context.Context, id string) error {
	query := `UPDATE notes SET archived = TRUE WHERE uuid = $1`

	res, err := r.db.ExecContext(ctx, query, id)
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

// CountActive counts the inbox's non-archived notes.
func (r *PostgresRepository) CountActive(ctx context.Context, authID string) (int, error) {
	query := `SELECT COUNT(*) FROM notes WHERE inboxes_auth_id = $1 AND archived = FALSE`
	return r.count(ctx, query, authID)
}

// ListActive returns one page of the inbox's non-archived notes.
func (r *PostgresRepository) ListActive(ctx context.Context, authID string, limit, offset int) ([]*models.Note, error) {
	query := `SELECT ` + r.columns() + fromNotes + `
		WHERE n.inboxes_auth_id = $1 AND n.archived = FALSE
		ORDER BY n.timestamp DESC
		LIMIT $2 OFFSET $3`
	return r.list(ctx, query, authID, limit, offset)
}

// searchFilter matches term as a literal, case-insensitive substring of the
// body or byline; LIKE wildcards in term carry no meaning.
const searchFilter = `(strpos(lower(n.body), lower($2)) > 0 OR strpos(lower(n.byline), lower($2)) > 0)`

// CountSearch counts the inbox's non-archived notes matching term.
func (r *PostgresRepository) CountSearch(ctx context.Context, authID, term string) (int, error) {
	query := `SELECT COUNT(*) FROM notes n
		WHERE n.inboxes_auth_id = $1 AND n.archived = FALSE AND ` + searchFilter
	return r.count(ctx, query, authID, term)
}

// Search returns one page of the inbox's non-archived notes matching term.
func (r *PostgresRepository) Search(ctx context.Context, authID, term string, limit, offset int) ([]*models.Note, error) {
	query := `SELECT ` + r.columns() + fromNotes + `
		WHERE n.inboxes_auth_id = $1 AND n.archived = FALSE AND ` + searchFilter + `
		ORDER BY n.timestamp DESC
		LIMIT $3 OFFSET $4`
	return r.list(ctx, query, authID, term, limit, offset)
}

// ListAllActive returns every non-archived note of the inbox.
func (r *PostgresRepository) ListAllActive(ctx context.Context, authID string) ([]*models.Note, error) {
	query := `SELECT ` + r.columns() + fromNotes + `
		WHERE n.inboxes_auth_id = $1 AND n.archived = FALSE
		ORDER BY n.timestamp DESC`
	return r.list(ctx, query, authID)
}

// ListArchived returns every archived note of the inbox.
func (r *PostgresRepository) ListArchived(ctx context.Context, authID string) ([]*models.Note, error) {
	query := `SELECT ` + r.columns() + fromNotes + `
		WHERE n.inboxes_auth_id = $1 AND n.archived = TRUE
		ORDER BY n.timestamp DESC`
	return r.list(ctx, query, authID)
}

func (r *PostgresRepository) count(ctx context.Context, query string, args ...any) (int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return total, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Note, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select notes: %w", err)
	}
	defer rows.Close()

	result := []*models.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
