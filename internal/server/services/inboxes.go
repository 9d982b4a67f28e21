package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/saythanks/saythanks/internal/common"
	"github.com/saythanks/saythanks/internal/dbx"
	"github.com/saythanks/saythanks/internal/logging"
	"github.com/saythanks/saythanks/internal/server/export"
	"github.com/saythanks/saythanks/internal/server/identity"
	"github.com/saythanks/saythanks/internal/server/metrics"
	"github.com/saythanks/saythanks/internal/server/models"
	"github.com/saythanks/saythanks/internal/server/repositories/inboxes"
	"github.com/saythanks/saythanks/internal/server/repositories/notes"
	"github.com/saythanks/saythanks/internal/server/repositories/repomanager"
)

// RegisterOutcome tells a fresh registration apart from a uniqueness conflict.
type RegisterOutcome int

const (
	RegisterCreated RegisterOutcome = iota
	RegisterAlreadyExists
)

func (o RegisterOutcome) String() string {
	if o == RegisterCreated {
		return "created"
	}
	return "already exists"
}

// RegisterResult is the outcome of InboxService.Register. For
// RegisterAlreadyExists, Inbox is the row that caused the conflict: the
// holder of the slug, or the inbox already linked to the account.
type RegisterResult struct {
	Outcome RegisterOutcome
	Inbox   *models.Inbox
}

// Created reports whether the call inserted a new inbox.
func (r RegisterResult) Created() bool { return r.Outcome == RegisterCreated }

// InboxService manages inboxes and reads their notes.
type InboxService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	notes         *NoteService
	identity      identity.Provider
	idTokenSecret []byte
	log           logging.Logger
	metrics       *metrics.Metrics
}

// NewInboxService wires an InboxService. provider may be nil, in which case
// ResolvedEmail fails with common.ErrIdentityProvider. m may be nil.
func NewInboxService(db *sql.DB, rm repomanager.RepositoryManager, noteService *NoteService,
	provider identity.Provider, idTokenSecret string, log logging.Logger, m *metrics.Metrics) *InboxService {
	if log == nil {
		log = logging.Nop{}
	}
	return &InboxService{
		db:            db,
		repomanager:   rm,
		notes:         noteService,
		identity:      provider,
		idTokenSecret: []byte(idTokenSecret),
		log:           log.With("component", "inboxes"),
		metrics:       m,
	}
}

// AuthID returns the account id linked to slug.
func (s *InboxService) AuthID(ctx context.Context, slug string) (string, error) {
	return s.repomanager.Inboxes(s.db).AuthID(ctx, slug)
}

// Get loads the stored inbox row for slug.
func (s *InboxService) Get(ctx context.Context, slug string) (*models.Inbox, error) {
	return s.repomanager.Inboxes(s.db).GetBySlug(ctx, slug)
}

// IsLinked reports whether any inbox is linked to accountID.
func (s *InboxService) IsLinked(ctx context.Context, accountID string) (bool, error) {
	return s.repomanager.Inboxes(s.db).ExistsByAuthID(ctx, accountID)
}

// Exists reports whether slug is registered.
func (s *InboxService) Exists(ctx context.Context, slug string) (bool, error) {
	return s.repomanager.Inboxes(s.db).ExistsBySlug(ctx, slug)
}

// Register links slug to accountID. The unique constraints decide conflicts:
// a violation is reported as RegisterAlreadyExists together with the
// conflicting inbox, and every other failure is returned as an error.
func (s *InboxService) Register(ctx context.Context, slug, accountID, email string) (RegisterResult, error) {
	if slug == "" || accountID == "" {
		return RegisterResult{}, fmt.Errorf("%w: slug and account id are required", common.ErrorValidation)
	}

	var result RegisterResult
	err := dbx.WithConn(ctx, s.db, func(ctx context.Context, conn dbx.DBTX) error {
		repo := s.repomanager.Inboxes(conn)

		inbox := &models.Inbox{Slug: slug, AuthID: accountID, Email: email}
		err := repo.Create(ctx, inbox)
		if err == nil {
			result = RegisterResult{Outcome: RegisterCreated, Inbox: inbox}
			return nil
		}

		constraint, ok := dbx.IsUniqueViolation(err)
		if !ok {
			return err
		}

		var existing *models.Inbox
		if constraint == inboxes.AuthIDConstraint {
			existing, err = repo.GetByAuthID(ctx, accountID)
		} else {
			existing, err = repo.GetBySlug(ctx, slug)
		}
		if err != nil {
			return fmt.Errorf("load conflicting inbox: %w", err)
		}
		result = RegisterResult{Outcome: RegisterAlreadyExists, Inbox: existing}
		return nil
	})
	if err != nil {
		s.metrics.Registration(metrics.OutcomeError)
		s.log.Error(ctx, "failed to register inbox", "slug", slug, "error", err)
		return RegisterResult{}, fmt.Errorf("%w: %w", common.ErrStorage, err)
	}

	if result.Created() {
		s.metrics.Registration(metrics.OutcomeCreated)
	} else {
		s.metrics.Registration(metrics.OutcomeConflict)
	}
	s.log.Info(ctx, "inbox registration", "slug", slug, "outcome", result.Outcome.String())
	return result, nil
}

// RegisterWithToken registers slug for the account named by a signed ID
// token. The token's email claim becomes the stored address.
func (s *InboxService) RegisterWithToken(ctx context.Context, slug, idToken string) (RegisterResult, error) {
	accountID, email, err := identity.AccountFromToken(idToken, s.idTokenSecret)
	if err != nil {
		return RegisterResult{}, err
	}
	return s.Register(ctx, slug, accountID, email)
}

// IsEmailEnabled reports whether the owner wants notes emailed.
//
// If the session's transaction was aborted the value is unknown: the fault
// is logged and common.ErrTransientStorage is returned with false.
func (s *InboxService) IsEmailEnabled(ctx context.Context, slug string) (bool, error) {
	return s.readFlag(ctx, slug, "email_enabled", inboxes.Repository.EmailEnabled)
}

// IsEnabled reports whether the inbox accepts notes. Faults are reported as
// for IsEmailEnabled.
func (s *InboxService) IsEnabled(ctx context.Context, slug string) (bool, error) {
	return s.readFlag(ctx, slug, "enabled", inboxes.Repository.Enabled)
}

func (s *InboxService) readFlag(ctx context.Context, slug, name string,
	read func(inboxes.Repository, context.Context, string) (bool, error)) (bool, error) {
	v, err := read(s.repomanager.Inboxes(s.db), ctx, slug)
	if err != nil {
		if dbx.IsInFailedTransaction(err) {
			s.metrics.FlagReadFault(name)
			s.log.Error(ctx, "flag read hit an aborted transaction", "slug", slug, "flag", name, "error", err)
			return false, fmt.Errorf("%w: %s of %q", common.ErrTransientStorage, name, slug)
		}
		return false, err
	}
	return v, nil
}

func (s *InboxService) EnableEmail(ctx context.Context, slug string) error {
	return s.repomanager.Inboxes(s.db).SetEmailEnabled(ctx, slug, true)
}

func (s *InboxService) DisableEmail(ctx context.Context, slug string) error {
	return s.repomanager.Inboxes(s.db).SetEmailEnabled(ctx, slug, false)
}

func (s *InboxService) EnableAccount(ctx context.Context, slug string) error {
	return s.repomanager.Inboxes(s.db).SetEnabled(ctx, slug, true)
}

func (s *InboxService) DisableAccount(ctx context.Context, slug string) error {
	return s.repomanager.Inboxes(s.db).SetEnabled(ctx, slug, false)
}

// SubmitNote stores a new note for slug and returns it persisted.
func (s *InboxService) SubmitNote(ctx context.Context, slug, body, byline, audioPath string) (*models.Note, error) {
	if strings.TrimSpace(body) == "" || strings.TrimSpace(byline) == "" {
		return nil, fmt.Errorf("%w: body and byline are required", common.ErrorValidation)
	}

	var opts []models.NoteOption
	if audioPath != "" {
		opts = append(opts, models.WithAudioPath(audioPath))
	}
	note := models.NewNote(slug, body, byline, opts...)
	if err := s.notes.Store(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

// SubmitVoiceNote uploads a recording to the audio store and submits a note
// that references it.
func (s *InboxService) SubmitVoiceNote(ctx context.Context, slug, body, byline string,
	recording io.Reader, contentType string) (*models.Note, error) {
	if s.notes.audio == nil {
		return nil, fmt.Errorf("%w: no audio store configured", common.ErrAudioStore)
	}
	key, err := s.notes.audio.Upload(ctx, recording, contentType)
	if err != nil {
		return nil, err
	}
	return s.SubmitNote(ctx, slug, body, byline, key)
}

// NotifyOwner emails note to the inbox owner if they opted in. It reports
// whether a message was sent. An unknown email preference counts as off.
func (s *InboxService) NotifyOwner(ctx context.Context, slug string, note *models.Note, topic string) (bool, error) {
	enabled, err := s.IsEmailEnabled(ctx, slug)
	if err != nil && !errors.Is(err, common.ErrTransientStorage) {
		return false, err
	}
	if !enabled {
		s.metrics.Notification(metrics.OutcomeSkipped)
		return false, nil
	}

	email, err := s.GetEmail(ctx, slug)
	if err != nil {
		return false, err
	}
	if err := s.notes.Notify(ctx, note, email, topic, note.AudioPath); err != nil {
		return false, err
	}
	return true, nil
}

// GetEmail returns the locally stored address. It can differ from
// ResolvedEmail if the owner changed it at the identity provider.
func (s *InboxService) GetEmail(ctx context.Context, slug string) (string, error) {
	return s.repomanager.Inboxes(s.db).Email(ctx, slug)
}

// ResolvedEmail asks the identity provider for the owner's current address.
func (s *InboxService) ResolvedEmail(ctx context.Context, slug string) (string, error) {
	if s.identity == nil {
		return "", fmt.Errorf("%w: no identity provider configured", common.ErrIdentityProvider)
	}
	authID, err := s.AuthID(ctx, slug)
	if err != nil {
		return "", err
	}
	email, err := s.identity.UserEmail(ctx, authID)
	if err != nil {
		s.metrics.IdentityLookup(metrics.OutcomeError)
		s.log.Warn(ctx, "identity provider lookup failed", "slug", slug, "error", err)
		if !errors.Is(err, common.ErrIdentityProvider) {
			err = fmt.Errorf("%w: %w", common.ErrIdentityProvider, err)
		}
		return "", err
	}
	s.metrics.IdentityLookup(metrics.OutcomeOK)
	return email, nil
}

// Notes returns one page of the inbox's non-archived notes, newest first.
func (s *InboxService) Notes(ctx context.Context, slug string, page, pageSize int) (*models.NotePage, error) {
	return s.page(ctx, slug, page, pageSize,
		func(ctx context.Context, repo notes.Repository, authID string) (int, error) {
			return repo.CountActive(ctx, authID)
		},
		func(ctx context.Context, repo notes.Repository, authID string, limit, offset int) ([]*models.Note, error) {
			return repo.ListActive(ctx, authID, limit, offset)
		})
}

// SearchNotes is Notes restricted to notes whose body or byline contains
// term, ignoring case. The term is matched literally.
func (s *InboxService) SearchNotes(ctx context.Context, slug, term string, page, pageSize int) (*models.NotePage, error) {
	return s.page(ctx, slug, page, pageSize,
		func(ctx context.Context, repo notes.Repository, authID string) (int, error) {
			return repo.CountSearch(ctx, authID, term)
		},
		func(ctx context.Context, repo notes.Repository, authID string, limit, offset int) ([]*models.Note, error) {
			return repo.Search(ctx, authID, term, limit, offset)
		})
}

// page counts and lists inside one read-only snapshot so the total and the
// rows agree.
func (s *InboxService) page(ctx context.Context, slug string, page, pageSize int,
	count func(context.Context, notes.Repository, string) (int, error),
	list func(context.Context, notes.Repository, string, int, int) ([]*models.Note, error),
) (*models.NotePage, error) {
	if page < 1 || pageSize < 1 {
		return nil, fmt.Errorf("%w: page and page size must be positive", common.ErrorValidation)
	}
	if !models.OffsetFits(page, pageSize) {
		return nil, fmt.Errorf("%w: page %d of size %d is out of range", common.ErrorValidation, page, pageSize)
	}

	result := &models.NotePage{Page: page}
	err := dbx.WithTx(ctx, s.db, dbx.ReadSnapshot, func(ctx context.Context, tx dbx.DBTX) error {
		authID, err := s.repomanager.Inboxes(tx).AuthID(ctx, slug)
		if err != nil {
			return err
		}
		repo := s.repomanager.Notes(tx)

		total, err := count(ctx, repo, authID)
		if err != nil {
			return err
		}
		rows, err := list(ctx, repo, authID, pageSize, models.Offset(page, pageSize))
		if err != nil {
			return err
		}

		result.TotalNotes = total
		result.TotalPages = models.TotalPages(total, pageSize)
		result.Notes = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Export encodes every non-archived note of the inbox in format.
func (s *InboxService) Export(ctx context.Context, slug, format string) ([]byte, error) {
	if export.ContentType(format) == "" {
		return nil, fmt.Errorf("%w: %q", common.ErrUnsupportedFormat, format)
	}

	var rows []*models.Note
	err := dbx.WithConn(ctx, s.db, func(ctx context.Context, conn dbx.DBTX) error {
		authID, err := s.repomanager.Inboxes(conn).AuthID(ctx, slug)
		if err != nil {
			return err
		}
		rows, err = s.repomanager.Notes(conn).ListAllActive(ctx, authID)
		return err
	})
	if err != nil {
		return nil, err
	}
	out, err := export.Encode(rows, format)
	if err != nil {
		return nil, err
	}
	s.metrics.Export(strings.ToLower(format))
	return out, nil
}

// ArchivedNotes returns the inbox's archived notes, newest first.
func (s *InboxService) ArchivedNotes(ctx context.Context, slug string) ([]*models.Note, error) {
	var rows []*models.Note
	err := dbx.WithConn(ctx, s.db, func(ctx context.Context, conn dbx.DBTX) error {
		authID, err := s.repomanager.Inboxes(conn).AuthID(ctx, slug)
		if err != nil {
			return err
		}
		rows, err = s.repomanager.Notes(conn).ListArchived(ctx, authID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
