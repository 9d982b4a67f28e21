// Package services contains the SayThanks domain logic. NoteService covers a
// single note's lifecycle; InboxService covers registration, flags and
// listing for one inbox.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/saythanks/saythanks/internal/common"
	"github.com/saythanks/saythanks/internal/dbx"
	"github.com/saythanks/saythanks/internal/logging"
	"github.com/saythanks/saythanks/internal/server/audio"
	"github.com/saythanks/saythanks/internal/server/metrics"
	"github.com/saythanks/saythanks/internal/server/models"
	"github.com/saythanks/saythanks/internal/server/notify"
	"github.com/saythanks/saythanks/internal/server/repositories/repomanager"
)

// NoteService loads, stores, archives and delivers notes.
type NoteService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	notifier    notify.Notifier
	audio       audio.Store
	log         logging.Logger
	metrics     *metrics.Metrics
}

// NewNoteService wires a NoteService. audioStore may be nil, in which case
// notifications carry no voice-note link. m may be nil.
func NewNoteService(db *sql.DB, rm repomanager.RepositoryManager, notifier notify.Notifier,
	audioStore audio.Store, log logging.Logger, m *metrics.Metrics) *NoteService {
	if log == nil {
		log = logging.Nop{}
	}
	return &NoteService{
		db:          db,
		repomanager: rm,
		notifier:    notifier,
		audio:       audioStore,
		log:         log.With("component", "notes"),
		metrics:     m,
	}
}

// validID reports whether id can name a stored note.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Fetch loads a persisted note. A malformed or unknown id yields
// common.ErrorNotFound.
func (s *NoteService) Fetch(ctx context.Context, id string) (*models.Note, error) {
	if !validID(id) {
		return nil, common.ErrorNotFound
	}
	return s.repomanager.Notes(s.db).GetByID(ctx, id)
}

// Exists reports whether a note with id is stored.
func (s *NoteService) Exists(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	return s.repomanager.Notes(s.db).Exists(ctx, id)
}

// Store persists note under its inbox and fills in ID and Timestamp.
//
// Both statements run on one pooled connection. The audio path is written
// only when the schema supports it; otherwise it is dropped with a warning.
func (s *NoteService) Store(ctx context.Context, note *models.Note) error {
	if note.Persisted() {
		return fmt.Errorf("%w: note %s is already stored", common.ErrorValidation, note.ID)
	}

	if note.AudioPath != "" && !s.repomanager.Capabilities().AudioPath {
		s.log.Warn(ctx, "schema has no audio_path column, storing note without audio",
			"inbox", note.Inbox, "audio_path", note.AudioPath)
	}

	err := dbx.WithConn(ctx, s.db, func(ctx context.Context, conn dbx.DBTX) error {
		authID, err := s.repomanager.Inboxes(conn).AuthID(ctx, note.Inbox)
		if err != nil {
			return err
		}
		return s.repomanager.Notes(conn).Create(ctx, note, authID)
	})
	if err != nil {
		s.metrics.NoteStored(metrics.OutcomeError)
		s.log.Error(ctx, "failed to store note", "inbox", note.Inbox, "error", err)
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("inbox %q: %w", note.Inbox, err)
		}
		return fmt.Errorf("%w: %w", common.ErrStorage, err)
	}

	s.metrics.NoteStored(metrics.OutcomeOK)
	s.log.Info(ctx, "note stored", "id", note.ID, "inbox", note.Inbox)
	return nil
}

// Archive hides the note from the default listing. Repeated calls succeed.
func (s *NoteService) Archive(ctx context.Context, note *models.Note) error {
	if !validID(note.ID) {
		return common.ErrorNotFound
	}
	if err := s.repomanager.Notes(s.db).Archive(ctx, note.ID); err != nil {
		return err
	}
	note.Archived = true
	s.metrics.NoteArchived()
	return nil
}

// Notify emails note to email. When audioPath is set and an audio store is
// configured, the message links to a presigned copy of the recording.
func (s *NoteService) Notify(ctx context.Context, note *models.Note, email, topic, audioPath string) error {
	var audioURL string
	if audioPath != "" && s.audio != nil {
		u, err := s.audio.PresignedURL(ctx, audioPath)
		if err != nil {
			s.metrics.Notification(metrics.OutcomeError)
			s.log.Error(ctx, "failed to presign voice note", "audio_path", audioPath, "error", err)
			return err
		}
		audioURL = u
	}

	if err := s.notifier.Send(ctx, note, email, topic, audioURL); err != nil {
		s.metrics.Notification(metrics.OutcomeError)
		s.log.Error(ctx, "failed to send note", "id", note.ID, "error", err)
		return err
	}
	s.metrics.Notification(metrics.OutcomeOK)
	return nil
}
