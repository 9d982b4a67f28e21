package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/saythanks/saythanks/internal/common"
	"github.com/saythanks/saythanks/internal/dbx"
	"github.com/saythanks/saythanks/internal/logging"
	"github.com/saythanks/saythanks/internal/server/metrics"
	"github.com/saythanks/saythanks/internal/server/migrations"
	"github.com/saythanks/saythanks/internal/server/models"
	"github.com/saythanks/saythanks/internal/server/repositories/inboxes"
	"github.com/saythanks/saythanks/internal/server/repositories/notes"
)

// -------- in-memory store behind both fake repositories --------

type storedNote struct {
	note   models.Note
	authID string
}

type memStore struct {
	mu      sync.Mutex
	caps    migrations.Capabilities
	inboxes []*models.Inbox
	notes   []*storedNote
	clock   time.Time

	createInboxErr error
	createNoteErr  error
	flagErr        error
}

func newMemStore(caps migrations.Capabilities) *memStore {
	return &memStore{caps: caps, clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func uniqueViolation(constraint string) error {
	return fmt.Errorf("db error: %w", &pgconn.PgError{Code: "23505", ConstraintName: constraint})
}

func (m *memStore) inboxBy(match func(*models.Inbox) bool) *models.Inbox {
	for _, in := range m.inboxes {
		if match(in) {
			cp := *in
			return &cp
		}
	}
	return nil
}

type fakeInboxes struct{ m *memStore }

func (f fakeInboxes) Create(ctx context.Context, inbox *models.Inbox) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if f.m.createInboxErr != nil {
		return f.m.createInboxErr
	}
	for _, in := range f.m.inboxes {
		if in.Slug == inbox.Slug {
			return uniqueViolation(inboxes.SlugConstraint)
		}
		if in.AuthID == inbox.AuthID {
			return uniqueViolation(inboxes.AuthIDConstraint)
		}
	}
	inbox.EmailEnabled, inbox.Enabled = false, true
	cp := *inbox
	f.m.inboxes = append(f.m.inboxes, &cp)
	return nil
}

func (f fakeInboxes) GetBySlug(ctx context.Context, slug string) (*models.Inbox, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if in := f.m.inboxBy(func(i *models.Inbox) bool { return i.Slug == slug }); in != nil {
		return in, nil
	}
	return nil, common.ErrorNotFound
}

func (f fakeInboxes) GetByAuthID(ctx context.Context, authID string) (*models.Inbox, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if in := f.m.inboxBy(func(i *models.Inbox) bool { return i.AuthID == authID }); in != nil {
		return in, nil
	}
	return nil, common.ErrorNotFound
}

func (f fakeInboxes) AuthID(ctx context.Context, slug string) (string, error) {
	in, err := f.GetBySlug(ctx, slug)
	if err != nil {
		return "", err
	}
	return in.AuthID, nil
}

func (f fakeInboxes) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	_, err := f.GetBySlug(ctx, slug)
	return err == nil, nil
}

func (f fakeInboxes) ExistsByAuthID(ctx context.Context, authID string) (bool, error) {
	_, err := f.GetByAuthID(ctx, authID)
	return err == nil, nil
}

func (f fakeInboxes) Email(ctx context.Context, slug string) (string, error) {
	in, err := f.GetBySlug(ctx, slug)
	if err != nil {
		return "", err
	}
	return in.Email, nil
}

func (f fakeInboxes) EmailEnabled(ctx context.Context, slug string) (bool, error) {
	if f.m.flagErr != nil {
		return false, f.m.flagErr
	}
	in, err := f.GetBySlug(ctx, slug)
	if err != nil {
		return false, err
	}
	return in.EmailEnabled, nil
}

func (f fakeInboxes) Enabled(ctx context.Context, slug string) (bool, error) {
	if f.m.flagErr != nil {
		return false, f.m.flagErr
	}
	in, err := f.GetBySlug(ctx, slug)
	if err != nil {
		return false, err
	}
	return in.Enabled, nil
}

func (f fakeInboxes) set(slug string, apply func(*models.Inbox)) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, in := range f.m.inboxes {
		if in.Slug == slug {
			apply(in)
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f fakeInboxes) SetEmailEnabled(ctx context.Context, slug string, enabled bool) error {
	return f.set(slug, func(i *models.Inbox) { i.EmailEnabled = enabled })
}

func (f fakeInboxes) SetEnabled(ctx context.Context, slug string, enabled bool) error {
	return f.set(slug, func(i *models.Inbox) { i.Enabled = enabled })
}

type fakeNotes struct{ m *memStore }

func (f fakeNotes) slugOf(authID string) string {
	if in := f.m.inboxBy(func(i *models.Inbox) bool { return i.AuthID == authID }); in != nil {
		return in.Slug
	}
	return ""
}

func (f fakeNotes) GetByID(ctx context.Context, id string) (*models.Note, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, n := range f.m.notes {
		if n.note.ID == id {
			cp := n.note
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f fakeNotes) Exists(ctx context.Context, id string) (bool, error) {
	_, err := f.GetByID(ctx, id)
	return err == nil, nil
}

func (f fakeNotes) Create(ctx context.Context, note *models.Note, authID string) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if f.m.createNoteErr != nil {
		return f.m.createNoteErr
	}
	f.m.clock = f.m.clock.Add(time.Second)
	note.ID = uuid.NewString()
	note.Timestamp = f.m.clock

	stored := *note
	stored.Inbox = f.slugOf(authID)
	if !f.m.caps.AudioPath {
		stored.AudioPath = ""
	}
	f.m.notes = append(f.m.notes, &storedNote{note: stored, authID: authID})
	return nil
}

func (f fakeNotes) Archive(ctx context.Context, id string) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, n := range f.m.notes {
		if n.note.ID == id {
			n.note.Archived = true
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f fakeNotes) filter(authID string, keep func(models.Note) bool) []*models.Note {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	out := []*models.Note{}
	for _, n := range f.m.notes {
		if n.authID == authID && keep(n.note) {
			cp := n.note
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

func window(all []*models.Note, limit, offset int) []*models.Note {
	if offset >= len(all) {
		return []*models.Note{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

func active(n models.Note) bool { return !n.Archived }

func matches(term string) func(models.Note) bool {
	term = strings.ToLower(term)
	return func(n models.Note) bool {
		return !n.Archived && (strings.Contains(strings.ToLower(n.Body), term) ||
			strings.Contains(strings.ToLower(n.Byline), term))
	}
}

func (f fakeNotes) CountActive(ctx context.Context, authID string) (int, error) {
	return len(f.filter(authID, active)), nil
}

func (f fakeNotes) ListActive(ctx context.Context, authID string, limit, offset int) ([]*models.Note, error) {
	return window(f.filter(authID, active), limit, offset), nil
}

func (f fakeNotes) CountSearch(ctx context.Context, authID, term string) (int, error) {
	return len(f.filter(authID, matches(term))), nil
}

func (f fakeNotes) Search(ctx context.Context, authID, term string, limit, offset int) ([]*models.Note, error) {
	return window(f.filter(authID, matches(term)), limit, offset), nil
}

func (f fakeNotes) ListAllActive(ctx context.Context, authID string) ([]*models.Note, error) {
	return f.filter(authID, active), nil
}

func (f fakeNotes) ListArchived(ctx context.Context, authID string) ([]*models.Note, error) {
	return f.filter(authID, func(n models.Note) bool { return n.Archived }), nil
}

type fakeRepoManager struct{ m *memStore }

func (r *fakeRepoManager) RunMigrations(context.Context, *sql.DB, int64) error { return nil }
func (r *fakeRepoManager) SchemaVersion(context.Context, *sql.DB) (int64, error) {
	return migrations.VersionAudioPath, nil
}
func (r *fakeRepoManager) Capabilities() migrations.Capabilities { return r.m.caps }
func (r *fakeRepoManager) Inboxes(db dbx.DBTX) inboxes.Repository {
	return fakeInboxes{r.m}
}
func (r *fakeRepoManager) Notes(db dbx.DBTX) notes.Repository { return fakeNotes{r.m} }

// -------- collaborators --------

type sentMail struct {
	note                       *models.Note
	recipient, topic, audioURL string
}

type fakeNotifier struct {
	sent []sentMail
	err  error
}

func (f *fakeNotifier) Send(ctx context.Context, note *models.Note, recipient, topic, audioURL string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{note, recipient, topic, audioURL})
	return nil
}

type fakeAudio struct {
	uploaded  []string
	presigned []string
	err       error
}

func (f *fakeAudio) Upload(ctx context.Context, r io.Reader, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	b, _ := io.ReadAll(r)
	f.uploaded = append(f.uploaded, string(b))
	return "notes/voice-" + fmt.Sprint(len(f.uploaded)), nil
}

func (f *fakeAudio) PresignedURL(ctx context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.presigned = append(f.presigned, key)
	return "https://s3.local/" + key + "?sig", nil
}

type fakeIdentity struct {
	emails map[string]string
	err    error
}

func (f *fakeIdentity) UserEmail(ctx context.Context, accountID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	e, ok := f.emails[accountID]
	if !ok {
		return "", fmt.Errorf("%w: unknown user", common.ErrIdentityProvider)
	}
	return e, nil
}

type logEntry struct {
	level, msg string
}

type recordingLogger struct {
	mu      *sync.Mutex
	entries *[]logEntry
}

func newRecordingLogger() recordingLogger {
	return recordingLogger{mu: &sync.Mutex{}, entries: &[]logEntry{}}
}

func (l recordingLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = append(*l.entries, logEntry{level, msg})
}

func (l recordingLogger) Debug(_ context.Context, msg string, _ ...any) { l.add("debug", msg) }
func (l recordingLogger) Info(_ context.Context, msg string, _ ...any)  { l.add("info", msg) }
func (l recordingLogger) Warn(_ context.Context, msg string, _ ...any)  { l.add("warn", msg) }
func (l recordingLogger) Error(_ context.Context, msg string, _ ...any) { l.add("error", msg) }
func (l recordingLogger) With(...any) logging.Logger                    { return l }

func (l recordingLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range *l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

// -------- harness --------

type harness struct {
	db       *sql.DB
	mock     sqlmock.Sqlmock
	store    *memStore
	notifier *fakeNotifier
	audio    *fakeAudio
	identity *fakeIdentity
	log      recordingLogger
	metrics  *metrics.Metrics
	notes    *NoteService
	inboxes  *InboxService
}

const testTokenSecret = "id-token-secret"

func newHarness(t *testing.T, caps migrations.Capabilities) *harness {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h := &harness{
		db:       db,
		mock:     mock,
		store:    newMemStore(caps),
		notifier: &fakeNotifier{},
		audio:    &fakeAudio{},
		identity: &fakeIdentity{emails: map[string]string{}},
		log:      newRecordingLogger(),
		metrics:  metrics.New(),
	}
	rm := &fakeRepoManager{h.store}
	h.notes = NewNoteService(db, rm, h.notifier, h.audio, h.log, h.metrics)
	h.inboxes = NewInboxService(db, rm, h.notes, h.identity, testTokenSecret, h.log, h.metrics)
	return h
}

// expectSnapshot queues the begin/commit pair of one paginated read.
func (h *harness) expectSnapshot() {
	h.mock.ExpectBegin()
	h.mock.ExpectCommit()
}

func (h *harness) register(t *testing.T, slug, accountID, email string) {
	t.Helper()
	res, err := h.inboxes.Register(context.Background(), slug, accountID, email)
	if err != nil || !res.Created() {
		t.Fatalf("register %s: %v %v", slug, res.Outcome, err)
	}
}
