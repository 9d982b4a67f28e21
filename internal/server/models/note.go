// Package models defines server-side data models persisted in the database.
package models

import (
	"strconv"
	"time"
)

// Note is a single thank-you message submitted to an inbox.
//
// A Note is either unpersisted (ID is empty) or persisted (ID and Timestamp
// are set by storage). Storage never changes ID or Timestamp afterwards.
type Note struct {
	// ID is the storage-assigned UUID.
	ID string
	// Inbox is the slug of the owning inbox.
	Inbox string
	Body  string
	// Byline is the display name of the sender.
	Byline    string
	Archived  bool
	Timestamp time.Time
	// AudioPath names an associated voice recording, if any.
	AudioPath string
}

// NoteOption customises a Note built by NewNote.
type NoteOption func(*Note)

// WithArchived sets the archived flag.
func WithArchived(archived bool) NoteOption {
	return func(n *Note) { n.Archived = archived }
}

// WithID marks the note as already persisted under id.
func WithID(id string) NoteOption {
	return func(n *Note) { n.ID = id }
}

// WithTimestamp sets the storage timestamp.
func WithTimestamp(ts time.Time) NoteOption {
	return func(n *Note) { n.Timestamp = ts }
}

// WithAudioPath attaches a voice recording.
func WithAudioPath(path string) NoteOption {
	return func(n *Note) { n.AudioPath = path }
}

// NewNote builds an in-memory note for the inbox with the given slug.
// It performs no I/O.
func NewNote(inbox, body, byline string, opts ...NoteOption) *Note {
	n := &Note{Inbox: inbox, Body: body, Byline: byline}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Persisted reports whether storage has assigned the note an ID.
func (n *Note) Persisted() bool {
	return n.ID != ""
}

func (n *Note) String() string {
	if n.Body == "" {
		return "<Note (empty)>"
	}
	return "<Note size=" + strconv.Itoa(len(n.Body)) + ">"
}
