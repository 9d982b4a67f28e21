// Package common defines shared sentinel errors used across the repository,
// service and CLI layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrTransientStorage reports a read that could not be answered because
	// the session's transaction was aborted. The value read is unknown.
	ErrTransientStorage = errors.New("transient storage fault")

	// ErrStorage wraps any other persistence failure on the write path.
	ErrStorage = errors.New("storage error")

	// Service-level errors.
	ErrorValidation      = errors.New("validation error")
	ErrUnsupportedFormat = errors.New("unsupported export format")

	// Collaborator errors.
	ErrIdentityProvider = errors.New("identity provider error")
	ErrNotifier         = errors.New("notifier error")
	ErrAudioStore       = errors.New("audio store error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
