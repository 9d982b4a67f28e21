package models

// Inbox is a registered recipient identified by a slug and linked to
// exactly one identity-provider account.
//
// Only Slug is authoritative in memory; AuthID, Email and the flags are
// populated when read from storage and may be stale.
type Inbox struct {
	Slug         string
	AuthID       string
	Email        string
	EmailEnabled bool
	Enabled      bool
}

// NewInbox wraps slug. It performs no I/O.
func NewInbox(slug string) *Inbox {
	return &Inbox{Slug: slug}
}
