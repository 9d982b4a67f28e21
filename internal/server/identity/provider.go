// Package identity talks to the external identity provider (Auth0): it
// resolves account email addresses through the management API and derives
// account ids from signed ID tokens.
package identity

import (
	"context"
	"fmt"

	"github.com/auth0/go-auth0/management"
	"github.com/saythanks/saythanks/internal/common"
)

// Provider resolves account details held by the identity provider.
type Provider interface {
	UserEmail(ctx context.Context, accountID string) (string, error)
}

// userReader is the slice of the Auth0 user manager we depend on.
type userReader interface {
	Read(ctx context.Context, id string, opts ...management.RequestOption) (*management.User, error)
}

// Auth0Provider implements Provider over the Auth0 management API.
type Auth0Provider struct {
	users userReader
}

// newManagement is a seam for tests.
var newManagement = func(domain, token string) (*management.Management, error) {
	return management.New(domain, management.WithStaticToken(token))
}

// NewAuth0Provider builds a client for the tenant at domain using a static
// management API token.
func NewAuth0Provider(domain, token string) (*Auth0Provider, error) {
	if domain == "" || token == "" {
		return nil, fmt.Errorf("%w: auth0 domain and token are required", common.ErrIdentityProvider)
	}
	m, err := newManagement(domain, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrIdentityProvider, err)
	}
	return &Auth0Provider{users: m.User}, nil
}

// UserEmail fetches the account's current email address. Lookup failures,
// including an unreachable provider, are wrapped in common.ErrIdentityProvider.
func (p *Auth0Provider) UserEmail(ctx context.Context, accountID string) (string, error) {
	u, err := p.users.Read(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("%w: read user %s: %v", common.ErrIdentityProvider, accountID, err)
	}
	email := u.GetEmail()
	if email == "" {
		return "", fmt.Errorf("%w: user %s has no email", common.ErrIdentityProvider, accountID)
	}
	return email, nil
}
