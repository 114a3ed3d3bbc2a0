package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/thumbnails/auth"
)

// Guard authenticates logins and checks per-path read access.
type Guard struct {
	authn auth.Authenticator
	authz auth.Authorizer
}

// NewGuard creates a guard. A nil authorizer allows every read.
func NewGuard(authn auth.Authenticator, authz auth.Authorizer) *Guard {
	if authz == nil {
		authz = auth.AllowAllAuthorizer{}
	}
	return &Guard{authn: authn, authz: authz}
}

// Authenticate resolves credentials to an identity. Without an authenticator
// every login is anonymous.
func (g *Guard) Authenticate(ctx context.Context, creds Credentials) (*auth.Identity, error) {
	if g.authn == nil {
		return auth.AnonymousIdentity(), nil
	}
	if creds.Token == "" {
		return nil, fmt.Errorf("%w: %w", ErrAccessDenied, auth.ErrMissingCredentials)
	}
	id, err := auth.Verify(ctx, g.authn, auth.BearerRequest(creds.Token))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAccessDenied, err)
	}
	return id, nil
}

// CanRead reports whether id may read path. Authorizer failures other than a
// denial are returned.
func (g *Guard) CanRead(ctx context.Context, id *auth.Identity, path string) (bool, error) {
	err := g.authz.Authorize(ctx, &auth.AuthzRequest{Subject: id, Path: path, Action: auth.ActionRead})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, auth.ErrForbidden):
		return false, nil
	default:
		return false, err
	}
}
