package auth

import (
	"context"
	"net/textproto"
	"strings"
)

// Authenticator turns presented credentials into an Identity.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: a rejected credential is reported in the AuthResult with a nil
//     error; a non-nil error means the check itself could not run.
type Authenticator interface {
	Name() string
	Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error)
}

// AuthRequest holds transport headers such as Authorization.
type AuthRequest struct {
	Headers map[string][]string
}

// BearerRequest wraps token in an Authorization: Bearer header. The
// repository uses it to hand login tokens to its authenticator.
func BearerRequest(token string) *AuthRequest {
	return &AuthRequest{
		Headers: map[string][]string{"Authorization": {"Bearer " + strings.TrimSpace(token)}},
	}
}

// GetHeader returns the first value of key. Lookup falls back to the
// canonical MIME form, so "authorization" finds "Authorization".
func (r *AuthRequest) GetHeader(key string) string {
	if r == nil {
		return ""
	}
	values, ok := r.Headers[key]
	if !ok {
		values = r.Headers[textproto.CanonicalMIMEHeaderKey(key)]
	}
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// AuthResult is the outcome of one Authenticate call. Identity is set only
// when Authenticated; Error only when not.
type AuthResult struct {
	Authenticated bool
	Identity      *Identity
	Error         error
	Method        string
}

func AuthSuccess(identity *Identity) *AuthResult {
	return &AuthResult{Authenticated: true, Identity: identity, Method: string(identity.Method)}
}

func AuthFailure(err error, method string) *AuthResult {
	return &AuthResult{Error: err, Method: method}
}

// Verify runs authn and folds the result into (identity, error). A rejected
// credential without a cause becomes ErrInvalidCredentials, and an identity
// past its expiry becomes ErrTokenExpired.
func Verify(ctx context.Context, authn Authenticator, req *AuthRequest) (*Identity, error) {
	result, err := authn.Authenticate(ctx, req)
	switch {
	case err != nil:
		return nil, err
	case !result.Authenticated && result.Error != nil:
		return nil, result.Error
	case !result.Authenticated, result.Identity == nil:
		return nil, ErrInvalidCredentials
	case result.Identity.IsExpired():
		return nil, ErrTokenExpired
	}
	return result.Identity, nil
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, req *AuthRequest) (*AuthResult, error)

func (f AuthenticatorFunc) Name() string { return "func" }

func (f AuthenticatorFunc) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	return f(ctx, req)
}
