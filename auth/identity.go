package auth

import (
	"slices"
	"time"
)

// AuthMethod records how an identity was established. Tokens minted for the
// service user carry AuthMethodService in their amr claim.
type AuthMethod string

const (
	AuthMethodNone      AuthMethod = "none"
	AuthMethodJWT       AuthMethod = "jwt"
	AuthMethodService   AuthMethod = "service"
	AuthMethodAnonymous AuthMethod = "anonymous"
)

// AnonymousPrincipal names sessions opened on a repository without an
// authenticator.
const AnonymousPrincipal = "anonymous"

// Identity is the principal behind a repository session.
type Identity struct {
	Principal string
	Roles     []string
	Method    AuthMethod

	// Claims are the verified token claims, empty for anonymous sessions.
	Claims map[string]any

	ExpiresAt time.Time // zero never expires
	IssuedAt  time.Time
}

func (id *Identity) HasRole(role string) bool {
	return id != nil && slices.Contains(id.Roles, role)
}

// IsExpired reports whether ExpiresAt has passed.
func (id *Identity) IsExpired() bool {
	return !id.ExpiresAt.IsZero() && time.Now().After(id.ExpiresAt)
}

// IsAnonymous reports whether the identity carries no principal of its own.
func (id *Identity) IsAnonymous() bool {
	return id.Principal == "" || id.Method == AuthMethodAnonymous
}

// IsService reports whether the identity came from a service-user token.
func (id *Identity) IsService() bool {
	return id.Method == AuthMethodService
}

// AnonymousIdentity is the identity of sessions on an unauthenticated store.
func AnonymousIdentity() *Identity {
	return &Identity{
		Principal: AnonymousPrincipal,
		Method:    AuthMethodAnonymous,
		Claims:    map[string]any{},
	}
}
