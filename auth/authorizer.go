package auth

import (
	"context"
	"fmt"
)

// ActionRead is checked before a node is handed to a session.
const ActionRead = "read"

// Authorizer decides whether an identity may act on a node path.
type Authorizer interface {
	// Authorize returns nil when permitted. Denials match ErrForbidden.
	Authorize(ctx context.Context, req *AuthzRequest) error
	Name() string
}

// AuthzRequest asks whether Subject may perform Action on Path.
type AuthzRequest struct {
	Subject *Identity
	Path    string // e.g. /conf/global/thumbnails/small
	Action  string
}

// AuthzError is a denial. It matches ErrForbidden.
type AuthzError struct {
	Subject string
	Path    string
	Action  string
	Reason  string
}

// Deny builds the AuthzError for req.
func Deny(req *AuthzRequest, reason string) *AuthzError {
	e := &AuthzError{Path: req.Path, Action: req.Action, Reason: reason}
	if req.Subject != nil {
		e.Subject = req.Subject.Principal
	}
	return e
}

func (e *AuthzError) Error() string {
	return fmt.Sprintf("auth: %s may not %s %s: %s", e.Subject, e.Action, e.Path, e.Reason)
}

func (e *AuthzError) Is(target error) bool {
	return target == ErrForbidden
}

// AllowAllAuthorizer is used by stores configured without RBAC roles.
type AllowAllAuthorizer struct{}

func (AllowAllAuthorizer) Authorize(context.Context, *AuthzRequest) error { return nil }
func (AllowAllAuthorizer) Name() string                                   { return "allow_all" }

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, req *AuthzRequest) error

func (f AuthorizerFunc) Authorize(ctx context.Context, req *AuthzRequest) error {
	return f(ctx, req)
}

func (f AuthorizerFunc) Name() string { return "func" }
