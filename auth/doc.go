// Package auth authenticates repository principals and authorizes node reads.
//
// Callers and the transformation service user both present bearer JWTs. The
// JWTAuthenticator turns a token into an Identity; an Authorizer decides
// whether that Identity may read a node path.
package auth
