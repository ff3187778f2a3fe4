// Package identity carries the authenticated-user value attached to a
// request after token validation succeeds.
package identity

import "time"

// UserContext is the identity of an authenticated caller, scoped to a
// single request. It is produced in exactly two places: the authn
// middleware after local token validation, and the remote session check
// against the IdP's userinfo endpoint. Nothing else should mint one.
type UserContext struct {
	UserID          string
	Username        string
	Claims          map[string]any
	AuthenticatedAt time.Time
}

// Anonymous returns the empty identity used for allowlisted paths that
// bypass authentication (health checks and the like).
func Anonymous() UserContext {
	return UserContext{AuthenticatedAt: time.Now().UTC()}
}

// IsAnonymous reports whether the context carries no authenticated user.
func (u UserContext) IsAnonymous() bool { return u.UserID == "" }
