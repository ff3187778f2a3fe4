package jwtx

import (
	"encoding/json"

	"github.com/golang-jwt/jwt/v5"
)

// TokenUse distinguishes access tokens from id tokens. The IdP stamps it
// into the token_use claim; validation refuses a token presented for the
// wrong purpose so an id token cannot stand in for an access token.
type TokenUse string

const (
	UseAccess TokenUse = "access"
	UseID     TokenUse = "id"
)

// Claims is the decoded, verified payload of an IdP token. A *Claims only
// ever leaves Validate after every check has passed; there is no partial
// form.
type Claims struct {
	jwt.RegisteredClaims

	// TokenUse is "access" or "id".
	TokenUse string `json:"token_use,omitempty"`

	// ClientID is the provider-specific audience claim carried by access
	// tokens that omit aud.
	ClientID string `json:"client_id,omitempty"`

	// Username is the login name for the subject.
	Username string `json:"username,omitempty"`

	// Scope is the space-delimited scope list, if the IdP issues one.
	Scope string `json:"scope,omitempty"`
}

// AsMap renders the claims as a generic map for attachment to a request
// identity. Errors cannot happen for a struct that round-trips through
// encoding/json, so the map is simply empty on the impossible path.
func (c *Claims) AsMap() map[string]any {
	raw, err := json.Marshal(c)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}
