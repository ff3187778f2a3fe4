package idp

// Wire types for the identity provider's HTTP API. Request bodies are JSON;
// big integers travel hex-encoded, the secret block is opaque and echoed
// back verbatim.

// Challenge is the IdP's answer to an SRP challenge request.
type Challenge struct {
	// UserID is the canonical user identifier the IdP resolved for the
	// supplied username.
	UserID string `json:"user_id"`

	// Salt is the user's SRP salt, hex-encoded.
	Salt string `json:"salt"`

	// SRPB is the server's public ephemeral B, hex-encoded.
	SRPB string `json:"srp_b"`

	// SecretBlock is opaque server state that must be echoed back in the
	// verify request.
	SecretBlock string `json:"secret_block"`
}

type challengeRequest struct {
	Username string `json:"username"`
	SRPA     string `json:"srp_a"`
}

// VerifyRequest carries the client's password-claim proof.
type VerifyRequest struct {
	Username       string `json:"username"`
	Timestamp      string `json:"timestamp"`
	SecretBlock    string `json:"secret_block"`
	ClaimSignature string `json:"claim_signature"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Tokens is the IdP's token response for a successful login or refresh.
type Tokens struct {
	IDToken      string `json:"id_token,omitempty"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// UserInfo is the IdP's userinfo response for a live access token.
type UserInfo struct {
	Sub      string         `json:"sub"`
	Username string         `json:"username"`
	Claims   map[string]any `json:"-"`
}

// DiscoveryDocument is the subset of the OpenID discovery document this
// module reads.
type DiscoveryDocument struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

// JWK is one RSA public signing key as published in the IdP's key set.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`
	Kid string `json:"kid,omitempty"`
	N   string `json:"n,omitempty"`
	E   string `json:"e,omitempty"`
}

// JWKS is the published key set.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// errorResponse is the IdP's JSON error body.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}
