// Package jwtx validates bearer tokens issued by the identity provider.
// Validation is a fixed pipeline with a distinct failure kind at every
// step, in an order chosen so that cheap structural checks run before any
// key lookup and the signature is verified before any claim is trusted.
package jwtx

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/voyant-travel/authcore/pkg/autherr"
	"github.com/voyant-travel/authcore/pkg/metrics"
)

// DefaultLeeway absorbs clock skew between this host and the IdP when
// checking exp.
const DefaultLeeway = 60 * time.Second

// algRS256 is the only accepted signing algorithm. Anything else,
// including "none", is rejected before a key is ever looked up.
const algRS256 = "RS256"

// KeySource resolves a key id to an RSA public key. Implemented by
// jwks.Manager.
type KeySource interface {
	GetKey(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// Validator verifies token signatures and claims.
type Validator struct {
	keys     KeySource
	issuer   string
	clientID string
	leeway   time.Duration
	log      *slog.Logger
	metrics  *metrics.Set
	now      func() time.Time
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithLeeway overrides DefaultLeeway.
func WithLeeway(d time.Duration) ValidatorOption {
	return func(v *Validator) { v.leeway = d }
}

// WithLogger attaches a logger.
func WithLogger(log *slog.Logger) ValidatorOption {
	return func(v *Validator) { v.log = log }
}

// WithMetrics attaches the module's metric set.
func WithMetrics(m *metrics.Set) ValidatorOption {
	return func(v *Validator) { v.metrics = m }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) { v.now = now }
}

// NewValidator builds a Validator. issuer must match the token's iss claim
// exactly; clientID is checked against aud (or the client_id claim for
// access tokens without aud).
func NewValidator(keys KeySource, issuer, clientID string, opts ...ValidatorOption) *Validator {
	v := &Validator{
		keys:     keys,
		issuer:   issuer,
		clientID: clientID,
		leeway:   DefaultLeeway,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// tokenHeader is the decoded JOSE header, read before any verification.
type tokenHeader struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	Typ string `json:"typ"`
}

// Validate runs the full pipeline on a compact-serialized JWT and returns
// its claims, or an error naming the first check that failed.
func (v *Validator) Validate(ctx context.Context, token string, expected TokenUse) (*Claims, error) {
	header, err := decodeHeader(token)
	if err != nil {
		return nil, v.fail(ctx, autherr.Wrap(autherr.KindMalformedToken, "token is not a well-formed JWT", err))
	}

	if header.Alg != algRS256 {
		return nil, v.fail(ctx, autherr.Newf(autherr.KindUnsupportedAlgorithm, "token algorithm %q is not accepted", header.Alg))
	}
	if header.Kid == "" {
		return nil, v.fail(ctx, autherr.New(autherr.KindMalformedToken, "token header has no kid"))
	}

	key, err := v.keys.GetKey(ctx, header.Kid)
	if err != nil {
		// UnknownKeyID / IdpConfigurationError / IdpUnreachable pass
		// through untouched.
		return nil, v.fail(ctx, err)
	}

	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{algRS256}),
		jwt.WithoutClaimsValidation(),
	)
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return key, nil
	}); err != nil {
		kind := autherr.KindInvalidSignature
		if errors.Is(err, jwt.ErrTokenMalformed) {
			kind = autherr.KindMalformedToken
		}
		return nil, v.fail(ctx, autherr.Wrap(kind, "token verification failed", err))
	}

	if claims.ExpiresAt == nil {
		return nil, v.fail(ctx, autherr.New(autherr.KindExpiredToken, "token carries no expiry"))
	}
	// Leeway is inclusive: exp == now-leeway still passes.
	if v.now().After(claims.ExpiresAt.Add(v.leeway)) {
		return nil, v.fail(ctx, autherr.New(autherr.KindExpiredToken, "token has expired"))
	}

	if claims.Issuer != v.issuer {
		return nil, v.fail(ctx, autherr.New(autherr.KindInvalidIssuer, "token issuer mismatch"))
	}

	if !v.audienceOK(claims) {
		return nil, v.fail(ctx, autherr.New(autherr.KindInvalidAudience, "token audience mismatch"))
	}

	if claims.TokenUse != string(expected) {
		return nil, v.fail(ctx, autherr.Newf(autherr.KindWrongTokenType, "token_use is %q, expected %q", claims.TokenUse, expected))
	}

	return claims, nil
}

// audienceOK accepts a token whose aud contains the configured client, or
// whose client_id claim equals it when aud is absent (the shape some IdPs
// give access tokens).
func (v *Validator) audienceOK(c *Claims) bool {
	if len(c.Audience) > 0 {
		return slices.Contains(c.Audience, v.clientID)
	}
	return c.ClientID == v.clientID
}

// fail records the failure kind in logs and metrics, then returns err
// unchanged. Token contents never appear in either.
func (v *Validator) fail(ctx context.Context, err error) error {
	kind := autherr.KindOf(err)
	v.metrics.ValidationFailure(string(kind))
	v.log.DebugContext(ctx, "token rejected", "kind", kind)
	return err
}

// decodeHeader splits the compact serialization and decodes the JOSE
// header without touching the signature.
func decodeHeader(token string) (*tokenHeader, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return nil, errors.New("jwtx: expected three dot-separated segments")
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, err
	}
	var h tokenHeader
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, err
	}
	return &h, nil
}
