package authcore_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/voyant-travel/authcore"
	"github.com/voyant-travel/authcore/pkg/autherr"
	"github.com/voyant-travel/authcore/pkg/httpx"
)

const testClientID = "voyant-web"

// fakeIdP serves the discovery document and a JWKS for one RSA key, which
// is all local token validation needs from the provider.
type fakeIdP struct {
	key *rsa.PrivateKey
	kid string
	srv *httptest.Server
}

func newFakeIdP(t *testing.T) *fakeIdP {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := &fakeIdP{key: key, kid: "key-1"}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"issuer":   f.srv.URL,
			"jwks_uri": f.srv.URL + "/.well-known/jwks.json",
		})
	})
	mux.HandleFunc("/.well-known/jwks.json", func(w http.ResponseWriter, r *http.Request) {
		pub := f.key.Public().(*rsa.PublicKey)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"use": "sig",
				"alg": "RS256",
				"kid": f.kid,
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			}},
		})
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeIdP) config() authcore.Config {
	return authcore.Config{
		IssuerURL:       f.srv.URL,
		ClientID:        testClientID,
		SRPGroup:        "rfc5054-3072",
		JWKSCacheTTL:    time.Hour,
		HTTPTimeout:     5 * time.Second,
		ClockSkewLeeway: time.Minute,
		AllowlistPaths:  []string{"/livez"},
		LogLevel:        "error",
		LogFormat:       "text",
	}
}

func (f *fakeIdP) issueToken(t *testing.T, mutate func(jwt.MapClaims)) string {
	t.Helper()
	claims := jwt.MapClaims{
		"iss":       f.srv.URL,
		"sub":       "user-42",
		"aud":       testClientID,
		"exp":       time.Now().Add(time.Hour).Unix(),
		"token_use": "access",
		"username":  "alice",
	}
	if mutate != nil {
		mutate(claims)
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = f.kid
	signed, err := tok.SignedString(f.key)
	require.NoError(t, err)
	return signed
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := authcore.New(authcore.Config{IssuerURL: "not a url", ClientID: "x"})
	require.Error(t, err)

	cfg := newFakeIdP(t).config()
	cfg.SRPGroup = "no-such-group"
	_, err = authcore.New(cfg)
	require.Error(t, err)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("AUTHCORE_ISSUER_URL", "https://idp.example.com")
	t.Setenv("AUTHCORE_CLIENT_ID", "voyant-web")
	t.Setenv("AUTHCORE_ALLOWLIST_PATHS", "/livez;/readyz;/metrics")

	cfg, err := authcore.LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "https://idp.example.com", cfg.IssuerURL)
	require.Equal(t, "rfc5054-3072", cfg.SRPGroup)
	require.Equal(t, time.Hour, cfg.JWKSCacheTTL)
	require.Equal(t, []string{"/livez", "/readyz", "/metrics"}, cfg.AllowlistPaths)
}

func TestValidateTokenEndToEnd(t *testing.T) {
	idp := newFakeIdP(t)
	core, err := authcore.New(idp.config())
	require.NoError(t, err)

	claims, err := core.ValidateToken(t.Context(), idp.issueToken(t, nil))
	require.NoError(t, err)
	require.Equal(t, "user-42", claims.Subject)
	require.Equal(t, "alice", claims.Username)

	// A token for another audience is refused with the local keys already
	// cached, no further IdP round trip needed.
	_, err = core.ValidateToken(t.Context(), idp.issueToken(t, func(c jwt.MapClaims) {
		c["aud"] = "some-other-client"
	}))
	require.True(t, autherr.IsKind(err, autherr.KindInvalidAudience))

	_, err = core.ValidateToken(t.Context(), idp.issueToken(t, func(c jwt.MapClaims) {
		c["token_use"] = "id"
	}))
	require.True(t, autherr.IsKind(err, autherr.KindWrongTokenType))
}

func TestMiddlewareEndToEnd(t *testing.T) {
	idp := newFakeIdP(t)
	core, err := authcore.New(idp.config())
	require.NoError(t, err)

	var seen string
	h := core.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, ok := httpx.UserFromContext(r.Context()); ok {
			seen = user.UserID
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	req.Header.Set("Authorization", "Bearer "+idp.issueToken(t, nil))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "user-42", seen)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/trips", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Allowlisted path passes without a token.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
}
