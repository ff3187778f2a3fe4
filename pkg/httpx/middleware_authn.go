// Package httpx provides the request-side enforcement of token
// validation: a composable net/http middleware independent of any router
// or framework, so it can wrap whatever transport the host application
// uses.
package httpx

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/voyant-travel/authcore/pkg/autherr"
	"github.com/voyant-travel/authcore/pkg/identity"
	"github.com/voyant-travel/authcore/pkg/idx"
	"github.com/voyant-travel/authcore/pkg/jwtx"
	"github.com/voyant-travel/authcore/pkg/metrics"
	"github.com/voyant-travel/authcore/pkg/slogx"
)

// Middleware is a composable HTTP interceptor.
type Middleware func(next http.Handler) http.Handler

// TokenVerifier is the slice of the token validator the middleware needs.
type TokenVerifier interface {
	Validate(ctx context.Context, token string, expected jwtx.TokenUse) (*jwtx.Claims, error)
}

type authnConfig struct {
	allowlist map[string]struct{}
	metrics   *metrics.Set
}

// AuthnOption configures AuthnMiddleware.
type AuthnOption func(*authnConfig)

// WithAllowlist exempts exact request paths (health checks and similar)
// from authentication. Allowlisted requests proceed with an anonymous
// identity.
func WithAllowlist(paths ...string) AuthnOption {
	return func(c *authnConfig) {
		for _, p := range paths {
			c.allowlist[p] = struct{}{}
		}
	}
}

// WithMetrics attaches the module's metric set.
func WithMetrics(m *metrics.Set) AuthnOption {
	return func(c *authnConfig) { c.metrics = m }
}

// AuthnMiddleware enforces bearer-token authentication. Requests without a
// valid access token are rejected with a generic 401 before any downstream
// handler runs; the precise failure kind goes to logs and metrics only.
func AuthnMiddleware(v TokenVerifier, opts ...AuthnOption) Middleware {
	cfg := &authnConfig{allowlist: make(map[string]struct{})}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := slogx.WithRequestID(r.Context(), idx.New().String())
			log := slogx.FromContext(ctx)

			if _, ok := cfg.allowlist[r.URL.Path]; ok {
				next.ServeHTTP(w, r.WithContext(withUser(ctx, identity.Anonymous())))
				return
			}

			raw, ok := bearerToken(r)
			if !ok {
				cfg.metrics.Rejection("missing_bearer")
				writeBearerError(w)
				return
			}

			claims, err := v.Validate(ctx, raw, jwtx.UseAccess)
			if err != nil {
				// One generic response for every failure; the kind is for
				// ourselves.
				cfg.metrics.Rejection(string(autherr.KindOf(err)))
				log.WarnContext(ctx, "request rejected", "kind", autherr.KindOf(err), "path", r.URL.Path)
				writeBearerError(w)
				return
			}

			user := identity.UserContext{
				UserID:          claims.Subject,
				Username:        claims.Username,
				Claims:          claims.AsMap(),
				AuthenticatedAt: time.Now().UTC(),
			}
			next.ServeHTTP(w, r.WithContext(withUser(ctx, user)))
		})
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(authz) <= len(prefix) || !strings.EqualFold(authz[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(authz[len(prefix):])
	return tok, tok != ""
}

// writeBearerError sends the RFC 6750 challenge. The description is fixed:
// it must not vary with the failure cause.
func writeBearerError(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"error":             "invalid_token",
		"error_description": "the request is not authenticated",
	})
}
