// Package idp is the HTTP client for the identity provider. It owns the
// wire contract (endpoints, JSON shapes, error-body decoding) and maps
// every response into the shared autherr taxonomy so callers never see raw
// transport detail.
package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voyant-travel/authcore/pkg/autherr"
)

// DefaultTimeout bounds every call to the IdP. Exceeding it surfaces as
// IdpUnreachable rather than hanging the login path.
const DefaultTimeout = 10 * time.Second

// Client talks to the identity provider. The zero value is not usable;
// construct with NewClient.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client, primarily for
// tests and for hosts that need custom TLS or proxy settings.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.HTTPClient.Timeout = d }
}

// NewClient creates an IdP client rooted at baseURL (the issuer URL).
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		UserAgent:  "authcore",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) url(path string) string {
	return c.BaseURL + path
}

// postJSON sends a JSON body and decodes a JSON response. unauthorizedKind
// is the taxonomy kind a bare 401 maps to; the same HTTP status means
// different things on different endpoints (bad proof on verify, dead
// session on userinfo).
func (c *Client) postJSON(ctx context.Context, path string, in, out any, unauthorizedKind autherr.Kind) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("idp: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("idp: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.UserAgent)

	return c.do(req, out, unauthorizedKind)
}

// getJSON performs a GET with an optional bearer token.
func (c *Client) getJSON(ctx context.Context, rawURL, bearer string, out any, unauthorizedKind autherr.Kind) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("idp: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	return c.do(req, out, unauthorizedKind)
}

func (c *Client) do(req *http.Request, out any, unauthorizedKind autherr.Kind) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		// Timeouts, refused connections, DNS failures: all transient from
		// the caller's point of view.
		return autherr.Wrap(autherr.KindIdpUnreachable, "identity provider unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return autherr.Wrap(autherr.KindIdpUnreachable, "identity provider unreachable", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return mapErrorResponse(resp.StatusCode, raw, unauthorizedKind)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return autherr.Wrap(autherr.KindIdpConfigurationError, "identity provider returned an unreadable response", err)
	}
	return nil
}

// kindByCode maps IdP error codes to taxonomy kinds. Codes not listed fall
// through to status-based mapping.
var kindByCode = map[string]autherr.Kind{
	"invalid_credentials":     autherr.KindInvalidCredentials,
	"user_not_found":          autherr.KindUserNotFound,
	"user_not_confirmed":      autherr.KindUserNotConfirmed,
	"password_reset_required": autherr.KindPasswordResetRequired,
	"too_many_attempts":       autherr.KindTooManyAttempts,
	"refresh_token_expired":   autherr.KindRefreshTokenExpired,
	"refresh_token_revoked":   autherr.KindRefreshTokenRevoked,
	"session_invalid":         autherr.KindSessionInvalid,
}

func mapErrorResponse(status int, raw []byte, unauthorizedKind autherr.Kind) error {
	var body errorResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		if kind, ok := kindByCode[body.Error]; ok {
			return autherr.New(kind, body.ErrorDescription)
		}
	}

	switch {
	case status == http.StatusTooManyRequests:
		return autherr.New(autherr.KindTooManyAttempts, "too many attempts, slow down")
	case status == http.StatusUnauthorized:
		return autherr.New(unauthorizedKind, "")
	case status >= 500:
		return autherr.Newf(autherr.KindIdpUnreachable, "identity provider error (HTTP %d)", status)
	default:
		return autherr.Newf(autherr.KindIdpConfigurationError, "unexpected identity provider response (HTTP %d)", status)
	}
}
