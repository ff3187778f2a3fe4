// Package authcore is the authentication core of the Voyant travel
// platform: an SRP-6a login client against the identity provider, local
// JWT validation backed by a cached JWKS, and the HTTP middleware that
// enforces it. The business services sit behind the middleware and only
// ever see an identity.UserContext.
package authcore

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/voyant-travel/authcore/pkg/httpx"
	"github.com/voyant-travel/authcore/pkg/identity"
	"github.com/voyant-travel/authcore/pkg/idp"
	"github.com/voyant-travel/authcore/pkg/jwks"
	"github.com/voyant-travel/authcore/pkg/jwtx"
	"github.com/voyant-travel/authcore/pkg/metrics"
	"github.com/voyant-travel/authcore/pkg/slogx"
	"github.com/voyant-travel/authcore/pkg/srp"
)

func newLogger(cfg Config) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: "authcore",
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
}

// Core wires the module together. The individual components are exported
// for hosts that need finer control; Core itself covers the common path.
type Core struct {
	Log     *slog.Logger
	Metrics *metrics.Set
	IdP     *idp.Client
	Keys    *jwks.Manager
	Tokens  *jwtx.Validator
	SRP     *srp.Authenticator

	cfg Config
}

// Option configures Core construction.
type Option func(*coreOptions)

type coreOptions struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
	httpClient *http.Client
	kdf        srp.KeyDeriver
}

// WithLogger substitutes the logger built from the config's log settings.
func WithLogger(log *slog.Logger) Option {
	return func(o *coreOptions) { o.logger = log }
}

// WithRegisterer registers the module's metrics on reg. Without this
// option metrics are collected but not exported anywhere.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *coreOptions) { o.registerer = reg }
}

// WithHTTPClient substitutes the HTTP client used for IdP calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *coreOptions) { o.httpClient = hc }
}

// WithKDF selects the SRP session-key derivation the IdP implements.
func WithKDF(kdf srp.KeyDeriver) Option {
	return func(o *coreOptions) { o.kdf = kdf }
}

// New builds a Core from cfg.
func New(cfg Config, opts ...Option) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o coreOptions
	for _, opt := range opts {
		opt(&o)
	}

	log := o.logger
	if log == nil {
		log = newLogger(cfg)
	}
	m := metrics.New(o.registerer)

	idpOpts := []idp.Option{idp.WithTimeout(cfg.HTTPTimeout)}
	if o.httpClient != nil {
		idpOpts = append(idpOpts, idp.WithHTTPClient(o.httpClient))
	}
	client := idp.NewClient(cfg.IssuerURL, idpOpts...)

	keys := jwks.NewManager(client,
		jwks.WithTTL(cfg.JWKSCacheTTL),
		jwks.WithLogger(log),
		jwks.WithMetrics(m),
	)

	tokens := jwtx.NewValidator(keys, cfg.IssuerURL, cfg.ClientID,
		jwtx.WithLeeway(cfg.ClockSkewLeeway),
		jwtx.WithLogger(log),
		jwtx.WithMetrics(m),
	)

	group, err := srp.GroupByName(cfg.SRPGroup)
	if err != nil {
		return nil, err
	}
	authOpts := []srp.AuthOption{
		srp.WithGroup(group),
		srp.WithLogger(log),
		srp.WithMetrics(m),
	}
	if o.kdf != nil {
		authOpts = append(authOpts, srp.WithKDF(o.kdf))
	}
	auth, err := srp.NewAuthenticator(client, authOpts...)
	if err != nil {
		return nil, err
	}

	return &Core{
		Log:     log,
		Metrics: m,
		IdP:     client,
		Keys:    keys,
		Tokens:  tokens,
		SRP:     auth,
		cfg:     cfg,
	}, nil
}

// Login authenticates a user with SRP and returns the token set. The
// password is consumed by the proof computation and never transmitted.
func (c *Core) Login(ctx context.Context, username, password string) (*idp.Tokens, error) {
	return c.SRP.Login(ctx, username, password)
}

// Refresh exchanges a refresh token for fresh tokens.
func (c *Core) Refresh(ctx context.Context, refreshToken string) (*idp.Tokens, error) {
	return c.SRP.Refresh(ctx, refreshToken)
}

// ValidateSession checks the access token against the IdP itself, so
// server-side revocation is seen immediately.
func (c *Core) ValidateSession(ctx context.Context, accessToken string) (*identity.UserContext, error) {
	return c.SRP.ValidateSession(ctx, accessToken)
}

// ValidateToken verifies an access token locally against the cached
// signing keys.
func (c *Core) ValidateToken(ctx context.Context, token string) (*jwtx.Claims, error) {
	return c.Tokens.Validate(ctx, token, jwtx.UseAccess)
}

// Middleware returns the authn middleware configured from the Core.
func (c *Core) Middleware() httpx.Middleware {
	return httpx.AuthnMiddleware(c.Tokens,
		httpx.WithAllowlist(c.cfg.AllowlistPaths...),
		httpx.WithMetrics(c.Metrics),
	)
}
