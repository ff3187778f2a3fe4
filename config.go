package authcore

import (
	"fmt"
	"net/url"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config is read once at startup; there is no hot reload. Every field can
// also be set programmatically, the env tags are for hosts that configure
// through the environment.
type Config struct {
	// IssuerURL is the IdP base URL; it must equal the iss claim of issued
	// tokens exactly.
	IssuerURL string `env:"AUTHCORE_ISSUER_URL,required"`

	// ClientID is the audience this service accepts tokens for.
	ClientID string `env:"AUTHCORE_CLIENT_ID,required"`

	// SRPGroup names the SRP-6a parameter set agreed with the IdP.
	SRPGroup string `env:"AUTHCORE_SRP_GROUP,default=rfc5054-3072"`

	// JWKSCacheTTL is how long fetched signing keys are trusted.
	JWKSCacheTTL time.Duration `env:"AUTHCORE_JWKS_CACHE_TTL,default=1h"`

	// HTTPTimeout bounds every network call to the IdP.
	HTTPTimeout time.Duration `env:"AUTHCORE_HTTP_TIMEOUT,default=10s"`

	// ClockSkewLeeway is the tolerance applied to token expiry checks.
	ClockSkewLeeway time.Duration `env:"AUTHCORE_CLOCK_SKEW_LEEWAY,default=60s"`

	// AllowlistPaths are exact request paths the middleware lets through
	// unauthenticated (semicolon-separated in the environment).
	AllowlistPaths []string `env:"AUTHCORE_ALLOWLIST_PATHS,default=/livez;/readyz"`

	LogLevel  string `env:"AUTHCORE_LOG_LEVEL,default=info"`
	LogFormat string `env:"AUTHCORE_LOG_FORMAT,default=json"`
}

// LoadConfig reads configuration from the environment and validates it.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return Config{}, fmt.Errorf("authcore: config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the parts of the configuration that envdecode cannot.
func (c Config) Validate() error {
	u, err := url.Parse(c.IssuerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("authcore: issuer URL %q is not absolute", c.IssuerURL)
	}
	if c.ClientID == "" {
		return fmt.Errorf("authcore: client ID is required")
	}
	if c.JWKSCacheTTL <= 0 {
		return fmt.Errorf("authcore: JWKS cache TTL must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("authcore: HTTP timeout must be positive")
	}
	if c.ClockSkewLeeway < 0 {
		return fmt.Errorf("authcore: clock-skew leeway must not be negative")
	}
	return nil
}
