// Package jwks caches the identity provider's published signing keys. The
// cache is an explicit, injectable object: every Manager owns its own key
// map, TTL clock, and single-flight group, so tests and multi-tenant hosts
// can run isolated instances.
package jwks

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/voyant-travel/authcore/pkg/autherr"
	"github.com/voyant-travel/authcore/pkg/idp"
	"github.com/voyant-travel/authcore/pkg/metrics"
)

// Fetcher is the slice of the IdP client the manager needs: discovery
// resolution and the key-set download itself.
type Fetcher interface {
	Discovery(ctx context.Context) (*idp.DiscoveryDocument, error)
	FetchJWKS(ctx context.Context, jwksURI string) (*idp.JWKS, error)
}

const (
	// DefaultTTL is how long a fetched key set is trusted before a lookup
	// triggers a refresh.
	DefaultTTL = time.Hour

	// DefaultFetchBudget bounds one fetch cycle including retries. The
	// fetch runs on a detached context so an impatient caller cannot kill
	// it for the other waiters; this budget is what stops it instead.
	DefaultFetchBudget = 30 * time.Second

	// fetchAttempts is the total number of tries for transient failures.
	fetchAttempts = 3

	// fetchBackoffBase is the initial retry delay.
	fetchBackoffBase = 200 * time.Millisecond

	// probeInterval caps how often an unknown kid may force a refresh of a
	// still-fresh cache. Genuine key rotation is rare; a flood of tokens
	// with bogus kids must not turn into a flood of fetches.
	probeInterval = 30 * time.Second
)

// Manager fetches, caches, and refreshes the IdP signing-key set.
type Manager struct {
	fetcher     Fetcher
	ttl         time.Duration
	fetchBudget time.Duration
	log         *slog.Logger
	metrics     *metrics.Set
	now         func() time.Time

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
	jwksURI   string

	sf      singleflight.Group
	probeRL *rate.Limiter
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) { m.ttl = ttl }
}

// WithFetchBudget overrides DefaultFetchBudget.
func WithFetchBudget(d time.Duration) ManagerOption {
	return func(m *Manager) { m.fetchBudget = d }
}

// WithJWKSURI pins the key-set URI, skipping discovery resolution.
func WithJWKSURI(uri string) ManagerOption {
	return func(m *Manager) { m.jwksURI = uri }
}

// WithLogger attaches a logger.
func WithLogger(log *slog.Logger) ManagerOption {
	return func(m *Manager) { m.log = log }
}

// WithMetrics attaches the module's metric set.
func WithMetrics(set *metrics.Set) ManagerOption {
	return func(m *Manager) { m.metrics = set }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithProbeInterval overrides the forced-refresh rate cap, for tests.
func WithProbeInterval(d time.Duration) ManagerOption {
	return func(m *Manager) { m.probeRL = rate.NewLimiter(rate.Every(d), 1) }
}

// NewManager builds a Manager over the given fetcher.
func NewManager(f Fetcher, opts ...ManagerOption) *Manager {
	m := &Manager{
		fetcher:     f,
		ttl:         DefaultTTL,
		fetchBudget: DefaultFetchBudget,
		log:         slog.Default(),
		now:         time.Now,
		keys:        make(map[string]*rsa.PublicKey),
		probeRL:     rate.NewLimiter(rate.Every(probeInterval), 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetKey returns the RSA public key for kid. A cache miss triggers a
// single-flight fetch; a kid still missing from a fresh set gets one
// rate-limited forced refresh (the rotation probe) before the lookup fails
// with UnknownKeyID.
func (m *Manager) GetKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if key, ok := m.cached(kid); ok {
		return key, nil
	}

	if err := m.refresh(ctx, false); err != nil {
		return nil, err
	}
	if key, ok := m.cached(kid); ok {
		return key, nil
	}

	// The set was fresh (or just fetched) and the kid is not in it. That
	// is the expected signal for key rotation, so probe once more.
	if m.probeRL.Allow() {
		if err := m.refresh(ctx, true); err != nil {
			return nil, err
		}
		if key, ok := m.cached(kid); ok {
			return key, nil
		}
	}

	return nil, autherr.Newf(autherr.KindUnknownKeyID, "no signing key with id %q", kid)
}

// ForceRefresh discards the TTL and fetches the key set now. Concurrent
// callers still collapse into one fetch.
func (m *Manager) ForceRefresh(ctx context.Context) error {
	return m.refresh(ctx, true)
}

// Ready reports whether at least one key has been loaded.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys) > 0
}

// cached returns kid's key when the set is present and inside its TTL.
// This is the read fast path: it takes only the read lock, so an in-flight
// fetch never blocks lookups for already-cached keys.
func (m *Manager) cached(kid string) (*rsa.PublicKey, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.fetchedAt.IsZero() || m.now().Sub(m.fetchedAt) >= m.ttl {
		return nil, false
	}
	key, ok := m.keys[kid]
	return key, ok
}

// refresh runs one single-flight fetch cycle. The fetch itself is detached
// from ctx: a caller that gives up waiting abandons only its wait, while
// the fetch completes and populates the cache for everyone else.
func (m *Manager) refresh(ctx context.Context, force bool) error {
	ch := m.sf.DoChan("jwks", func() (any, error) {
		return nil, m.fetch(force)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return autherr.Wrap(autherr.KindIdpUnreachable, "gave up waiting for key-set fetch", ctx.Err())
	}
}

// fetch resolves the JWKS URI, downloads the key set with bounded retries,
// and swaps the cache atomically.
func (m *Manager) fetch(force bool) error {
	// A sibling call may have refreshed while we queued behind the
	// single-flight group.
	m.mu.RLock()
	fresh := !m.fetchedAt.IsZero() && m.now().Sub(m.fetchedAt) < m.ttl
	uri := m.jwksURI
	m.mu.RUnlock()
	if fresh && !force {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.fetchBudget)
	defer cancel()

	var set *idp.JWKS
	op := func() error {
		if uri == "" {
			doc, err := m.fetcher.Discovery(ctx)
			if err != nil {
				return retryableOnly(err)
			}
			uri = doc.JWKSURI
		}
		var err error
		set, err = m.fetcher.FetchJWKS(ctx, uri)
		if err != nil {
			return retryableOnly(err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = fetchBackoffBase
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, fetchAttempts-1), ctx)); err != nil {
		m.metrics.JWKSFetch("error")
		m.log.Warn("jwks fetch failed", "kind", autherr.KindOf(err))
		return err
	}

	keys, err := parseKeySet(set)
	if err != nil {
		m.metrics.JWKSFetch("error")
		return err
	}

	m.mu.Lock()
	m.keys = keys
	m.fetchedAt = m.now()
	m.jwksURI = uri
	m.mu.Unlock()

	m.metrics.JWKSFetch("ok")
	m.log.Debug("jwks refreshed", "keys", len(keys))
	return nil
}

// retryableOnly wraps definitive failures so backoff stops retrying them.
// A 4xx from discovery or the JWKS endpoint means misconfiguration, and
// hammering it three times will not change the answer.
func retryableOnly(err error) error {
	if autherr.Retryable(err) {
		return err
	}
	return backoff.Permanent(err)
}

// parseKeySet converts the wire key set into usable RSA public keys.
// Non-RSA and encryption-only keys are skipped; a set with nothing usable
// is treated as misconfiguration.
func parseKeySet(set *idp.JWKS) (map[string]*rsa.PublicKey, error) {
	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, j := range set.Keys {
		if j.Kty != "RSA" || j.Kid == "" {
			continue
		}
		if j.Use != "" && j.Use != "sig" {
			continue
		}
		pub, err := parseRSAJWK(j)
		if err != nil {
			return nil, autherr.Wrap(autherr.KindIdpConfigurationError,
				fmt.Sprintf("unparseable signing key %q", j.Kid), err)
		}
		keys[j.Kid] = pub
	}
	if len(keys) == 0 {
		return nil, autherr.New(autherr.KindIdpConfigurationError, "key set contains no usable RSA signing keys")
	}
	return keys, nil
}

// parseRSAJWK decodes the base64url modulus and exponent of an RSA JWK.
func parseRSAJWK(j idp.JWK) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(j.N)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(j.E)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}
	n := new(big.Int).SetBytes(nb)
	e := new(big.Int).SetBytes(eb)
	if n.Sign() == 0 || !e.IsInt64() || e.Int64() <= 1 {
		return nil, fmt.Errorf("degenerate key parameters")
	}
	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}
