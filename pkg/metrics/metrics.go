// Package metrics exposes the module's operational counters. Failure kinds
// are recorded here and in logs only; externally visible errors stay
// generic.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Set holds the module's counters. A nil *Set is valid and records
// nothing, so components never need to guard their instrumentation.
type Set struct {
	logins             *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	jwksFetches        *prometheus.CounterVec
	rejections         *prometheus.CounterVec
}

// New builds a Set and registers it on reg. Pass an isolated
// prometheus.NewRegistry() in tests; there is no default-registry fallback
// precisely so instances stay independent.
func New(reg prometheus.Registerer) *Set {
	s := &Set{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_logins_total",
			Help: "SRP login attempts by result.",
		}, []string{"result"}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_token_validation_failures_total",
			Help: "Token validation failures by kind.",
		}, []string{"kind"}),
		jwksFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_jwks_fetch_total",
			Help: "JWKS fetch attempts by result.",
		}, []string{"result"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_request_rejections_total",
			Help: "Requests rejected by the authn middleware, by kind.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(s.logins, s.validationFailures, s.jwksFetches, s.rejections)
	}
	return s
}

// Login records a login attempt outcome ("ok" or the failure kind).
func (s *Set) Login(result string) {
	if s == nil {
		return
	}
	s.logins.WithLabelValues(result).Inc()
}

// ValidationFailure records a token validation failure kind.
func (s *Set) ValidationFailure(kind string) {
	if s == nil {
		return
	}
	s.validationFailures.WithLabelValues(kind).Inc()
}

// JWKSFetch records a key-set fetch outcome ("ok" or "error").
func (s *Set) JWKSFetch(result string) {
	if s == nil {
		return
	}
	s.jwksFetches.WithLabelValues(result).Inc()
}

// Rejection records a middleware rejection kind.
func (s *Set) Rejection(kind string) {
	if s == nil {
		return
	}
	s.rejections.WithLabelValues(kind).Inc()
}
