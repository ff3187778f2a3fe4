// Package autherr defines the failure taxonomy shared by the SRP login
// flow, token validation, and the request middleware. Every public
// operation in this module returns either a success value or an *Error
// carrying one of the Kind constants below.
package autherr

import (
	"errors"
	"fmt"
)

// Kind classifies an authentication failure. Kinds are stable strings so
// they can double as log fields and metric label values.
type Kind string

const (
	// Credential-level failures (from the IdP during login).
	KindInvalidCredentials    Kind = "invalid_credentials"
	KindUserNotFound          Kind = "user_not_found"
	KindUserNotConfirmed      Kind = "user_not_confirmed"
	KindPasswordResetRequired Kind = "password_reset_required"
	KindTooManyAttempts       Kind = "too_many_attempts"

	// Token-level failures (local JWT validation).
	KindMalformedToken       Kind = "malformed_token"
	KindUnsupportedAlgorithm Kind = "unsupported_algorithm"
	KindInvalidSignature     Kind = "invalid_signature"
	KindExpiredToken         Kind = "expired_token"
	KindInvalidIssuer        Kind = "invalid_issuer"
	KindInvalidAudience      Kind = "invalid_audience"
	KindWrongTokenType       Kind = "wrong_token_type"
	KindUnknownKeyID         Kind = "unknown_key_id"

	// Session-level failures.
	KindRefreshTokenExpired Kind = "refresh_token_expired"
	KindRefreshTokenRevoked Kind = "refresh_token_revoked"
	KindSessionInvalid      Kind = "session_invalid"

	// Protocol failures (SRP exchange produced an unusable value and the
	// attempt must be restarted with fresh ephemerals).
	KindProtocolError Kind = "protocol_error"

	// Infrastructure failures. IdpUnreachable is the only retryable kind.
	KindIdpUnreachable        Kind = "idp_unreachable"
	KindIdpConfigurationError Kind = "idp_configuration_error"
)

// credentialMessage is the single externally visible message for both
// InvalidCredentials and UserNotFound. Keeping them byte-identical prevents
// username enumeration against the login endpoint; the Kind still records
// the precise cause for internal logs and metrics.
const credentialMessage = "incorrect username or password"

// Error is a typed authentication failure.
type Error struct {
	Kind    Kind
	message string
	cause   error
}

// New returns an *Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, message: message}
}

// Newf is New with fmt.Sprintf formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, message: fmt.Sprintf(format, args...)}
}

// Wrap returns an *Error that records cause for errors.Is/As chains.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, message: message, cause: cause}
}

// Error implements error. Credential-probe kinds collapse to one shared
// message regardless of how the Error was constructed.
func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidCredentials, KindUserNotFound:
		return credentialMessage
	}
	if e.message != "" {
		return e.message
	}
	return string(e.Kind)
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// Is lets errors.Is match two *Errors by Kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

// KindOf extracts the Kind from err, unwrapping as needed. Errors that are
// not part of the taxonomy report an empty Kind.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether the failure is transient and worth retrying.
// Only IdP reachability problems qualify; every other kind is a definitive
// answer and retrying would not change it.
func Retryable(err error) bool {
	return IsKind(err, KindIdpUnreachable)
}
