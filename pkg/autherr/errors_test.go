package autherr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voyant-travel/authcore/pkg/autherr"
)

func TestCredentialMessagesAreIndistinguishable(t *testing.T) {
	// The two kinds must render the same message no matter what message the
	// construction site supplied, otherwise a caller probing the login
	// endpoint could enumerate usernames.
	invalid := autherr.New(autherr.KindInvalidCredentials, "password mismatch for alice")
	notFound := autherr.New(autherr.KindUserNotFound, "no such user bob")

	require.Equal(t, invalid.Error(), notFound.Error())
	require.NotContains(t, invalid.Error(), "alice")
	require.NotContains(t, notFound.Error(), "bob")

	// Kinds stay distinct for internal logging.
	require.NotEqual(t, invalid.Kind, notFound.Kind)
}

func TestKindOfThroughWrapping(t *testing.T) {
	base := autherr.Wrap(autherr.KindIdpUnreachable, "challenge request failed", errors.New("dial tcp: timeout"))
	wrapped := fmt.Errorf("login: %w", base)

	require.Equal(t, autherr.KindIdpUnreachable, autherr.KindOf(wrapped))
	require.True(t, autherr.IsKind(wrapped, autherr.KindIdpUnreachable))
	require.False(t, autherr.IsKind(wrapped, autherr.KindInvalidCredentials))
}

func TestKindOfForeignError(t *testing.T) {
	require.Equal(t, autherr.Kind(""), autherr.KindOf(errors.New("plain")))
	require.Equal(t, autherr.Kind(""), autherr.KindOf(nil))
}

func TestRetryable(t *testing.T) {
	require.True(t, autherr.Retryable(autherr.New(autherr.KindIdpUnreachable, "timeout")))
	require.False(t, autherr.Retryable(autherr.New(autherr.KindIdpConfigurationError, "bad issuer URL")))
	require.False(t, autherr.Retryable(autherr.New(autherr.KindInvalidSignature, "")))
}

func TestErrorsIsMatchesByKind(t *testing.T) {
	a := autherr.New(autherr.KindExpiredToken, "exp in the past")
	b := autherr.New(autherr.KindExpiredToken, "different message")

	require.ErrorIs(t, fmt.Errorf("validate: %w", a), b)
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := autherr.Wrap(autherr.KindIdpUnreachable, "jwks fetch", cause)

	require.ErrorIs(t, err, cause)
}
