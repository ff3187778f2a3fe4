package httpx

import (
	"context"

	"github.com/voyant-travel/authcore/pkg/identity"
)

type ctxKey struct{}

// withUser attaches the authenticated identity to the request context.
// Only the authn middleware calls this; downstream code reads it back with
// UserFromContext.
func withUser(ctx context.Context, u identity.UserContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// UserFromContext returns the identity attached by the authn middleware.
// ok is false when the request never passed through it.
func UserFromContext(ctx context.Context) (identity.UserContext, bool) {
	u, ok := ctx.Value(ctxKey{}).(identity.UserContext)
	return u, ok
}
