package idp

import (
	"context"

	"github.com/voyant-travel/authcore/pkg/autherr"
)

// RefreshTokens exchanges a refresh token for a fresh token set. The call
// is stateless on our side; whether the IdP rotates the refresh token
// (single-use) or returns the same one is its decision, and callers must
// always adopt the returned set.
func (c *Client) RefreshTokens(ctx context.Context, refreshToken string) (*Tokens, error) {
	var out Tokens
	req := refreshRequest{RefreshToken: refreshToken}
	if err := c.postJSON(ctx, "/v1/auth/token/refresh", req, &out, autherr.KindRefreshTokenExpired); err != nil {
		return nil, err
	}
	return &out, nil
}
