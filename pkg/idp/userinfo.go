package idp

import (
	"context"
	"encoding/json"

	"github.com/voyant-travel/authcore/pkg/autherr"
)

// UserInfo asks the IdP who the access token belongs to. Because the check
// is remote, IdP-side revocation takes effect immediately instead of
// waiting for the token's local expiry.
func (c *Client) UserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, c.url("/v1/auth/userinfo"), accessToken, &raw, autherr.KindSessionInvalid); err != nil {
		return nil, err
	}

	var info UserInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, autherr.Wrap(autherr.KindIdpConfigurationError, "identity provider returned an unreadable userinfo response", err)
	}

	// Keep the full claim set available to callers without enumerating
	// every provider-specific field here.
	var claims map[string]any
	if err := json.Unmarshal(raw, &claims); err == nil {
		info.Claims = claims
	}

	if info.Sub == "" {
		return nil, autherr.New(autherr.KindIdpConfigurationError, "userinfo response missing sub")
	}
	return &info, nil
}
