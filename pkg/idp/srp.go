package idp

import (
	"context"

	"github.com/voyant-travel/authcore/pkg/autherr"
)

// SRPChallenge opens the SRP exchange: it sends the username and the
// client's public ephemeral A (hex) and returns the server's salt, B and
// secret block.
func (c *Client) SRPChallenge(ctx context.Context, username, srpAHex string) (*Challenge, error) {
	var out Challenge
	req := challengeRequest{Username: username, SRPA: srpAHex}
	if err := c.postJSON(ctx, "/v1/auth/srp/challenge", req, &out, autherr.KindUserNotFound); err != nil {
		return nil, err
	}
	return &out, nil
}

// SRPVerify submits the password-claim signature and, if the proof checks
// out server-side, returns the token set.
func (c *Client) SRPVerify(ctx context.Context, req VerifyRequest) (*Tokens, error) {
	var out Tokens
	if err := c.postJSON(ctx, "/v1/auth/srp/verify", req, &out, autherr.KindInvalidCredentials); err != nil {
		return nil, err
	}
	return &out, nil
}
