package idp

import (
	"context"

	"github.com/voyant-travel/authcore/pkg/autherr"
)

// Discovery fetches the OpenID discovery document from the issuer. The
// JWKS manager uses it to resolve the key-set URI rather than hard-coding
// a path.
func (c *Client) Discovery(ctx context.Context) (*DiscoveryDocument, error) {
	var doc DiscoveryDocument
	if err := c.getJSON(ctx, c.url("/.well-known/openid-configuration"), "", &doc, autherr.KindIdpConfigurationError); err != nil {
		return nil, err
	}
	if doc.JWKSURI == "" {
		return nil, autherr.New(autherr.KindIdpConfigurationError, "discovery document missing jwks_uri")
	}
	return &doc, nil
}

// FetchJWKS downloads the published key set. The URI comes from the
// discovery document and may live on a different host than the issuer.
func (c *Client) FetchJWKS(ctx context.Context, jwksURI string) (*JWKS, error) {
	var set JWKS
	if err := c.getJSON(ctx, jwksURI, "", &set, autherr.KindIdpConfigurationError); err != nil {
		return nil, err
	}
	return &set, nil
}
