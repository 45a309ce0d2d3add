// Package discovery fetches OIDC provider metadata and maps it onto the
// endpoint set the flow engine consumes. Transport, caching and issuer
// validation are delegated to github.com/coreos/go-oidc.
package discovery

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/teemow/authflow/internal/flow"
)

// providerClaims are the raw metadata fields beyond the endpoints go-oidc
// exposes directly.
type providerClaims struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	RevocationEndpoint    string `json:"revocation_endpoint"`
	UserInfoEndpoint      string `json:"userinfo_endpoint"`
}

// Fetch retrieves the issuer's well-known OIDC configuration and returns the
// endpoint document. Issuer validation follows the OIDC discovery spec: the
// document's issuer must match the requested one.
func Fetch(ctx context.Context, issuer string) (*flow.DiscoveryDocument, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover provider %q: %w", issuer, err)
	}

	var claims providerClaims
	if err := provider.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to decode provider metadata: %w", err)
	}

	doc := &flow.DiscoveryDocument{
		AuthorizationEndpoint: claims.AuthorizationEndpoint,
		TokenEndpoint:         claims.TokenEndpoint,
		RevocationEndpoint:    claims.RevocationEndpoint,
		UserInfoEndpoint:      claims.UserInfoEndpoint,
	}
	if doc.AuthorizationEndpoint == "" {
		return nil, fmt.Errorf("provider %q advertises no authorization endpoint", issuer)
	}
	return doc, nil
}
