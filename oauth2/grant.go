package oauth2

import (
	"context"
	"slices"
)

// GrantType names an OAuth2 flow.
// https://tools.ietf.org/html/rfc6749#section-1.3
type GrantType string

const (
	GrantTypeAuthorizationCode GrantType = "authorization_code"
	GrantTypeImplicit          GrantType = "implicit"
	GrantTypePassword          GrantType = "password"
	GrantTypeClientCredentials GrantType = "client_credentials"
)

// Grant is a pluggable token-issuance strategy. Implementations hold no
// per-request state beyond their constructor-time configuration and
// injected providers, so a single instance serves concurrent requests.
type Grant interface {
	// Type is the grant_type value the dispatcher routes on.
	Type() GrantType

	// Token runs the grant's token sequence and returns the wire
	// response or a taxonomy error.
	Token(ctx context.Context, req *TokenRequest) (*TokenResponse, error)

	// SetProviders wires the shared client and token providers. The
	// dispatcher calls it when the grant is registered.
	SetProviders(clients ClientProvider, tokens TokenProvider)
}

func supportsGrantType(client Client, t GrantType) bool {
	return slices.Contains(client.SupportedGrantTypes(), t)
}
