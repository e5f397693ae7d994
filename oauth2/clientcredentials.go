package oauth2

import (
	"context"
	"fmt"
	"time"
)

// TokenMinter builds the concrete token record issued by the client
// credentials grant. The access token string is already generated; the
// minter binds it to the client together with the configured lifetime
// and the negotiated scope (empty when none was requested).
type TokenMinter interface {
	MintToken(ctx context.Context, client Client, accessToken string, lifetime time.Duration, scope string) (Token, error)
}

// ClientCredentialsConfig configures a ClientCredentialsGrant.
type ClientCredentialsConfig struct {
	// Minter is required.
	Minter TokenMinter
	// AccessTokenLifetime of issued tokens; zero issues tokens without
	// an expiry.
	AccessTokenLifetime time.Duration
	// IDGenerator defaults to UUIDGenerator.
	IDGenerator IDGenerator
}

// ClientCredentialsGrant implements the single round-trip client
// credentials flow.
// https://tools.ietf.org/html/rfc6749#section-4.4
type ClientCredentialsGrant struct {
	cfg     ClientCredentialsConfig
	clients ClientProvider
	tokens  TokenProvider
	ids     IDGenerator
}

// NewClientCredentialsGrant constructs the grant. Providers are wired
// later by the dispatcher via SetProviders.
func NewClientCredentialsGrant(cfg ClientCredentialsConfig) *ClientCredentialsGrant {
	ids := cfg.IDGenerator
	if ids == nil {
		ids = UUIDGenerator{}
	}
	return &ClientCredentialsGrant{cfg: cfg, ids: ids}
}

// Type returns "client_credentials".
func (g *ClientCredentialsGrant) Type() GrantType {
	return GrantTypeClientCredentials
}

// SetProviders wires the shared client and token providers.
func (g *ClientCredentialsGrant) SetProviders(clients ClientProvider, tokens TokenProvider) {
	g.clients = clients
	g.tokens = tokens
}

// Token validates the request, authenticates the client by id and
// secret, negotiates the requested scope, and issues an access token.
// Every step short-circuits with a taxonomy error.
func (g *ClientCredentialsGrant) Token(ctx context.Context, req *TokenRequest) (*TokenResponse, error) {
	if err := req.ValidateClientCredentials(); err != nil {
		return nil, err
	}

	client, err := g.authenticateClient(ctx, req)
	if err != nil {
		return nil, err
	}

	if !supportsGrantType(client, GrantTypeClientCredentials) {
		return nil, NewUnauthorizedClient(fmt.Sprintf(
			"The authenticated client is not authorized to use the %q grant type", GrantTypeClientCredentials))
	}

	var scope string
	if req.Scope != "" {
		negotiated, ok := NegotiateScope(req.Scope, client.SupportedScopes())
		if !ok {
			return nil, NewInvalidScope(
				"The requested scope is invalid, unknown, malformed, or exceeds the scope granted by the resource owner")
		}
		scope = negotiated
	}

	accessToken := g.ids.NewID()
	token, err := g.cfg.Minter.MintToken(ctx, client, accessToken, g.cfg.AccessTokenLifetime, scope)
	if err != nil {
		return nil, err
	}
	if err := g.tokens.SaveToken(ctx, token); err != nil {
		return nil, err
	}

	return NewTokenResponse(token), nil
}

// authenticateClient resolves the request credentials and looks the
// client up by id and secret. A Basic Authorization pair wins over
// discrete fields; missing credentials or no matching client fail with
// invalid_client.
func (g *ClientCredentialsGrant) authenticateClient(ctx context.Context, req *TokenRequest) (Client, error) {
	creds, err := req.Credentials()
	if err != nil {
		return nil, err
	}
	if creds == nil || !creds.HasSecret {
		return nil, NewInvalidClient("Invalid client credentials")
	}
	client, err := g.clients.FindClientByIDAndSecret(ctx, creds.ClientID, creds.ClientSecret)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, NewInvalidClient("Invalid client credentials")
	}
	return client, nil
}
