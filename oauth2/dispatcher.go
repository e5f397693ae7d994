// Package oauth2 implements an OAuth2 token-issuance engine: a
// dispatcher routing token requests to pluggable grant strategies, the
// client credentials and authorization code grants, scope negotiation,
// and the RFC 6749 error taxonomy. Persistence of clients, tokens,
// codes, and resource owners lives behind the provider interfaces in
// model.go; HTTP binding is left to a transport adapter.
package oauth2

import (
	"context"
	"fmt"
)

// Dispatcher routes token requests to registered grant strategies and
// authenticates bearer tokens. The grant registry is read-mostly:
// register grants at startup, before serving requests. Dispatching
// itself is stateless and safe for concurrent use as long as the
// providers are.
type Dispatcher struct {
	clients ClientProvider
	tokens  TokenProvider
	grants  map[GrantType]Grant
}

// NewDispatcher constructs a dispatcher around the shared client and
// token providers.
func NewDispatcher(clients ClientProvider, tokens TokenProvider) *Dispatcher {
	return &Dispatcher{
		clients: clients,
		tokens:  tokens,
		grants:  make(map[GrantType]Grant),
	}
}

// AddGrant registers a strategy under its grant type and wires it to the
// shared providers. Registering a second strategy for the same type
// replaces the first. AddGrant is not safe to call concurrently with
// Token; complete registration before serving.
func (d *Dispatcher) AddGrant(grant Grant) *Dispatcher {
	grant.SetProviders(d.clients, d.tokens)
	d.grants[grant.Type()] = grant
	return d
}

// RemoveGrant deregisters the strategy for a grant type and reports
// whether one was registered.
func (d *Dispatcher) RemoveGrant(t GrantType) bool {
	_, ok := d.grants[t]
	delete(d.grants, t)
	return ok
}

// Grant returns the strategy registered for a grant type, or an
// unsupported_grant_type error.
func (d *Dispatcher) Grant(t GrantType) (Grant, error) {
	grant, ok := d.grants[t]
	if !ok {
		return nil, NewUnsupportedGrantType(fmt.Sprintf("Unsupported grant type %q", t))
	}
	return grant, nil
}

// Grants returns the registered strategies in no particular order.
func (d *Dispatcher) Grants() []Grant {
	grants := make([]Grant, 0, len(d.grants))
	for _, g := range d.grants {
		grants = append(grants, g)
	}
	return grants
}

// Token resolves the grant type of the request and delegates to the
// matching strategy, returning its result verbatim. A missing grant_type
// fails with invalid_request, an unregistered one with
// unsupported_grant_type.
func (d *Dispatcher) Token(ctx context.Context, req *TokenRequest) (*TokenResponse, error) {
	if req.GrantType == "" {
		return nil, NewInvalidRequest("The grant_type parameter is required")
	}
	grant, err := d.Grant(GrantType(req.GrantType))
	if err != nil {
		return nil, err
	}
	return grant.Token(ctx, req)
}

// Authenticate resolves the client owning a bearer access token. An
// empty or unknown token fails with unauthorized. The client may be nil
// without error when it was removed after the token was issued.
func (d *Dispatcher) Authenticate(ctx context.Context, accessToken string) (Client, error) {
	if accessToken == "" {
		return nil, NewUnauthorized("No authentication given")
	}
	token, err := d.tokens.FindTokenByAccessToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, NewUnauthorized("Invalid token")
	}
	return d.clients.FindClientByID(ctx, token.ClientID())
}
