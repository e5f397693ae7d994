package oauth2

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"time"
)

// ResourceOwnerAuthenticator establishes the resource owner granting the
// authorize request. Implementations may consult a session established
// out of band (for instance through a cookie carried in ctx by the
// transport adapter) or drive a login flow of their own. Returning an
// error or a nil owner denies the request; the grant reports either as
// access_denied.
type ResourceOwnerAuthenticator interface {
	AuthenticateResourceOwner(ctx context.Context, req *AuthorizeRequest, client Client, scope string) (ResourceOwner, error)
}

// CodeMinter builds the concrete authorization code record binding the
// client, resource owner, redirect URI, negotiated scope, and lifetime.
type CodeMinter interface {
	MintCode(ctx context.Context, client Client, owner ResourceOwner, code, redirectURI, scope string, lifetime time.Duration) (AuthorizationCode, error)
}

// CodeTokenMinter builds the token issued when an authorization code is
// redeemed. The minter generates the access (and any refresh) token
// string itself and decides how the code's scope and expiry carry over.
type CodeTokenMinter interface {
	MintTokenFromCode(ctx context.Context, code AuthorizationCode, client Client, owner ResourceOwner) (Token, error)
}

// AuthorizationCodeConfig configures an AuthorizationCodeGrant. Codes,
// ResourceOwners, Authenticator, CodeMinter, and TokenMinter are
// required.
type AuthorizationCodeConfig struct {
	Codes          CodeProvider
	ResourceOwners ResourceOwnerProvider
	Authenticator  ResourceOwnerAuthenticator
	CodeMinter     CodeMinter
	TokenMinter    CodeTokenMinter
	// CodeLifetime of minted authorization codes; zero mints codes
	// without an expiry.
	CodeLifetime time.Duration
	// IDGenerator defaults to UUIDGenerator.
	IDGenerator IDGenerator
}

// AuthorizationCodeGrant implements the two round-trip authorization
// code flow: Authorize mints a code and computes the redirect target,
// Token redeems the code for an access token. The two phases share no
// server-side session; they are correlated only through the code value
// and redirect URI.
// https://tools.ietf.org/html/rfc6749#section-4.1
type AuthorizationCodeGrant struct {
	cfg     AuthorizationCodeConfig
	clients ClientProvider
	tokens  TokenProvider
	ids     IDGenerator
}

// NewAuthorizationCodeGrant constructs the grant. The shared client and
// token providers are wired later by the dispatcher via SetProviders.
func NewAuthorizationCodeGrant(cfg AuthorizationCodeConfig) *AuthorizationCodeGrant {
	ids := cfg.IDGenerator
	if ids == nil {
		ids = UUIDGenerator{}
	}
	return &AuthorizationCodeGrant{cfg: cfg, ids: ids}
}

// Type returns "authorization_code".
func (g *AuthorizationCodeGrant) Type() GrantType {
	return GrantTypeAuthorizationCode
}

// SetProviders wires the shared client and token providers.
func (g *AuthorizationCodeGrant) SetProviders(clients ClientProvider, tokens TokenProvider) {
	g.clients = clients
	g.tokens = tokens
}

// Authorize runs phase A: it validates the request, resolves the client
// by id, enforces grant-type and redirect-URI policy, negotiates scope,
// authenticates the resource owner, mints and persists a code, and
// returns the redirect URL carrying the code and any client state. The
// transport adapter performs the actual redirect; on error nothing has
// been redirected and the error is rendered directly.
func (g *AuthorizationCodeGrant) Authorize(ctx context.Context, req *AuthorizeRequest) (*url.URL, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	client, err := g.clients.FindClientByID(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, NewInvalidClient("Invalid client")
	}

	if !supportsGrantType(client, GrantTypeAuthorizationCode) {
		return nil, NewUnauthorizedClient(fmt.Sprintf(
			"The authenticated client is not authorized to use the %q grant type", GrantTypeAuthorizationCode))
	}

	// A client without registered redirect URIs cannot use this grant.
	supported := client.SupportedRedirectURIs()
	if len(supported) == 0 {
		return nil, NewInvalidClient("Client did not return any supported redirect uri")
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

	redirectURI := req.RedirectURI
	if redirectURI == "" {
		redirectURI = supported[0]
	} else if !slices.Contains(supported, redirectURI) {
		return nil, NewInvalidClient(fmt.Sprintf("Client does not support the redirect uri %q", redirectURI))
	}

	owner, err := g.cfg.Authenticator.AuthenticateResourceOwner(ctx, req, client, scope)
	if err != nil {
		return nil, NewAccessDenied(err.Error())
	}
	if owner == nil {
		return nil, NewAccessDenied("")
	}

	code := g.ids.NewID()
	authCode, err := g.cfg.CodeMinter.MintCode(ctx, client, owner, code, redirectURI, scope, g.cfg.CodeLifetime)
	if err != nil {
		return nil, err
	}
	if err := g.cfg.Codes.SaveCode(ctx, authCode); err != nil {
		return nil, err
	}

	target, err := url.Parse(redirectURI)
	if err != nil {
		return nil, err
	}
	values := target.Query()
	values.Set("code", code)
	if req.State != "" {
		values.Set("state", req.State)
	}
	target.RawQuery = values.Encode()

	return target, nil
}

// Token runs phase B: it validates the request, resolves the client by
// id, checks grant-type policy, redeems the code, and issues the token.
// The client is authenticated by id only; a client_secret supplied here
// is not verified against the stored record. The redeeming client is
// likewise not compared against the client the code was issued to; only
// the redirect URI must match. Single-use and expiry enforcement on
// codes belongs to the CodeProvider.
func (g *AuthorizationCodeGrant) Token(ctx context.Context, req *TokenRequest) (*TokenResponse, error) {
	if err := req.ValidateAuthorizationCode(); err != nil {
		return nil, err
	}

	client, err := g.authenticateClient(ctx, req)
	if err != nil {
		return nil, err
	}

	if !supportsGrantType(client, GrantTypeAuthorizationCode) {
		return nil, NewUnauthorizedClient(fmt.Sprintf(
			"The authenticated client is not authorized to use the %q grant type", GrantTypeAuthorizationCode))
	}

	code, err := g.cfg.Codes.FindCodeByValue(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	if code == nil {
		return nil, NewInvalidGrant("Code is not valid")
	}

	if code.RedirectURI() != req.RedirectURI {
		return nil, NewInvalidGrant("Redirect uri does not match original redirect uri")
	}

	owner, err := g.cfg.ResourceOwners.FindResourceOwnerByID(ctx, code.ResourceOwnerID())
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, NewInvalidGrant("Resource owner not found")
	}

	token, err := g.cfg.TokenMinter.MintTokenFromCode(ctx, code, client, owner)
	if err != nil {
		return nil, err
	}
	if err := g.tokens.SaveToken(ctx, token); err != nil {
		return nil, err
	}

	return NewTokenResponse(token), nil
}

func (g *AuthorizationCodeGrant) authenticateClient(ctx context.Context, req *TokenRequest) (Client, error) {
	creds, err := req.Credentials()
	if err != nil {
		return nil, err
	}
	if creds == nil {
		return nil, NewInvalidClient("Invalid client credentials")
	}
	client, err := g.clients.FindClientByID(ctx, creds.ClientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, NewInvalidClient("Invalid client credentials")
	}
	return client, nil
}
