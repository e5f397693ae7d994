package oauth2

import (
	"context"
	"fmt"
	"time"
)

// Shared in-memory fakes for the grant tests.

type testClient struct {
	id         string
	secret     string
	grantTypes []GrantType
	scopes     []string
	redirects  []string
}

func (c *testClient) ID() string                       { return c.id }
func (c *testClient) Secret() string                   { return c.secret }
func (c *testClient) SupportedGrantTypes() []GrantType { return c.grantTypes }
func (c *testClient) SupportedScopes() []string        { return c.scopes }
func (c *testClient) SupportedRedirectURIs() []string  { return c.redirects }

type testToken struct {
	access    string
	refresh   string
	scope     string
	clientID  string
	ownerID   string
	expiresIn int64
}

func (t *testToken) Type() string            { return "bearer" }
func (t *testToken) AccessToken() string     { return t.access }
func (t *testToken) RefreshToken() string    { return t.refresh }
func (t *testToken) ExpiresIn() int64        { return t.expiresIn }
func (t *testToken) Scope() string           { return t.scope }
func (t *testToken) ClientID() string        { return t.clientID }
func (t *testToken) ResourceOwnerID() string { return t.ownerID }

type testCode struct {
	code        string
	clientID    string
	ownerID     string
	redirectURI string
	scope       string
	expiresIn   int64
}

func (c *testCode) Code() string            { return c.code }
func (c *testCode) ClientID() string        { return c.clientID }
func (c *testCode) ResourceOwnerID() string { return c.ownerID }
func (c *testCode) RedirectURI() string     { return c.redirectURI }
func (c *testCode) Scope() string           { return c.scope }
func (c *testCode) ExpiresIn() int64        { return c.expiresIn }

type testOwner struct {
	id string
}

func (o *testOwner) ID() string { return o.id }

// testProvider implements all four provider interfaces over maps. Codes
// are not consumed on lookup; single-use semantics are a concern of real
// provider implementations.
type testProvider struct {
	clients map[string]*testClient
	tokens  map[string]Token
	codes   map[string]AuthorizationCode
	owners  map[string]ResourceOwner
}

func newTestProvider(clients ...*testClient) *testProvider {
	p := &testProvider{
		clients: make(map[string]*testClient),
		tokens:  make(map[string]Token),
		codes:   make(map[string]AuthorizationCode),
		owners:  make(map[string]ResourceOwner),
	}
	for _, c := range clients {
		p.clients[c.id] = c
	}
	return p
}

func (p *testProvider) FindClientByID(ctx context.Context, id string) (Client, error) {
	c, ok := p.clients[id]
	if !ok {
		return nil, nil
	}
	return c, nil
}

func (p *testProvider) FindClientByIDAndSecret(ctx context.Context, id, secret string) (Client, error) {
	c, ok := p.clients[id]
	if !ok || c.secret != secret {
		return nil, nil
	}
	return c, nil
}

func (p *testProvider) SaveClient(ctx context.Context, client Client) error {
	p.clients[client.ID()] = &testClient{
		id:         client.ID(),
		secret:     client.Secret(),
		grantTypes: client.SupportedGrantTypes(),
		scopes:     client.SupportedScopes(),
		redirects:  client.SupportedRedirectURIs(),
	}
	return nil
}

func (p *testProvider) FindTokenByAccessToken(ctx context.Context, accessToken string) (Token, error) {
	t, ok := p.tokens[accessToken]
	if !ok {
		return nil, nil
	}
	return t, nil
}

func (p *testProvider) SaveToken(ctx context.Context, token Token) error {
	p.tokens[token.AccessToken()] = token
	return nil
}

func (p *testProvider) FindCodeByValue(ctx context.Context, code string) (AuthorizationCode, error) {
	c, ok := p.codes[code]
	if !ok {
		return nil, nil
	}
	return c, nil
}

func (p *testProvider) SaveCode(ctx context.Context, code AuthorizationCode) error {
	p.codes[code.Code()] = code
	return nil
}

func (p *testProvider) FindResourceOwnerByID(ctx context.Context, id string) (ResourceOwner, error) {
	o, ok := p.owners[id]
	if !ok {
		return nil, nil
	}
	return o, nil
}

// testMinter implements TokenMinter, CodeMinter, and CodeTokenMinter.
type testMinter struct{}

func (testMinter) MintToken(ctx context.Context, client Client, accessToken string, lifetime time.Duration, scope string) (Token, error) {
	return &testToken{
		access:    accessToken,
		scope:     scope,
		clientID:  client.ID(),
		expiresIn: int64(lifetime.Seconds()),
	}, nil
}

func (testMinter) MintCode(ctx context.Context, client Client, owner ResourceOwner, code, redirectURI, scope string, lifetime time.Duration) (AuthorizationCode, error) {
	return &testCode{
		code:        code,
		clientID:    client.ID(),
		ownerID:     owner.ID(),
		redirectURI: redirectURI,
		scope:       scope,
		expiresIn:   int64(lifetime.Seconds()),
	}, nil
}

func (testMinter) MintTokenFromCode(ctx context.Context, code AuthorizationCode, client Client, owner ResourceOwner) (Token, error) {
	return &testToken{
		access:    "token-for-" + code.Code(),
		scope:     code.Scope(),
		clientID:  client.ID(),
		ownerID:   owner.ID(),
		expiresIn: 600,
	}, nil
}

// sequenceIDs hands out predictable identifiers.
type sequenceIDs struct {
	prefix string
	n      int
}

func (s *sequenceIDs) NewID() string {
	s.n++
	return fmt.Sprintf("%s-%d", s.prefix, s.n)
}

// staticAuthenticator returns a fixed resource owner or error.
type staticAuthenticator struct {
	owner ResourceOwner
	err   error
}

func (a staticAuthenticator) AuthenticateResourceOwner(ctx context.Context, req *AuthorizeRequest, client Client, scope string) (ResourceOwner, error) {
	return a.owner, a.err
}

func assertOAuthError(t interface {
	Helper()
	Fatalf(format string, args ...any)
}, err error, code string) *Error {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	oerr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if oerr.Code != code {
		t.Fatalf("expected error code %s, got %s (%s)", code, oerr.Code, oerr.Description)
	}
	return oerr
}
