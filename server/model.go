package server

import (
	"time"

	"oauthd/oauth2"
)

// Client records registered OAuth client metadata. It implements the
// engine's client capability interface.
type Client struct {
	id           string
	secret       string
	grantTypes   []oauth2.GrantType
	scopes       []string
	redirectURIs []string
}

// NewClient builds a client record.
func NewClient(id, secret string, grantTypes []oauth2.GrantType, scopes, redirectURIs []string) *Client {
	return &Client{
		id:           id,
		secret:       secret,
		grantTypes:   grantTypes,
		scopes:       scopes,
		redirectURIs: redirectURIs,
	}
}

func (c *Client) ID() string                              { return c.id }
func (c *Client) Secret() string                          { return c.secret }
func (c *Client) SupportedGrantTypes() []oauth2.GrantType { return c.grantTypes }
func (c *Client) SupportedScopes() []string               { return c.scopes }
func (c *Client) SupportedRedirectURIs() []string         { return c.redirectURIs }

// Token is an issued opaque access token.
type Token struct {
	tokenType string
	access    string
	refresh   string
	clientID  string
	ownerID   string
	scope     string
	lifetime  time.Duration
	issuedAt  time.Time
}

func (t *Token) Type() string            { return t.tokenType }
func (t *Token) AccessToken() string     { return t.access }
func (t *Token) RefreshToken() string    { return t.refresh }
func (t *Token) ExpiresIn() int64        { return int64(t.lifetime.Seconds()) }
func (t *Token) Scope() string           { return t.scope }
func (t *Token) ClientID() string        { return t.clientID }
func (t *Token) ResourceOwnerID() string { return t.ownerID }

// IssuedAt reports when the token was minted.
func (t *Token) IssuedAt() time.Time { return t.issuedAt }

// ExpiresAt reports the absolute expiry; the zero time means the token
// never expires.
func (t *Token) ExpiresAt() time.Time {
	if t.lifetime == 0 {
		return time.Time{}
	}
	return t.issuedAt.Add(t.lifetime)
}

// AuthorizationCode is a short-lived code binding a client, a resource
// owner, and a redirect URI until it is redeemed at the token endpoint.
type AuthorizationCode struct {
	code        string
	clientID    string
	ownerID     string
	redirectURI string
	scope       string
	lifetime    time.Duration
	issuedAt    time.Time
}

func (c *AuthorizationCode) Code() string            { return c.code }
func (c *AuthorizationCode) ClientID() string        { return c.clientID }
func (c *AuthorizationCode) ResourceOwnerID() string { return c.ownerID }
func (c *AuthorizationCode) RedirectURI() string     { return c.redirectURI }
func (c *AuthorizationCode) Scope() string           { return c.scope }
func (c *AuthorizationCode) ExpiresIn() int64        { return int64(c.lifetime.Seconds()) }

// ExpiresAt reports the absolute expiry; the zero time means the code
// never expires.
func (c *AuthorizationCode) ExpiresAt() time.Time {
	if c.lifetime == 0 {
		return time.Time{}
	}
	return c.issuedAt.Add(c.lifetime)
}

// ResourceOwner is an end user able to grant access during the
// authorization code flow.
type ResourceOwner struct {
	id       string
	username string
	password string
}

func (o *ResourceOwner) ID() string { return o.id }

// Username of the owner for login purposes.
func (o *ResourceOwner) Username() string { return o.username }

// Session captures a logged-in resource owner bound to a cookie.
type Session struct {
	ID        string
	OwnerID   string
	AuthTime  time.Time
	ExpiresAt time.Time
}
