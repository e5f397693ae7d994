package server

import (
	"context"
	"time"

	"oauthd/oauth2"
)

// Minter implements the engine's minting hooks, producing the concrete
// token and code records stored by this server. All tokens are opaque
// bearer tokens.
type Minter struct {
	ids                oauth2.IDGenerator
	accessTokenTTL     time.Duration
	issueRefreshTokens bool
}

// NewMinter constructs the minter from configuration.
func NewMinter(cfg Config) *Minter {
	return &Minter{
		ids:                oauth2.UUIDGenerator{},
		accessTokenTTL:     cfg.Tokens.AccessTokenTTL(),
		issueRefreshTokens: cfg.Tokens.IssueRefreshTokens,
	}
}

// MintToken builds the token issued by the client credentials grant.
func (m *Minter) MintToken(ctx context.Context, client oauth2.Client, accessToken string, lifetime time.Duration, scope string) (oauth2.Token, error) {
	return &Token{
		tokenType: "bearer",
		access:    accessToken,
		clientID:  client.ID(),
		scope:     scope,
		lifetime:  lifetime,
		issuedAt:  time.Now(),
	}, nil
}

// MintCode builds the authorization code record issued by the authorize
// phase.
func (m *Minter) MintCode(ctx context.Context, client oauth2.Client, owner oauth2.ResourceOwner, code, redirectURI, scope string, lifetime time.Duration) (oauth2.AuthorizationCode, error) {
	return &AuthorizationCode{
		code:        code,
		clientID:    client.ID(),
		ownerID:     owner.ID(),
		redirectURI: redirectURI,
		scope:       scope,
		lifetime:    lifetime,
		issuedAt:    time.Now(),
	}, nil
}

// MintTokenFromCode builds the token issued when a code is redeemed. The
// code's scope carries over; the lifetime is the configured access token
// lifetime, and a refresh token is attached when configured.
func (m *Minter) MintTokenFromCode(ctx context.Context, code oauth2.AuthorizationCode, client oauth2.Client, owner oauth2.ResourceOwner) (oauth2.Token, error) {
	token := &Token{
		tokenType: "bearer",
		access:    m.ids.NewID(),
		clientID:  client.ID(),
		ownerID:   owner.ID(),
		scope:     code.Scope(),
		lifetime:  m.accessTokenTTL,
		issuedAt:  time.Now(),
	}
	if m.issueRefreshTokens {
		token.refresh = m.ids.NewID()
	}
	return token, nil
}
