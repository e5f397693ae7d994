package oauth2

import "context"

// Client is the capability surface the grant engine needs from a
// registered OAuth2 client. Records are owned by the ClientProvider and
// treated as immutable for the duration of a request.
type Client interface {
	ID() string
	Secret() string
	SupportedGrantTypes() []GrantType
	SupportedScopes() []string
	// SupportedRedirectURIs must be implemented by every client; the
	// authorization code grant rejects clients returning an empty set.
	SupportedRedirectURIs() []string
}

// Token is an issued access token as seen by the engine. RefreshToken,
// Scope, ResourceOwnerID, and ExpiresIn may be zero when the issuing
// grant did not set them.
type Token interface {
	// Type is the token_type of the wire response, normally "bearer".
	Type() string
	AccessToken() string
	RefreshToken() string
	// ExpiresIn is the token lifetime in seconds; zero means unspecified.
	ExpiresIn() int64
	Scope() string
	ClientID() string
	ResourceOwnerID() string
}

// AuthorizationCode is the short-lived artifact minted by the authorize
// phase and redeemed by the token phase of the authorization code grant.
type AuthorizationCode interface {
	Code() string
	ClientID() string
	ResourceOwnerID() string
	RedirectURI() string
	Scope() string
	// ExpiresIn is the code lifetime in seconds; zero means unspecified.
	ExpiresIn() int64
}

// ResourceOwner is the entity granting access during the authorization
// code flow, typically an end user.
type ResourceOwner interface {
	ID() string
}

// Provider collaborators own persistence of the engine's records. Finders
// report an absent record as (nil, nil); a non-nil error means the lookup
// itself failed and is propagated to the caller unchanged. Providers must
// be safe for concurrent use and supply their own consistency guarantees,
// including any single-use semantics for authorization codes.

// ClientProvider resolves and persists clients.
type ClientProvider interface {
	FindClientByID(ctx context.Context, id string) (Client, error)
	FindClientByIDAndSecret(ctx context.Context, id, secret string) (Client, error)
	SaveClient(ctx context.Context, client Client) error
}

// TokenProvider resolves and persists issued tokens.
type TokenProvider interface {
	FindTokenByAccessToken(ctx context.Context, accessToken string) (Token, error)
	SaveToken(ctx context.Context, token Token) error
}

// CodeProvider resolves and persists authorization codes.
type CodeProvider interface {
	FindCodeByValue(ctx context.Context, code string) (AuthorizationCode, error)
	SaveCode(ctx context.Context, code AuthorizationCode) error
}

// ResourceOwnerProvider resolves resource owners referenced by codes.
type ResourceOwnerProvider interface {
	FindResourceOwnerByID(ctx context.Context, id string) (ResourceOwner, error)
}

// TokenResponse is the wire-level success payload of the token endpoint.
// https://tools.ietf.org/html/rfc6749#section-5.1
type TokenResponse struct {
	TokenType    string `json:"token_type"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// NewTokenResponse builds the response payload from an issued token.
func NewTokenResponse(token Token) *TokenResponse {
	return &TokenResponse{
		TokenType:    token.Type(),
		AccessToken:  token.AccessToken(),
		RefreshToken: token.RefreshToken(),
		ExpiresIn:    token.ExpiresIn(),
		Scope:        token.Scope(),
	}
}
