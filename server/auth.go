package server

import (
	"context"
	"errors"
	"log/slog"

	"oauthd/oauth2"
)

type ownerContextKey struct{}

// WithResourceOwner marks the request context as authenticated for a
// resource owner. The authorize handler sets it after resolving the
// session cookie.
func WithResourceOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerContextKey{}, ownerID)
}

// ResourceOwnerFromContext returns the authenticated owner id, if any.
func ResourceOwnerFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ownerContextKey{}).(string); ok {
		return id
	}
	return ""
}

// SessionAuthenticator implements the engine's resource owner
// authentication hook. It resolves the owner established by the session
// cookie (carried in ctx by the authorize handler); in dev mode, an
// unauthenticated request falls back to the first configured user so
// flows can be exercised without a login round trip.
type SessionAuthenticator struct {
	store      *Store
	logger     *slog.Logger
	devMode    bool
	devOwnerID string
}

// NewSessionAuthenticator constructs the authenticator.
func NewSessionAuthenticator(cfg Config, store *Store, logger *slog.Logger) *SessionAuthenticator {
	devOwnerID := ""
	if cfg.Server.DevMode && len(cfg.Users) > 0 {
		devOwnerID = cfg.Users[0].ID
	}
	return &SessionAuthenticator{
		store:      store,
		logger:     logger,
		devMode:    cfg.Server.DevMode,
		devOwnerID: devOwnerID,
	}
}

// AuthenticateResourceOwner resolves the resource owner for an authorize
// request. Failures surface as access_denied in the grant.
func (sa *SessionAuthenticator) AuthenticateResourceOwner(ctx context.Context, req *oauth2.AuthorizeRequest, client oauth2.Client, scope string) (oauth2.ResourceOwner, error) {
	if id := ResourceOwnerFromContext(ctx); id != "" {
		owner, err := sa.store.FindResourceOwnerByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if owner != nil {
			return owner, nil
		}
		sa.logger.Warn("session references unknown resource owner", "owner_id", id)
	}

	if sa.devMode && sa.devOwnerID != "" {
		sa.logger.Debug("dev mode resource owner fallback", "owner_id", sa.devOwnerID, "client_id", client.ID())
		return sa.store.FindResourceOwnerByID(ctx, sa.devOwnerID)
	}

	return nil, errors.New("resource owner login required")
}
