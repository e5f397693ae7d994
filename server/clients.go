package server

import (
	"context"
	"errors"

	"oauthd/oauth2"
)

// ClientRegistry holds registered OAuth clients and implements the
// engine's client provider. The registry is populated at startup and
// read-only afterwards.
type ClientRegistry struct {
	clients map[string]*Client
}

// NewClientRegistry builds the registry from configuration.
func NewClientRegistry(cfgs []ClientConfig) (*ClientRegistry, error) {
	clients := make(map[string]*Client, len(cfgs))
	for _, cfg := range cfgs {
		if cfg.ClientID == "" {
			return nil, errors.New("client_id required")
		}
		grantTypes := make([]oauth2.GrantType, 0, len(cfg.GrantTypes))
		for _, gt := range cfg.GrantTypes {
			grantTypes = append(grantTypes, oauth2.GrantType(gt))
		}
		clients[cfg.ClientID] = NewClient(cfg.ClientID, cfg.ClientSecret, grantTypes, cfg.Scopes, cfg.RedirectURIs)
	}
	return &ClientRegistry{clients: clients}, nil
}

// Get retrieves a client definition.
func (cr *ClientRegistry) Get(id string) (*Client, bool) {
	client, ok := cr.clients[id]
	return client, ok
}

// Add registers a client in the registry (used for dev helpers and tests).
func (cr *ClientRegistry) Add(client *Client) {
	cr.clients[client.id] = client
}

// FindClientByID resolves a client by id, or (nil, nil) when unknown.
func (cr *ClientRegistry) FindClientByID(ctx context.Context, id string) (oauth2.Client, error) {
	client, ok := cr.clients[id]
	if !ok {
		return nil, nil
	}
	return client, nil
}

// FindClientByIDAndSecret resolves a client by id and secret, or
// (nil, nil) when either does not match.
func (cr *ClientRegistry) FindClientByIDAndSecret(ctx context.Context, id, secret string) (oauth2.Client, error) {
	client, ok := cr.clients[id]
	if !ok || client.secret != secret {
		return nil, nil
	}
	return client, nil
}

// SaveClient stores a client record.
func (cr *ClientRegistry) SaveClient(ctx context.Context, client oauth2.Client) error {
	if c, ok := client.(*Client); ok {
		cr.clients[c.id] = c
		return nil
	}
	cr.clients[client.ID()] = NewClient(
		client.ID(),
		client.Secret(),
		client.SupportedGrantTypes(),
		client.SupportedScopes(),
		client.SupportedRedirectURIs(),
	)
	return nil
}
