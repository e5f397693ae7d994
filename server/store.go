package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"oauthd/oauth2"
)

// Store keeps tokens, authorization codes, resource owners, and sessions
// in memory. It implements the engine's token, code, and resource owner
// provider interfaces; clients live in the ClientRegistry.
type Store struct {
	mu       sync.RWMutex
	tokens   map[string]*Token
	codes    map[string]*AuthorizationCode
	owners   map[string]*ResourceOwner
	sessions map[string]Session
}

// NewStore constructs the store.
func NewStore() *Store {
	return &Store{
		tokens:   make(map[string]*Token),
		codes:    make(map[string]*AuthorizationCode),
		owners:   make(map[string]*ResourceOwner),
		sessions: make(map[string]Session),
	}
}

// NewID generates a random identifier.
func (s *Store) NewID() string {
	return uuid.NewString()
}

// AddResourceOwner registers a resource owner.
func (s *Store) AddResourceOwner(owner *ResourceOwner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[owner.id] = owner
}

// FindResourceOwnerByID resolves a resource owner, or (nil, nil) when
// unknown.
func (s *Store) FindResourceOwnerByID(ctx context.Context, id string) (oauth2.ResourceOwner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.owners[id]
	if !ok {
		return nil, nil
	}
	return owner, nil
}

// FindResourceOwnerByCredentials resolves a resource owner by username
// and password for the login flow.
func (s *Store) FindResourceOwnerByCredentials(username, password string) *ResourceOwner {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, owner := range s.owners {
		if owner.username == username && owner.password == password {
			return owner
		}
	}
	return nil
}

// SaveToken persists an issued token keyed by its access token string.
func (s *Store) SaveToken(ctx context.Context, token oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.AccessToken()] = asToken(token)
	return nil
}

// FindTokenByAccessToken resolves a token, or (nil, nil) when unknown or
// past its expiry.
func (s *Store) FindTokenByAccessToken(ctx context.Context, accessToken string) (oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[accessToken]
	if !ok {
		return nil, nil
	}
	if expiry := token.ExpiresAt(); !expiry.IsZero() && time.Now().After(expiry) {
		delete(s.tokens, accessToken)
		return nil, nil
	}
	return token, nil
}

// SaveCode persists an authorization code.
func (s *Store) SaveCode(ctx context.Context, code oauth2.AuthorizationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code.Code()] = asAuthorizationCode(code)
	return nil
}

// FindCodeByValue fetches and removes an authorization code. Codes are
// single use and expiry checked here: the engine itself never consumes
// or expires codes, so this store deliberately adds both guards at the
// provider level.
func (s *Store) FindCodeByValue(ctx context.Context, value string) (oauth2.AuthorizationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.codes[value]
	if !ok {
		return nil, nil
	}
	delete(s.codes, value)
	if expiry := code.ExpiresAt(); !expiry.IsZero() && time.Now().After(expiry) {
		return nil, nil
	}
	return code, nil
}

// SaveSession stores or replaces a session.
func (s *Store) SaveSession(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// DeleteSession removes a session.
func (s *Store) DeleteSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// asToken keeps the stored record concrete when an engine hook handed us
// a foreign Token implementation.
func asToken(token oauth2.Token) *Token {
	if t, ok := token.(*Token); ok {
		return t
	}
	return &Token{
		tokenType: token.Type(),
		access:    token.AccessToken(),
		refresh:   token.RefreshToken(),
		clientID:  token.ClientID(),
		ownerID:   token.ResourceOwnerID(),
		scope:     token.Scope(),
		lifetime:  time.Duration(token.ExpiresIn()) * time.Second,
		issuedAt:  time.Now(),
	}
}

func asAuthorizationCode(code oauth2.AuthorizationCode) *AuthorizationCode {
	if c, ok := code.(*AuthorizationCode); ok {
		return c
	}
	return &AuthorizationCode{
		code:        code.Code(),
		clientID:    code.ClientID(),
		ownerID:     code.ResourceOwnerID(),
		redirectURI: code.RedirectURI(),
		scope:       code.Scope(),
		lifetime:    time.Duration(code.ExpiresIn()) * time.Second,
		issuedAt:    time.Now(),
	}
}
