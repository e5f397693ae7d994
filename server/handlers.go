package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"oauthd/oauth2"
)

// App bundles runtime dependencies for the HTTP service.
type App struct {
	Config     Config
	Logger     *slog.Logger
	Store      *Store
	Clients    *ClientRegistry
	Sessions   *SessionManager
	Dispatcher *oauth2.Dispatcher

	codeGrant *oauth2.AuthorizationCodeGrant
}

// NewApp wires together the application state from configuration.
func NewApp(cfg Config, logger *slog.Logger) (*App, error) {
	if len(cfg.Server.CORS.ClientOriginURLs) == 0 {
		cfg.Server.CORS.ClientOriginURLs = cfg.InferCORSOrigins()
	}

	store := NewStore()
	for _, user := range cfg.Users {
		store.AddResourceOwner(&ResourceOwner{id: user.ID, username: user.Username, password: user.Password})
	}

	clients, err := NewClientRegistry(cfg.OAuth2Clients)
	if err != nil {
		return nil, err
	}

	sessions := NewSessionManager(cfg, store, logger)
	minter := NewMinter(cfg)
	authenticator := NewSessionAuthenticator(cfg, store, logger)

	codeGrant := oauth2.NewAuthorizationCodeGrant(oauth2.AuthorizationCodeConfig{
		Codes:          store,
		ResourceOwners: store,
		Authenticator:  authenticator,
		CodeMinter:     minter,
		TokenMinter:    minter,
		CodeLifetime:   cfg.Tokens.AuthorizationCodeTTL(),
	})

	dispatcher := oauth2.NewDispatcher(clients, store)
	dispatcher.AddGrant(oauth2.NewClientCredentialsGrant(oauth2.ClientCredentialsConfig{
		Minter:              minter,
		AccessTokenLifetime: cfg.Tokens.AccessTokenTTL(),
	}))
	dispatcher.AddGrant(codeGrant)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		Clients:    clients,
		Sessions:   sessions,
		Dispatcher: dispatcher,
		codeGrant:  codeGrant,
	}, nil
}

func (a *App) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := oauth2.CheckContentType(r.Header.Get("Content-Type")); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		a.writeError(w, r, oauth2.NewInvalidRequest("invalid form"))
		return
	}

	req := oauth2.ParseTokenRequest(r.PostForm, r.Header.Get("Authorization"))
	resp, err := a.Dispatcher.Token(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, resp)
}

func (a *App) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	req := oauth2.ParseAuthorizeRequest(r.URL.Query())

	ctx := r.Context()
	session, err := a.Sessions.Fetch(r)
	if err != nil {
		a.Logger.Warn("session fetch error", "error", err)
	}
	if session != nil {
		ctx = WithResourceOwner(ctx, session.OwnerID)
	}

	// Errors are rendered directly as JSON; nothing has been redirected
	// at the point any of them can occur.
	target, err := a.codeGrant.Authorize(ctx, req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	http.Redirect(w, r, target.String(), http.StatusFound)
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.writeError(w, r, oauth2.NewInvalidRequest("invalid form"))
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	owner := a.Store.FindResourceOwnerByCredentials(username, password)
	if owner == nil {
		a.writeError(w, r, oauth2.NewUnauthorized("Invalid credentials"))
		return
	}

	if _, err := a.Sessions.Create(w, owner.id); err != nil {
		a.writeError(w, r, err)
		return
	}

	// Bounce back into the authorize flow when a relative target is given.
	if next := r.PostFormValue("next"); next != "" && strings.HasPrefix(next, "/") {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	a.Sessions.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleClient resolves the client owning the presented bearer token. A
// valid token whose client has since been removed yields a null body
// rather than an error.
func (a *App) handleClient(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r.Header.Get("Authorization"))
	client, err := a.Dispatcher.Authenticate(r.Context(), token)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if client == nil {
		writeJSON(w, nil)
		return
	}

	writeJSON(w, map[string]any{
		"client_id":   client.ID(),
		"grant_types": client.SupportedGrantTypes(),
		"scopes":      client.SupportedScopes(),
	})
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (a *App) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var oerr *oauth2.Error
	if !errors.As(err, &oerr) {
		a.Logger.Error("request failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		oerr = &oauth2.Error{Code: "server_error", StatusCode: http.StatusInternalServerError}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(oerr.StatusCode)
	_ = json.NewEncoder(w).Encode(oerr)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
