package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes constructs the HTTP router with all OAuth2 endpoints.
func (a *App) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(a.Logger))
	r.Use(RecoveryMiddleware(a.Logger))
	r.Use(CORSMiddleware(a.Config.Server.CORS))

	r.Post("/oauth2/token", a.handleToken)
	r.Get("/oauth2/authorize", a.handleAuthorize)
	r.Post("/oauth2/login", a.handleLogin)
	r.Post("/oauth2/logout", a.handleLogout)
	r.Get("/oauth2/client", a.handleClient)

	r.Get("/healthz", a.handleHealth)

	return r
}
