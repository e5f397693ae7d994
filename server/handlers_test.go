package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"oauthd/oauth2"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Server.DevMode = true
	cfg.OAuth2Clients = []ClientConfig{
		{
			ClientID:     "svc",
			ClientSecret: "s3cret",
			GrantTypes:   []string{"client_credentials"},
			Scopes:       []string{"read", "write"},
		},
		{
			ClientID:     "webapp",
			ClientSecret: "w3bs3cret",
			GrantTypes:   []string{"authorization_code"},
			Scopes:       []string{"read", "write"},
			RedirectURIs: []string{"http://app.example/callback"},
		},
	}
	cfg.Users = []UserConfig{{ID: "user-1", Username: "demo", Password: "pw"}}
	return cfg
}

func newTestApp(t *testing.T, cfg Config) *App {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app, err := NewApp(cfg, logger)
	if err != nil {
		t.Fatalf("NewApp returned error: %v", err)
	}
	return app
}

func postForm(handler http.Handler, path string, form url.Values, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

type wireError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	StatusCode       int    `json:"statusCode"`
	ValidationErrors []struct {
		Property   string `json:"property"`
		Constraint string `json:"constraint"`
	} `json:"validationErrors"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) wireError {
	t.Helper()
	var we wireError
	if err := json.NewDecoder(rec.Body).Decode(&we); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return we
}

func TestTokenEndpointClientCredentials(t *testing.T) {
	app := newTestApp(t, testConfig())
	handler := app.Routes()

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", "read admin")
	header := oauth2.EncodeBasicCredentials(oauth2.ClientCredentials{ClientID: "svc", ClientSecret: "s3cret"})
	rec := postForm(handler, "/oauth2/token", form, map[string]string{"Authorization": header})

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var resp oauth2.TokenResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TokenType != "bearer" || resp.AccessToken == "" {
		t.Fatalf("unexpected token response %+v", resp)
	}
	if resp.Scope != "read" {
		t.Fatalf("expected unsupported scope tokens dropped, got %q", resp.Scope)
	}
	if resp.ExpiresIn != int64(DefaultAccessTokenTTL.Seconds()) {
		t.Fatalf("unexpected expires_in %d", resp.ExpiresIn)
	}

	// The issued token authenticates the client endpoint.
	req := httptest.NewRequest(http.MethodGet, "/oauth2/client", nil)
	req.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	clientRec := httptest.NewRecorder()
	handler.ServeHTTP(clientRec, req)

	if clientRec.Code != http.StatusOK {
		t.Fatalf("client endpoint status %d: %s", clientRec.Code, clientRec.Body.String())
	}
	var info map[string]any
	if err := json.NewDecoder(clientRec.Body).Decode(&info); err != nil {
		t.Fatalf("decode client info: %v", err)
	}
	if info["client_id"] != "svc" {
		t.Fatalf("unexpected client info %v", info)
	}
}

func TestTokenEndpointWrongSecret(t *testing.T) {
	app := newTestApp(t, testConfig())

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", "svc")
	form.Set("client_secret", "wrong")
	rec := postForm(app.Routes(), "/oauth2/token", form, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	we := decodeError(t, rec)
	if we.Error != "invalid_client" || we.ErrorDescription != "Invalid client credentials" {
		t.Fatalf("unexpected error body %+v", we)
	}
}

func TestTokenEndpointRejectsWrongContentType(t *testing.T) {
	app := newTestApp(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/oauth2/token", strings.NewReader(`{"grant_type":"client_credentials"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	app.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	we := decodeError(t, rec)
	if we.Error != "invalid_request" {
		t.Fatalf("unexpected error %q", we.Error)
	}
	if !strings.Contains(we.ErrorDescription, "application/x-www-form-urlencoded") {
		t.Fatalf("unexpected description %q", we.ErrorDescription)
	}
}

func TestTokenEndpointMalformedBasicHeader(t *testing.T) {
	app := newTestApp(t, testConfig())

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	rec := postForm(app.Routes(), "/oauth2/token", form, map[string]string{"Authorization": "Basic not-base64!!"})

	we := decodeError(t, rec)
	if we.Error != "invalid_request" || we.ErrorDescription != "Basic authorization header is malformed" {
		t.Fatalf("unexpected error body %+v", we)
	}
}

func TestTokenEndpointMissingGrantType(t *testing.T) {
	app := newTestApp(t, testConfig())

	rec := postForm(app.Routes(), "/oauth2/token", url.Values{}, nil)
	we := decodeError(t, rec)
	if we.Error != "invalid_request" || we.ErrorDescription != "The grant_type parameter is required" {
		t.Fatalf("unexpected error body %+v", we)
	}
}

func TestTokenEndpointUnsupportedGrantType(t *testing.T) {
	app := newTestApp(t, testConfig())

	form := url.Values{}
	form.Set("grant_type", "password")
	rec := postForm(app.Routes(), "/oauth2/token", form, nil)

	we := decodeError(t, rec)
	if we.Error != "unsupported_grant_type" || we.ErrorDescription != `Unsupported grant type "password"` {
		t.Fatalf("unexpected error body %+v", we)
	}
}

func TestAuthorizationCodeFlowDevMode(t *testing.T) {
	app := newTestApp(t, testConfig())
	handler := app.Routes()

	// Dev mode authenticates the first configured user without a login.
	req := httptest.NewRequest(http.MethodGet, "/oauth2/authorize?response_type=code&client_id=webapp&scope=read&state=xyz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	location, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse redirect location: %v", err)
	}
	if location.Host != "app.example" || location.Path != "/callback" {
		t.Fatalf("unexpected redirect target %q", location.String())
	}
	code := location.Query().Get("code")
	if code == "" {
		t.Fatalf("redirect missing code: %q", location.String())
	}
	if location.Query().Get("state") != "xyz" {
		t.Fatalf("state not propagated: %q", location.String())
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", "webapp")
	form.Set("client_secret", "w3bs3cret")
	form.Set("code", code)
	form.Set("redirect_uri", "http://app.example/callback")
	tokenRec := postForm(handler, "/oauth2/token", form, nil)

	if tokenRec.Code != http.StatusOK {
		t.Fatalf("exchange status %d: %s", tokenRec.Code, tokenRec.Body.String())
	}
	var resp oauth2.TokenResponse
	if err := json.NewDecoder(tokenRec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode token response: %v", err)
	}
	if resp.AccessToken == "" || resp.Scope != "read" {
		t.Fatalf("unexpected token response %+v", resp)
	}

	// Codes are single use.
	replay := postForm(handler, "/oauth2/token", form, nil)
	if replay.Code != http.StatusBadRequest {
		t.Fatalf("replay status %d", replay.Code)
	}
	we := decodeError(t, replay)
	if we.Error != "invalid_grant" || we.ErrorDescription != "Code is not valid" {
		t.Fatalf("unexpected replay error %+v", we)
	}
}

func TestAuthorizeRedirectMismatchOnRedeem(t *testing.T) {
	app := newTestApp(t, testConfig())
	handler := app.Routes()

	req := httptest.NewRequest(http.MethodGet, "/oauth2/authorize?response_type=code&client_id=webapp", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusFound {
		t.Fatalf("authorize status %d", rec.Code)
	}
	location, _ := url.Parse(rec.Header().Get("Location"))

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", "webapp")
	form.Set("client_secret", "w3bs3cret")
	form.Set("code", location.Query().Get("code"))
	tokenRec := postForm(handler, "/oauth2/token", form, nil)

	we := decodeError(t, tokenRec)
	if we.Error != "invalid_grant" || we.ErrorDescription != "Redirect uri does not match original redirect uri" {
		t.Fatalf("unexpected error body %+v", we)
	}
}

func TestAuthorizeErrorsRenderedDirectly(t *testing.T) {
	app := newTestApp(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/oauth2/authorize?response_type=code&client_id=ghost", nil)
	rec := httptest.NewRecorder()
	app.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "" {
		t.Fatalf("error must not redirect, got Location %q", loc)
	}
	we := decodeError(t, rec)
	if we.Error != "invalid_client" || we.ErrorDescription != "Invalid client" {
		t.Fatalf("unexpected error body %+v", we)
	}
}

func TestAuthorizeValidationErrors(t *testing.T) {
	app := newTestApp(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/oauth2/authorize?response_type=token", nil)
	rec := httptest.NewRecorder()
	app.Routes().ServeHTTP(rec, req)

	we := decodeError(t, rec)
	if we.Error != "invalid_request" {
		t.Fatalf("unexpected error %q", we.Error)
	}
	if len(we.ValidationErrors) != 2 {
		t.Fatalf("expected 2 validation errors, got %+v", we.ValidationErrors)
	}
}

func TestLoginSessionAuthorizeFlow(t *testing.T) {
	cfg := testConfig()
	cfg.Server.DevMode = false
	cfg.Server.TLS.Domains = []string{"auth.example.com"}
	app := newTestApp(t, cfg)
	handler := app.Routes()

	// Without a session the authorize request is denied.
	req := httptest.NewRequest(http.MethodGet, "/oauth2/authorize?response_type=code&client_id=webapp", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("unauthenticated authorize status %d: %s", rec.Code, rec.Body.String())
	}
	we := decodeError(t, rec)
	if we.Error != "access_denied" {
		t.Fatalf("unexpected error %q", we.Error)
	}

	// Bad credentials are rejected.
	form := url.Values{}
	form.Set("username", "demo")
	form.Set("password", "wrong")
	if rec := postForm(handler, "/oauth2/login", form, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status %d", rec.Code)
	}

	form.Set("password", "pw")
	loginRec := postForm(handler, "/oauth2/login", form, nil)
	if loginRec.Code != http.StatusNoContent {
		t.Fatalf("login status %d: %s", loginRec.Code, loginRec.Body.String())
	}
	cookies := loginRec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("login did not set a session cookie")
	}

	// With the session cookie the flow proceeds.
	authReq := httptest.NewRequest(http.MethodGet, "/oauth2/authorize?response_type=code&client_id=webapp", nil)
	for _, c := range cookies {
		authReq.AddCookie(c)
	}
	authRec := httptest.NewRecorder()
	handler.ServeHTTP(authRec, authReq)
	if authRec.Code != http.StatusFound {
		t.Fatalf("authenticated authorize status %d: %s", authRec.Code, authRec.Body.String())
	}
	location, _ := url.Parse(authRec.Header().Get("Location"))
	if location.Query().Get("code") == "" {
		t.Fatalf("redirect missing code: %q", location.String())
	}
}

func TestLogoutClearsSessionCookie(t *testing.T) {
	app := newTestApp(t, testConfig())

	rec := postForm(app.Routes(), "/oauth2/logout", url.Values{}, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout status %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge != -1 {
		t.Fatalf("expected expired session cookie, got %+v", cookies)
	}
}

func TestClientEndpointRequiresBearer(t *testing.T) {
	app := newTestApp(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/oauth2/client", nil)
	rec := httptest.NewRecorder()
	app.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	we := decodeError(t, rec)
	if we.Error != "unauthorized" || we.ErrorDescription != "No authentication given" {
		t.Fatalf("unexpected error body %+v", we)
	}
}

func TestClientEndpointRejectsUnknownToken(t *testing.T) {
	app := newTestApp(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/oauth2/client", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec := httptest.NewRecorder()
	app.Routes().ServeHTTP(rec, req)

	we := decodeError(t, rec)
	if we.Error != "unauthorized" || we.ErrorDescription != "Invalid token" {
		t.Fatalf("unexpected error body %+v", we)
	}
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	app.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected body %v", body)
	}
}
