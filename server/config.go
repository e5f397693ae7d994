package server

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"oauthd/oauth2"
)

// Hardcoded token and session defaults
const (
	DefaultAccessTokenTTL = 10 * time.Minute
	DefaultCodeTTL        = 5 * time.Minute
	DefaultSessionTTL     = 12 * time.Hour
)

// Hardcoded CORS defaults
var (
	DefaultCORSAllowedHeaders = []string{"Authorization", "Content-Type"}
	DefaultCORSAllowedMethods = []string{"GET", "POST", "OPTIONS"}
)

// Config captures the full application configuration loaded from YAML and environment variables.
type Config struct {
	Server        ServerConfig   `yaml:"server"`
	Tokens        TokenConfig    `yaml:"tokens"`
	OAuth2Clients []ClientConfig `yaml:"oauth2_clients"`
	Users         []UserConfig   `yaml:"users"`
}

// ServerConfig controls listener, TLS, and HTTP concerns.
type ServerConfig struct {
	PublicURL       string     `yaml:"public_url"`
	DevListenAddr   string     `yaml:"dev_listen_addr"`
	HTTPListenAddr  string     `yaml:"http_listen_addr"`
	HTTPSListenAddr string     `yaml:"https_listen_addr"`
	DevMode         bool       `yaml:"dev_mode"`
	CookieDomain    string     `yaml:"cookie_domain"`
	TLS             TLSConfig  `yaml:"tls"`
	CORS            CORSConfig `yaml:"cors"`
}

// TLSConfig defines autocert behaviour and TLS constraints.
type TLSConfig struct {
	Domains    []string `yaml:"domains"`
	Email      string   `yaml:"email"`
	MinVersion string   `yaml:"min_version"`
}

// CORSConfig controls the CORS policy applied to browser-facing endpoints.
type CORSConfig struct {
	ClientOriginURLs []string `yaml:"client_origin_urls"`
	AllowedMethods   []string `yaml:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers"`
}

// TokenConfig holds lifetimes for issued artifacts. Durations are Go
// duration strings; empty values fall back to the hardcoded defaults.
type TokenConfig struct {
	AccessTTL          string `yaml:"access_ttl"`
	CodeTTL            string `yaml:"code_ttl"`
	SessionTTL         string `yaml:"session_ttl"`
	IssueRefreshTokens bool   `yaml:"issue_refresh_tokens"`
}

// AccessTokenTTL resolves the configured access token lifetime.
func (t TokenConfig) AccessTokenTTL() time.Duration {
	return parseDuration(t.AccessTTL, DefaultAccessTokenTTL)
}

// AuthorizationCodeTTL resolves the configured code lifetime.
func (t TokenConfig) AuthorizationCodeTTL() time.Duration {
	return parseDuration(t.CodeTTL, DefaultCodeTTL)
}

// SessionLifetime resolves the configured session lifetime.
func (t TokenConfig) SessionLifetime() time.Duration {
	return parseDuration(t.SessionTTL, DefaultSessionTTL)
}

// ClientConfig describes an OAuth client.
type ClientConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	GrantTypes   []string `yaml:"grant_types"`
	Scopes       []string `yaml:"scopes"`
	RedirectURIs []string `yaml:"redirect_uris"`
}

// UserConfig describes a resource owner able to log in at the authorize
// endpoint.
type UserConfig struct {
	ID       string `yaml:"id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// LoadConfig reads the YAML config file and merges environment overrides.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		sanitized := stripYAMLComments(b)

		// Use strict unmarshaling to detect unknown fields
		decoder := yaml.NewDecoder(bytes.NewReader(sanitized))
		decoder.KnownFields(true)

		if err := decoder.Decode(&cfg); err != nil {
			if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
				slog.Error("Configuration contains unknown keys", "error", err, "file", path)
				return Config{}, fmt.Errorf("invalid config: %w (check for typos or deprecated fields)", err)
			}
			slog.Error("Failed to parse configuration", "error", err, "file", path)
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		return Config{}, err
	}

	return cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			PublicURL:       "http://127.0.0.1:8080",
			DevListenAddr:   "127.0.0.1:8080",
			HTTPListenAddr:  ":80",
			HTTPSListenAddr: ":443",
			DevMode:         true,
			TLS: TLSConfig{
				Domains:    []string{"localhost"},
				Email:      "",
				MinVersion: "1.2",
			},
		},
	}
}

// DefaultConfig returns the default configuration template.
func DefaultConfig() Config {
	return defaultConfig()
}

func stripYAMLComments(in []byte) []byte {
	lines := bytes.Split(in, []byte("\n"))
	out := make([][]byte, 0, len(lines))
	for _, line := range lines {
		trim := bytes.TrimLeft(line, " \t")
		if len(trim) > 0 && trim[0] == '#' {
			continue
		}
		out = append(out, line)
	}
	return bytes.Join(out, []byte("\n"))
}

func applyEnvOverrides(cfg *Config) {
	overrides := map[string]func(string){
		"OAUTHD_SERVER_PUBLIC_URL":        func(v string) { cfg.Server.PublicURL = v },
		"OAUTHD_SERVER_DEV_LISTEN_ADDR":   func(v string) { cfg.Server.DevListenAddr = v },
		"OAUTHD_SERVER_HTTP_LISTEN_ADDR":  func(v string) { cfg.Server.HTTPListenAddr = v },
		"OAUTHD_SERVER_HTTPS_LISTEN_ADDR": func(v string) { cfg.Server.HTTPSListenAddr = v },
		"OAUTHD_SERVER_DEV_MODE":          func(v string) { cfg.Server.DevMode = parseBool(v, cfg.Server.DevMode) },
		"OAUTHD_SERVER_TLS_DOMAINS":       func(v string) { cfg.Server.TLS.Domains = splitAndTrim(v) },
		"OAUTHD_SERVER_TLS_EMAIL":         func(v string) { cfg.Server.TLS.Email = v },
		"OAUTHD_TOKENS_ACCESS_TTL":        func(v string) { cfg.Tokens.AccessTTL = v },
		"OAUTHD_TOKENS_CODE_TTL":          func(v string) { cfg.Tokens.CodeTTL = v },
		"OAUTHD_TOKENS_SESSION_TTL":       func(v string) { cfg.Tokens.SessionTTL = v },
	}

	for key, fn := range overrides {
		if val, ok := os.LookupEnv(key); ok {
			fn(val)
		}
	}
}

func parseDuration(val string, fallback time.Duration) time.Duration {
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return d
}

func parseBool(val string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

var knownGrantTypes = []string{
	string(oauth2.GrantTypeAuthorizationCode),
	string(oauth2.GrantTypeImplicit),
	string(oauth2.GrantTypePassword),
	string(oauth2.GrantTypeClientCredentials),
}

// Validate performs sanity checks on the config.
func (c Config) Validate() error {
	if c.Server.PublicURL == "" {
		slog.Error("Missing required configuration", "field", "server.public_url")
		return errors.New("server.public_url is required")
	}

	if !strings.HasPrefix(c.Server.PublicURL, "http://") && !strings.HasPrefix(c.Server.PublicURL, "https://") {
		slog.Error("Invalid configuration value", "field", "server.public_url", "value", c.Server.PublicURL, "reason", "must start with http:// or https://")
		return fmt.Errorf("server.public_url must start with http:// or https://, got: %s", c.Server.PublicURL)
	}

	if !c.Server.DevMode && len(c.Server.TLS.Domains) == 0 {
		slog.Error("Missing required configuration for production mode", "field", "server.tls.domains")
		return errors.New("server.tls.domains must be provided in production")
	}

	if c.Server.TLS.MinVersion != "" {
		validVersions := map[string]bool{"1.2": true, "1.3": true}
		if !validVersions[c.Server.TLS.MinVersion] {
			slog.Error("Invalid TLS minimum version", "field", "server.tls.min_version", "value", c.Server.TLS.MinVersion, "valid_values", []string{"1.2", "1.3"})
			return fmt.Errorf("server.tls.min_version must be '1.2' or '1.3', got: %s", c.Server.TLS.MinVersion)
		}
	}

	for _, field := range []struct{ name, val string }{
		{"tokens.access_ttl", c.Tokens.AccessTTL},
		{"tokens.code_ttl", c.Tokens.CodeTTL},
		{"tokens.session_ttl", c.Tokens.SessionTTL},
	} {
		if field.val == "" {
			continue
		}
		if _, err := time.ParseDuration(field.val); err != nil {
			slog.Error("Invalid duration", "field", field.name, "value", field.val, "error", err)
			return fmt.Errorf("%s: invalid duration '%s': %w", field.name, field.val, err)
		}
	}

	if len(c.OAuth2Clients) == 0 {
		slog.Error("No OAuth2 clients configured")
		return errors.New("at least one OAuth2 client must be configured")
	}

	for i, client := range c.OAuth2Clients {
		if client.ClientID == "" {
			slog.Error("OAuth2 client missing client_id", "index", i)
			return fmt.Errorf("oauth2_clients[%d]: client_id is required", i)
		}
		if len(client.GrantTypes) == 0 {
			slog.Error("OAuth2 client missing grant types", "client_id", client.ClientID, "index", i)
			return fmt.Errorf("oauth2_clients[%d] (%s): at least one grant type is required", i, client.ClientID)
		}
		for _, gt := range client.GrantTypes {
			if !slices.Contains(knownGrantTypes, gt) {
				slog.Error("Unknown grant type", "client_id", client.ClientID, "grant_type", gt)
				return fmt.Errorf("oauth2_clients[%d] (%s): unknown grant type '%s'", i, client.ClientID, gt)
			}
		}
		usesAuthorizationCode := slices.Contains(client.GrantTypes, string(oauth2.GrantTypeAuthorizationCode))
		if usesAuthorizationCode && len(client.RedirectURIs) == 0 {
			slog.Error("OAuth2 client missing redirect URIs", "client_id", client.ClientID, "index", i)
			return fmt.Errorf("oauth2_clients[%d] (%s): at least one redirect_uri is required for the authorization_code grant", i, client.ClientID)
		}
		for j, uri := range client.RedirectURIs {
			if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
				slog.Error("Invalid redirect URI", "client_id", client.ClientID, "redirect_uri", uri, "index", j, "reason", "must be a valid HTTP(S) URL")
				return fmt.Errorf("oauth2_clients[%d] (%s): redirect_uris[%d] must start with http:// or https://, got: %s", i, client.ClientID, j, uri)
			}
		}
	}

	for i, user := range c.Users {
		if user.ID == "" {
			slog.Error("User missing id", "index", i)
			return fmt.Errorf("users[%d]: id is required", i)
		}
		if user.Username == "" {
			slog.Error("User missing username", "id", user.ID, "index", i)
			return fmt.Errorf("users[%d] (%s): username is required", i, user.ID)
		}
	}

	return nil
}

// InferCORSOrigins extracts allowed origins from OAuth2 client redirect URIs.
func (c Config) InferCORSOrigins() []string {
	seen := make(map[string]bool)
	origins := []string{}

	for _, client := range c.OAuth2Clients {
		for _, redirectURI := range client.RedirectURIs {
			if origin := extractOrigin(redirectURI); origin != "" && !seen[origin] {
				seen[origin] = true
				origins = append(origins, origin)
			}
		}
	}

	return origins
}

// extractOrigin extracts the origin (scheme://host:port) from a URL
func extractOrigin(urlStr string) string {
	if urlStr == "" {
		return ""
	}
	idx := strings.Index(urlStr, "://")
	if idx == -1 {
		return ""
	}
	scheme := urlStr[:idx]
	rest := urlStr[idx+3:]
	host := rest
	if i := strings.Index(rest, "/"); i != -1 {
		host = rest[:i]
	}
	if scheme == "" || host == "" {
		return ""
	}
	return scheme + "://" + host
}
