package oauth2

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// FormContentType is the only media type accepted on token requests.
const FormContentType = "application/x-www-form-urlencoded"

// CheckContentType verifies the Content-Type of an inbound token request,
// ignoring media type parameters such as charset.
func CheckContentType(contentType string) error {
	mediaType := contentType
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = mediaType[:i]
	}
	if strings.TrimSpace(mediaType) != FormContentType {
		return NewInvalidRequest(fmt.Sprintf("The request must be sent using the %s format", FormContentType))
	}
	return nil
}

// ClientCredentials is a client id and secret pair extracted from a
// request, either from discrete form fields or from a Basic
// Authorization header. HasSecret distinguishes an absent secret from an
// empty one.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
	HasSecret    bool
}

// EncodeBasicCredentials builds a Basic Authorization header value from
// client credentials. Both parts are percent-encoded before being joined
// with a colon, so ids and secrets may themselves contain colons.
func EncodeBasicCredentials(creds ClientCredentials) string {
	payload := url.QueryEscape(creds.ClientID) + ":" + url.QueryEscape(creds.ClientSecret)
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(payload))
}

// DecodeBasicCredentials parses a Basic Authorization header value. Any
// deviation from "Basic" + base64 of two percent-encoded, colon-joined
// parts fails with invalid_request.
func DecodeBasicCredentials(header string) (*ClientCredentials, error) {
	malformed := NewInvalidRequest("Basic authorization header is malformed")

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Basic" {
		return nil, malformed
	}
	raw, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, malformed
	}
	id, secret, ok := strings.Cut(string(raw), ":")
	if !ok {
		return nil, malformed
	}
	clientID, err := url.QueryUnescape(id)
	if err != nil {
		return nil, malformed
	}
	clientSecret, err := url.QueryUnescape(secret)
	if err != nil {
		return nil, malformed
	}
	return &ClientCredentials{ClientID: clientID, ClientSecret: clientSecret, HasSecret: true}, nil
}

// TokenRequest is the transient, per-call representation of a token
// endpoint request. It is never persisted. Parse it from decoded form
// values with ParseTokenRequest so that field presence is tracked, or
// build it directly for programmatic use, in which case a non-empty
// value counts as present.
type TokenRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string
	Scope        string
	Code         string
	RedirectURI  string

	// Authorization carries the raw Authorization header of the
	// transport request, if any. A Basic credential pair found here
	// takes precedence over the discrete client fields.
	Authorization string

	form url.Values
}

// ParseTokenRequest builds a TokenRequest from decoded form values and
// the raw Authorization header.
func ParseTokenRequest(form url.Values, authorization string) *TokenRequest {
	return &TokenRequest{
		GrantType:     form.Get("grant_type"),
		ClientID:      form.Get("client_id"),
		ClientSecret:  form.Get("client_secret"),
		Scope:         form.Get("scope"),
		Code:          form.Get("code"),
		RedirectURI:   form.Get("redirect_uri"),
		Authorization: authorization,
		form:          form,
	}
}

func (r *TokenRequest) has(key, value string) bool {
	if r.form != nil {
		return r.form.Has(key)
	}
	return value != ""
}

// Credentials resolves the client credentials of the request. A Basic
// Authorization header wins over discrete fields and must be well formed
// if present. The result is nil when no client_id was supplied at all;
// HasSecret is false when client_secret was absent.
func (r *TokenRequest) Credentials() (*ClientCredentials, error) {
	if r.Authorization != "" {
		return DecodeBasicCredentials(r.Authorization)
	}
	if !r.has("client_id", r.ClientID) || r.ClientID == "" {
		return nil, nil
	}
	creds := &ClientCredentials{ClientID: r.ClientID}
	if r.has("client_secret", r.ClientSecret) && r.ClientSecret != "" {
		creds.ClientSecret = r.ClientSecret
		creds.HasSecret = true
	}
	return creds, nil
}

// ValidateClientCredentials checks the request shape for the client
// credentials grant: grant_type must equal "client_credentials",
// client_id is optional but non-empty when present, and client_secret is
// required whenever a client_id is given. Failures are collected and
// returned as a single invalid_request error.
func (r *TokenRequest) ValidateClientCredentials() error {
	var fields []FieldError
	if r.GrantType != string(GrantTypeClientCredentials) {
		fields = append(fields, equalsError("grant_type", string(GrantTypeClientCredentials)))
	}
	if r.has("client_id", r.ClientID) && r.ClientID == "" {
		fields = append(fields, minLengthError("client_id"))
	}
	if r.ClientID != "" && r.ClientSecret == "" {
		fields = append(fields, minLengthError("client_secret"))
	}
	if len(fields) > 0 {
		return NewInvalidRequest("", fields...)
	}
	return nil
}

// ValidateAuthorizationCode checks the request shape for the token phase
// of the authorization code grant: code is required, client_id is
// optional but non-empty when present, client_secret is required iff a
// client_id is given, and redirect_uri is optional but non-empty when
// present.
func (r *TokenRequest) ValidateAuthorizationCode() error {
	var fields []FieldError
	if r.GrantType != string(GrantTypeAuthorizationCode) {
		fields = append(fields, equalsError("grant_type", string(GrantTypeAuthorizationCode)))
	}
	if r.Code == "" {
		fields = append(fields, minLengthError("code"))
	}
	if r.has("client_id", r.ClientID) && r.ClientID == "" {
		fields = append(fields, minLengthError("client_id"))
	}
	if r.ClientID != "" && r.ClientSecret == "" {
		fields = append(fields, minLengthError("client_secret"))
	}
	if r.has("redirect_uri", r.RedirectURI) && r.RedirectURI == "" {
		fields = append(fields, minLengthError("redirect_uri"))
	}
	if len(fields) > 0 {
		return NewInvalidRequest("", fields...)
	}
	return nil
}

// AuthorizeRequest is the transient representation of an authorize
// endpoint request (authorization code grant, phase A). It is never
// persisted; the two phases of the grant are correlated only through the
// issued code and redirect URI.
type AuthorizeRequest struct {
	ResponseType string
	ClientID     string
	Scope        string
	RedirectURI  string
	State        string

	query url.Values
}

// ParseAuthorizeRequest builds an AuthorizeRequest from decoded query
// values.
func ParseAuthorizeRequest(query url.Values) *AuthorizeRequest {
	return &AuthorizeRequest{
		ResponseType: query.Get("response_type"),
		ClientID:     query.Get("client_id"),
		Scope:        query.Get("scope"),
		RedirectURI:  query.Get("redirect_uri"),
		State:        query.Get("state"),
		query:        query,
	}
}

func (r *AuthorizeRequest) has(key, value string) bool {
	if r.query != nil {
		return r.query.Has(key)
	}
	return value != ""
}

// Validate checks the authorize request shape: response_type must equal
// "code", client_id is required, and scope, redirect_uri, and state are
// optional but non-empty when present.
func (r *AuthorizeRequest) Validate() error {
	var fields []FieldError
	if r.ResponseType != "code" {
		fields = append(fields, equalsError("response_type", "code"))
	}
	if r.ClientID == "" {
		fields = append(fields, minLengthError("client_id"))
	}
	for _, opt := range []struct{ key, value string }{
		{"scope", r.Scope},
		{"redirect_uri", r.RedirectURI},
		{"state", r.State},
	} {
		if r.has(opt.key, opt.value) && opt.value == "" {
			fields = append(fields, minLengthError(opt.key))
		}
	}
	if len(fields) > 0 {
		return NewInvalidRequest("", fields...)
	}
	return nil
}

func minLengthError(property string) FieldError {
	return FieldError{
		Property:   property,
		Constraint: "minLength",
		Message:    property + " must be longer than or equal to 1 characters",
	}
}

func equalsError(property, expected string) FieldError {
	return FieldError{
		Property:   property,
		Constraint: "equals",
		Message:    fmt.Sprintf("%s must be equal to %q", property, expected),
	}
}
