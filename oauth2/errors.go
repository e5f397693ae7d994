package oauth2

// OAuth2 wire error codes.
// https://tools.ietf.org/html/rfc6749#section-5.2
const (
	ErrorCodeInvalidRequest       = "invalid_request"
	ErrorCodeInvalidClient        = "invalid_client"
	ErrorCodeInvalidGrant         = "invalid_grant"
	ErrorCodeInvalidScope         = "invalid_scope"
	ErrorCodeUnauthorizedClient   = "unauthorized_client"
	ErrorCodeUnsupportedGrantType = "unsupported_grant_type"
	ErrorCodeAccessDenied         = "access_denied"
	ErrorCodeUnauthorized         = "unauthorized"
)

// FieldError describes a single field-level validation failure collected
// while checking a token or authorize request.
type FieldError struct {
	Property   string `json:"property"`
	Constraint string `json:"constraint"`
	Message    string `json:"message,omitempty"`
}

// Error is a protocol error from the closed RFC 6749 taxonomy. It carries
// the HTTP status the transport adapter should respond with and, for
// invalid_request, the list of field validation failures. The zero
// Description and URI are omitted from the JSON body.
type Error struct {
	Code             string       `json:"error"`
	Description      string       `json:"error_description,omitempty"`
	URI              string       `json:"error_uri,omitempty"`
	StatusCode       int          `json:"statusCode"`
	ValidationErrors []FieldError `json:"validationErrors,omitempty"`
}

func (e *Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return e.Code + ": " + e.Description
}

// NewInvalidRequest reports a missing, malformed, or repeated parameter.
// Field validation failures may be attached.
func NewInvalidRequest(description string, fields ...FieldError) *Error {
	return &Error{
		Code:             ErrorCodeInvalidRequest,
		Description:      description,
		StatusCode:       400,
		ValidationErrors: fields,
	}
}

// NewInvalidClient reports failed client authentication. Deployments
// wanting 401 with a WWW-Authenticate challenge can remap the status in
// the transport adapter.
func NewInvalidClient(description string) *Error {
	return &Error{Code: ErrorCodeInvalidClient, Description: description, StatusCode: 400}
}

// NewInvalidGrant reports an invalid or expired authorization code, or a
// code presented with the wrong redirect URI.
func NewInvalidGrant(description string) *Error {
	return &Error{Code: ErrorCodeInvalidGrant, Description: description, StatusCode: 400}
}

// NewInvalidScope reports a scope negotiation with no authorized tokens.
func NewInvalidScope(description string) *Error {
	return &Error{Code: ErrorCodeInvalidScope, Description: description, StatusCode: 400}
}

// NewUnauthorizedClient reports a client that is not allowed to use the
// requested grant type.
func NewUnauthorizedClient(description string) *Error {
	return &Error{Code: ErrorCodeUnauthorizedClient, Description: description, StatusCode: 400}
}

// NewUnsupportedGrantType reports a grant type with no registered strategy.
func NewUnsupportedGrantType(description string) *Error {
	return &Error{Code: ErrorCodeUnsupportedGrantType, Description: description, StatusCode: 400}
}

// NewAccessDenied reports that the resource owner or the authorization
// server denied the request.
func NewAccessDenied(description string) *Error {
	return &Error{Code: ErrorCodeAccessDenied, Description: description, StatusCode: 403}
}

// NewUnauthorized reports a missing or unknown bearer token. It is used
// only by Dispatcher.Authenticate and is not an RFC 6749 grant error.
func NewUnauthorized(description string) *Error {
	return &Error{Code: ErrorCodeUnauthorized, Description: description, StatusCode: 401}
}
