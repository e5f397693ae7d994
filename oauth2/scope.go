package oauth2

import (
	"slices"
	"strings"
)

// NegotiateScope computes the scope a client is authorized for. The
// requested scope string is split on spaces and intersected with the
// client's supported set, preserving the order of the requested tokens.
// Tokens the client does not support are silently dropped. The second
// return value is false iff none of the requested tokens are supported;
// callers surface only that total failure as invalid_scope.
// https://tools.ietf.org/html/rfc6749#section-3.3
func NegotiateScope(requested string, supported []string) (string, bool) {
	authorized := make([]string, 0, len(supported))
	for _, s := range strings.Split(requested, " ") {
		if slices.Contains(supported, s) {
			authorized = append(authorized, s)
		}
	}
	if len(authorized) == 0 {
		return "", false
	}
	return strings.Join(authorized, " "), true
}
