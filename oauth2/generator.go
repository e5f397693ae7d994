package oauth2

import "github.com/google/uuid"

// IDGenerator produces the opaque strings used as access tokens, refresh
// tokens, and authorization codes. Implementations must return values
// with enough entropy to be unguessable.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator is the default IDGenerator, backed by random UUIDs.
type UUIDGenerator struct{}

// NewID returns a random UUID string.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}
