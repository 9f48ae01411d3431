// Package identity carries the request-scoped owner identity through
// context.Context. Every persistence operation that writes on behalf of
// a user reads the owner from here; the single configured owner is
// injected once by the HTTP middleware.
package identity

import (
	"context"

	"github.com/google/uuid"
)

// ownerKey uses an empty struct for a zero-allocation context key.
type ownerKey struct{}

// WithOwner returns a context carrying the owner id.
func WithOwner(ctx context.Context, owner uuid.UUID) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// Owner retrieves the owner id from the context.
// The second return value reports whether an owner was set.
func Owner(ctx context.Context) (uuid.UUID, bool) {
	owner, ok := ctx.Value(ownerKey{}).(uuid.UUID)
	if !ok || owner == uuid.Nil {
		return uuid.Nil, false
	}
	return owner, true
}
