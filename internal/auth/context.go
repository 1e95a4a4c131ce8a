package auth

import (
	"context"

	"github.com/MikhailRaia/bookmark-manager/internal/model"
)

type contextKey string

// IdentityKey is the context key used to store the authenticated identity.
const IdentityKey contextKey = "identity"

// WithIdentity returns a copy of ctx carrying the identity.
func WithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// IdentityFromContext extracts the authenticated identity from context.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(model.Identity)
	if !ok || !identity.Present() {
		return model.Identity{}, false
	}
	return identity, true
}
