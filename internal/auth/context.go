package auth

import (
	"context"

	"github.com/pkordes/quietlocations/backend/internal/domain"
)

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by WithIdentity, or nil.
func IdentityFrom(ctx context.Context) *domain.Identity {
	id, ok := ctx.Value(identityKey{}).(domain.Identity)
	if !ok {
		return nil
	}
	return &id
}
