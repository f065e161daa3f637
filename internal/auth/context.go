package auth

import (
	"context"
	"errors"
)

// Identity is the authenticated caller. UserID is the owner every call record is scoped by.
type Identity struct {
	UserID string
	Role   string
}

type identityKey struct{}

var ErrNoIdentity = errors.New("no identity in context")

func WithIdentity(ctx context.Context, userID, role string) context.Context {
	return context.WithValue(ctx, identityKey{}, Identity{UserID: userID, Role: role})
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID != ""
}

// UserID returns the authenticated owner, or ErrNoIdentity.
func UserID(ctx context.Context) (string, error) {
	if id, ok := IdentityFrom(ctx); ok {
		return id.UserID, nil
	}
	return "", ErrNoIdentity
}

func Role(ctx context.Context) (string, error) {
	if id, ok := IdentityFrom(ctx); ok && id.Role != "" {
		return id.Role, nil
	}
	return "", ErrNoIdentity
}
