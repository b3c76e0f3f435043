package auth

import (
	"context"

	"google.golang.org/grpc/metadata"
)

type contextKey int

const (
	identityKey contextKey = iota
)

// WithIdentity returns a new context with the given user identity.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext retrieves the authenticated user identity from context.
// Returns empty string if no identity is set (unauthenticated request).
func IdentityFromContext(ctx context.Context) string {
	identity, ok := ctx.Value(identityKey).(string)
	if !ok {
		return ""
	}
	return identity
}

// TokenFromMetadata extracts the bearer token from incoming gRPC metadata.
func TokenFromMetadata(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", ErrTokenIsEmpty
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return "", ErrTokenIsEmpty
	}
	return TokenFromAuthorizationHeader(values[0])
}
