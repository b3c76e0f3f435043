package lazyscan

import (
	"context"

	"github.com/hugr-lab/lazyscan/auth"
)

// Authenticator validates the bearer token of a planning request and
// returns the caller identity.
type Authenticator = auth.Authenticator

// DatasetAuthorizer restricts which datasets an identity may plan.
// Implement it on the Authenticator passed in ServerConfig.Auth.
type DatasetAuthorizer = auth.DatasetAuthorizer

// BearerAuth creates an Authenticator from a token check. Pair it with a
// DatasetAuthorizer to restrict which datasets each identity may plan:
//
//	cfg := lazyscan.ServerConfig{
//	    Datasets: datasets,
//	    Auth: lazyscan.BearerAuth(func(token string) (string, error) {
//	        if tenant, ok := apiKeys[token]; ok {
//	            return tenant, nil
//	        }
//	        return "", lazyscan.ErrUnauthorized
//	    }),
//	}
func BearerAuth(validateFunc func(token string) (identity string, err error)) Authenticator {
	return auth.BearerAuth(validateFunc)
}

// NoAuth returns an Authenticator that accepts every request.
// Datasets and ad-hoc scans are then open to any client that can connect.
func NoAuth() Authenticator {
	return auth.NoAuth()
}

// IdentityFromContext retrieves the authenticated user identity from context.
// Returns empty string if no identity is set (unauthenticated request).
// Custom resolvers and builders can use it to scope what they expose.
func IdentityFromContext(ctx context.Context) string {
	return auth.IdentityFromContext(ctx)
}
