package auth

import (
	"context"
)

// bearerAuthenticator delegates token checks to a caller function.
type bearerAuthenticator struct {
	validateFunc func(token string) (identity string, err error)
}

// BearerAuth turns a token check into an Authenticator for the planning
// service. The returned identity is what DatasetAuthorizer implementations
// and custom resolvers see through IdentityFromContext.
//
// Example, mapping API keys to tenants that own datasets:
//
//	auth := BearerAuth(func(token string) (string, error) {
//	    tenant, ok := apiKeys[token]
//	    if !ok {
//	        return "", lazyscan.ErrUnauthorized
//	    }
//	    return tenant, nil
//	})
func BearerAuth(validateFunc func(token string) (identity string, err error)) Authenticator {
	return &bearerAuthenticator{
		validateFunc: validateFunc,
	}
}

// Authenticate implements Authenticator.
func (b *bearerAuthenticator) Authenticate(_ context.Context, token string) (string, error) {
	return b.validateFunc(token)
}
