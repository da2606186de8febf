// Package auth holds the request-scoped identity types and context helpers
// shared by the worker and submit APIs: a Cognito-style JWT claims parser
// for workers and a constant-time API key check for service-to-service
// calls, following the teacher's checkauth package conventions.
package auth

import (
	"context"
	"crypto/subtle"
)

type contextKey string

const principalContextKey contextKey = "principal"

// Principal is the identity derived from a worker's bearer token: its
// hostname (from the JWT username claim) and the affinity groups it may
// pull from (from the JWT groups claim), per §6's Cognito-claims mapping.
type Principal struct {
	Hostname    string
	Environment string
	Groups      []string
}

// SetPrincipalContext stores p in ctx for downstream handlers.
func SetPrincipalContext(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext retrieves the principal set by the worker auth
// middleware, or nil if the request carried none.
func PrincipalFromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(principalContextKey).(*Principal); ok {
		return p
	}
	return nil
}

// ConstantTimeEqual compares two secrets without leaking timing
// information, the way the teacher's checkauth.ValidateAPIToken does for
// stored token hashes.
func ConstantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
