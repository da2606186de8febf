package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorized is returned for any bearer token that fails to parse or
// carries claims the worker API cannot make sense of.
var ErrUnauthorized = errors.New("auth: invalid bearer token")

// cognitoClaims is the subset of a Cognito-style access/id token this
// broker cares about: the worker's own hostname (mapped from the token's
// username claim) and its group memberships, which double as both the
// environment selector and the set of affinity groups it may claim
// group-scoped work from (§6's identity-provider mapping).
type cognitoClaims struct {
	jwt.RegisteredClaims
	Username string   `json:"username"`
	Groups   []string `json:"cognito:groups"`
}

// ParseWorkerToken extracts a Principal from a Cognito-style bearer token.
// Signature verification is delegated to keyFunc, which callers build from
// the configured user pool's JWKS; ParseWorkerToken itself only shapes the
// claims into the Principal the rest of the broker uses.
func ParseWorkerToken(tokenString string, keyFunc jwt.Keyfunc) (*Principal, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	if tokenString == "" {
		return nil, ErrUnauthorized
	}

	claims := &cognitoClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, keyFunc)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.Username == "" {
		return nil, ErrUnauthorized
	}

	environment := "local"
	for _, g := range claims.Groups {
		if g == "cloud" {
			environment = "cloud"
			break
		}
	}

	return &Principal{
		Hostname:    claims.Username,
		Environment: environment,
		Groups:      claims.Groups,
	}, nil
}
