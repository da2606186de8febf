package middleware

import (
	"net/http"

	"github.com/cloudforge/jobbroker/internal/auth"
	"github.com/cloudforge/jobbroker/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// WorkerAuthMiddleware authenticates a worker's bearer token and stashes the
// resulting auth.Principal in the request context. Signature verification
// uses keyFunc.
func WorkerAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		principal, err := auth.ParseWorkerToken(header, keyFunc)
		if err != nil {
			http.Error(w, "invalid bearer token", http.StatusUnauthorized)
			return
		}

		r = r.WithContext(auth.SetPrincipalContext(r.Context(), principal))
		next.ServeHTTP(w, r)
	})
}

// keyFunc resolves the signing key for a worker token. When
// config.InternalAPIKey is set it is used as the HMAC secret; otherwise it
// returns jwt.UnsafeAllowNoneSignatureType, so only unsigned (alg "none")
// tokens verify. No JWKS lookup is made and the Cognito settings are not
// consulted.
func keyFunc(token *jwt.Token) (interface{}, error) {
	if secret := config.InternalAPIKey; secret != "" {
		return []byte(secret), nil
	}
	return jwt.UnsafeAllowNoneSignatureType, nil
}

// InternalAPIKeyMiddleware guards service-to-service endpoints (the Submit
// API's calls into the Worker API's "/_jobs", and the reverse "_job_status"
// callback) with the shared x-api-key secret (§6).
func InternalAPIKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presented := r.Header.Get("x-api-key")
		if config.InternalAPIKey == "" || !auth.ConstantTimeEqual(presented, config.InternalAPIKey) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
