package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-signing-secret"

func signTestToken(t *testing.T, claims cognitoClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func hmacKeyFunc(*jwt.Token) (interface{}, error) {
	return []byte(testSecret), nil
}

func TestParseWorkerToken_CloudGroupYieldsCloudEnvironment(t *testing.T) {
	claims := cognitoClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Username:         "worker-host-1",
		Groups:           []string{"cloud", "team-a"},
	}
	token := signTestToken(t, claims)

	p, err := ParseWorkerToken("Bearer "+token, hmacKeyFunc)
	require.NoError(t, err)
	assert.Equal(t, "worker-host-1", p.Hostname)
	assert.Equal(t, "cloud", p.Environment)
	assert.Equal(t, []string{"cloud", "team-a"}, p.Groups)
}

func TestParseWorkerToken_DefaultsEnvironmentToLocal(t *testing.T) {
	claims := cognitoClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Username:         "worker-host-2",
		Groups:           []string{"team-a"},
	}
	token := signTestToken(t, claims)

	p, err := ParseWorkerToken(token, hmacKeyFunc)
	require.NoError(t, err)
	assert.Equal(t, "local", p.Environment)
	assert.Equal(t, []string{"team-a"}, p.Groups)
}

func TestParseWorkerToken_EmptyToken(t *testing.T) {
	_, err := ParseWorkerToken("", hmacKeyFunc)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = ParseWorkerToken("Bearer ", hmacKeyFunc)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestParseWorkerToken_MissingUsername(t *testing.T) {
	claims := cognitoClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}
	token := signTestToken(t, claims)

	_, err := ParseWorkerToken(token, hmacKeyFunc)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestParseWorkerToken_BadSignature(t *testing.T) {
	claims := cognitoClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Username:         "worker-host-3",
	}
	token := signTestToken(t, claims)

	_, err := ParseWorkerToken(token, func(*jwt.Token) (interface{}, error) {
		return []byte("wrong-secret"), nil
	})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestParseWorkerToken_Expired(t *testing.T) {
	claims := cognitoClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))},
		Username:         "worker-host-4",
	}
	token := signTestToken(t, claims)

	_, err := ParseWorkerToken(token, hmacKeyFunc)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
