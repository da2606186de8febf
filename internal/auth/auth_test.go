package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrincipalContextRoundTrip(t *testing.T) {
	p := &Principal{Hostname: "host-a", Environment: "cloud", Groups: []string{"g1"}}
	ctx := SetPrincipalContext(context.Background(), p)
	got := PrincipalFromContext(ctx)
	assert.Same(t, p, got)
}

func TestPrincipalFromContext_Absent(t *testing.T) {
	assert.Nil(t, PrincipalFromContext(context.Background()))
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, ConstantTimeEqual("secret", "secret"))
	assert.False(t, ConstantTimeEqual("secret", "different"))
	assert.False(t, ConstantTimeEqual("secret", "secrets"))
	assert.False(t, ConstantTimeEqual("", "secret"))
	assert.True(t, ConstantTimeEqual("", ""))
}
