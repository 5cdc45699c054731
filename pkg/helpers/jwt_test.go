package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	m := NewJWTManager("super-secret", 7*24*time.Hour)

	token, exp, err := m.GenerateSessionToken("user-123")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), exp, time.Minute)

	claims, err := m.ParseSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
}

func TestSessionTokenExpired(t *testing.T) {
	m := NewJWTManager("super-secret", -time.Minute)

	token, _, err := m.GenerateSessionToken("user-123")
	require.NoError(t, err)

	_, err = m.ParseSessionToken(token)
	assert.Error(t, err)
}

func TestSessionTokenWrongSecret(t *testing.T) {
	issuer := NewJWTManager("secret-a", time.Hour)
	verifier := NewJWTManager("secret-b", time.Hour)

	token, _, err := issuer.GenerateSessionToken("user-123")
	require.NoError(t, err)

	_, err = verifier.ParseSessionToken(token)
	assert.Error(t, err)
}

func TestSessionTokenGarbage(t *testing.T) {
	m := NewJWTManager("super-secret", time.Hour)

	_, err := m.ParseSessionToken("not-a-jwt")
	assert.Error(t, err)
}
