package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	maker := NewJWTMaker("secret-key", time.Hour)

	token, err := maker.GenerateToken("admin", "admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := maker.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, "admin", claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestParseToken_WrongSecret(t *testing.T) {
	maker := NewJWTMaker("secret-key", time.Hour)
	other := NewJWTMaker("another-key", time.Hour)

	token, err := maker.GenerateToken("admin", "admin")
	require.NoError(t, err)

	claims, err := other.ParseToken(token)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestParseToken_Expired(t *testing.T) {
	maker := NewJWTMaker("secret-key", -time.Minute)

	token, err := maker.GenerateToken("admin", "admin")
	require.NoError(t, err)

	claims, err := maker.ParseToken(token)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestParseToken_Garbage(t *testing.T) {
	maker := NewJWTMaker("secret-key", time.Hour)

	claims, err := maker.ParseToken("not-a-token")
	assert.Error(t, err)
	assert.Nil(t, claims)
}
