package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestParseCredential_DatabaseToken(t *testing.T) {
	c, err := ParseCredential("  abcDEF123  ")
	require.NoError(t, err)
	assert.Equal(t, "Token abcDEF123", c.Header())
	assert.False(t, c.Expired(time.Now()))
}

func TestParseCredential_ExplicitScheme(t *testing.T) {
	c, err := ParseCredential("Bearer xyz")
	require.NoError(t, err)
	assert.Equal(t, SchemeToken, c.Scheme)
	assert.Equal(t, "xyz", c.Value)
}

func TestParseCredential_JWT(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	raw := signed(t, exp)

	c, err := ParseCredential(raw)
	require.NoError(t, err)
	assert.Equal(t, SchemeJWT, c.Scheme)
	assert.Equal(t, "JWT "+raw, c.Header())
	assert.True(t, c.Expires.Equal(exp))
	assert.False(t, c.Expired(time.Now()))
	assert.True(t, c.Expired(exp.Add(time.Second)))
}

func TestParseCredential_DottedNonJWTIsToken(t *testing.T) {
	c, err := ParseCredential("a.b.c")
	require.NoError(t, err)
	assert.Equal(t, SchemeToken, c.Scheme)
}

func TestParseCredential_ExplicitJWTMustParse(t *testing.T) {
	_, err := ParseCredential("JWT not-a-jwt")
	assert.Error(t, err)
}

func TestParseCredential_Empty(t *testing.T) {
	_, err := ParseCredential("   ")
	assert.Error(t, err)
}
