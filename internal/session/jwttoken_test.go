package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedTestToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
	})
	signed, err := tok.SignedString([]byte("does-not-need-to-verify"))
	require.NoError(t, err)
	return signed
}

func TestExpiresAtFromJWT_ReadsExpClaimWithoutVerifyingSignature(t *testing.T) {
	want := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	token := signedTestToken(t, want)

	got, err := ExpiresAtFromJWT(token)
	require.NoError(t, err)
	assert.True(t, got.Equal(want))
}

func TestExpiresAtFromJWT_RejectsNonJWTString(t *testing.T) {
	_, err := ExpiresAtFromJWT("not-a-jwt")
	require.Error(t, err)
}

func TestExpiresAtFromJWT_RejectsTokenWithoutExpClaim(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{})
	signed, err := tok.SignedString([]byte("key"))
	require.NoError(t, err)

	_, err = ExpiresAtFromJWT(signed)
	require.Error(t, err)
}
