package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/saythanks/saythanks/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, method jwt.SigningMethod, claims Claims, key any) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestAccountFromToken(t *testing.T) {
	secret := []byte("secret")
	valid := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "auth0|42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email: "alice@example.org",
	}

	t.Run("valid", func(t *testing.T) {
		id, email, err := AccountFromToken(sign(t, jwt.SigningMethodHS256, valid, secret), secret)
		require.NoError(t, err)
		assert.Equal(t, "auth0|42", id)
		assert.Equal(t, "alice@example.org", email)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, _, err := AccountFromToken(sign(t, jwt.SigningMethodHS256, valid, secret), []byte("other"))
		assert.ErrorIs(t, err, common.ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		expired := valid
		expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		_, _, err := AccountFromToken(sign(t, jwt.SigningMethodHS256, expired, secret), secret)
		assert.ErrorIs(t, err, common.ErrInvalidToken)
	})

	t.Run("other algorithm rejected", func(t *testing.T) {
		_, _, err := AccountFromToken(sign(t, jwt.SigningMethodHS512, valid, secret), secret)
		assert.ErrorIs(t, err, common.ErrInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		noSub := Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: valid.ExpiresAt}}
		_, _, err := AccountFromToken(sign(t, jwt.SigningMethodHS256, noSub, secret), secret)
		assert.ErrorIs(t, err, common.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, _, err := AccountFromToken("not.a.jwt", secret)
		assert.ErrorIs(t, err, common.ErrInvalidToken)
	})
}
