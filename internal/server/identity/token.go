package identity

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/saythanks/saythanks/internal/common"
)

// Claims is the subset of an ID token we read: the registered claims plus
// the optional email claim.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// AccountFromToken verifies an HS256-signed ID token and returns the account
// id (the "sub" claim) and the email claim, which may be empty.
func AccountFromToken(tokenString string, secretKey []byte) (string, string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return "", "", common.ErrInvalidToken
	}

	return claims.Subject, claims.Email, nil
}
