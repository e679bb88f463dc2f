package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const cookieIssuer = "spendwise"

var ErrInvalidCookie = errors.New("invalid session cookie")

// CookieSigner signs session identifiers so that a tampered or forged cookie
// is rejected before the store is consulted.
type CookieSigner struct {
	secret []byte
}

func NewCookieSigner(secret string) *CookieSigner {
	return &CookieSigner{secret: []byte(secret)}
}

// Sign wraps the session ID in an HS256 token.
func (cs *CookieSigner) Sign(sessionID string) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:       sessionID,
		Issuer:   cookieIssuer,
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(cs.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session cookie: %w", err)
	}
	return signed, nil
}

// Verify returns the session ID carried by a signed cookie value.
func (cs *CookieSigner) Verify(value string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(value, claims, func(token *jwt.Token) (interface{}, error) {
		return cs.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cookieIssuer),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidCookie
	}

	if claims.ID == "" {
		return "", ErrInvalidCookie
	}
	return claims.ID, nil
}
