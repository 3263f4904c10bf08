// Package auth mints and checks the HS256 tokens other services present to
// the RPC surface. They identify the calling service, not an end user.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidServiceToken = errors.New("invalid service token")

// Claims carries the calling service name as the JWT subject.
type Claims struct {
	jwt.RegisteredClaims
}

func GenerateServiceToken(service string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   service,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseServiceToken validates tokenString and returns the service name.
// When maxValidity is positive the token must carry iat and its lifetime
// (exp - iat) must not exceed maxValidity.
func ParseServiceToken(tokenString string, secretKey []byte, maxValidity time.Duration) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired(), jwt.WithIssuedAt())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidServiceToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidServiceToken
	}

	if maxValidity > 0 {
		if claims.IssuedAt == nil {
			return "", fmt.Errorf("%w: missing iat", ErrInvalidServiceToken)
		}
		if lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time); lifetime > maxValidity {
			return "", fmt.Errorf("%w: lifetime %s exceeds %s", ErrInvalidServiceToken, lifetime, maxValidity)
		}
	}

	return claims.Subject, nil
}
