package devserver

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/resuldeger/vpnapp/internal/domain"
)

var (
	errInvalidToken = errors.New("invalid token")
	errExpiredToken = errors.New("token expired")
)

// tokenIssuer issues and validates the bearer tokens handed to clients.
type tokenIssuer struct {
	secret []byte
	expiry time.Duration
}

func newTokenIssuer(secret string, expiry time.Duration) *tokenIssuer {
	return &tokenIssuer{secret: []byte(secret), expiry: expiry}
}

func (t *tokenIssuer) issue(userID string, tier domain.SubscriptionTier) (string, error) {
	claims := jwt.MapClaims{
		"user_id":           userID,
		"subscription_tier": string(tier),
		"exp":               jwt.NewNumericDate(time.Now().Add(t.expiry)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// validate parses the token and returns the user id it was issued for.
func (t *tokenIssuer) validate(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", errExpiredToken
		}
		return "", errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errInvalidToken
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", errInvalidToken
	}
	return userID, nil
}
