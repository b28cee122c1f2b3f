package webhooktoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Service mints and verifies the short-lived HS256 tokens that authenticate
// simulated delivery callbacks to the platform's webhook endpoint. Receivers
// use the token, together with the X-Webhook-Source header, to distinguish
// simulated callbacks from real-carrier traffic.
type Service struct {
	secret []byte
	ttl    time.Duration
}

// NewService creates a token service. ttl bounds how long a callback token
// remains valid.
func NewService(secret string, ttl time.Duration) *Service {
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Sign issues a token scoped to the given provider id.
func (s *Service) Sign(providerID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": "sms-simulator",
		"sub": providerID,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign webhook token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a callback token, returning its claims.
func (s *Service) Verify(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid webhook token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid webhook token")
	}
	return claims, nil
}
