// Package auth issues and verifies HS256 access tokens. The token subject is
// the acting user id; display and contact fields ride along as claims so a
// booking can snapshot them without a user lookup.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the access token payload.
type Claims struct {
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Mobile string `json:"mobile,omitempty"`
	jwt.RegisteredClaims
}

// NewAccessToken signs a token for user that expires after ttl.
func NewAccessToken(secret string, user model.UserSnapshot, ttl time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(user.ID) == "" {
		return "", time.Time{}, fmt.Errorf("auth: user id is required")
	}
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		Name:   user.Name,
		Email:  user.Email,
		Mobile: user.Mobile,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, exp, nil
}

// ParseAccessToken verifies raw and returns the user it identifies. Only HMAC
// signatures are accepted and the subject must be non-empty.
func ParseAccessToken(secret, raw string) (model.UserSnapshot, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return model.UserSnapshot{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return model.UserSnapshot{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return model.UserSnapshot{
		ID:     claims.Subject,
		Name:   claims.Name,
		Email:  claims.Email,
		Mobile: claims.Mobile,
	}, nil
}
