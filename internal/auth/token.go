// Package auth issues and verifies the signed bearer tokens that gate the
// catalog API. Tokens are self-contained HS256 JWTs; nothing is persisted.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// DefaultTokenTTL is the lifetime of newly issued tokens.
const DefaultTokenTTL = time.Hour

// Identity is the verified subject carried by a valid token.
type Identity struct {
	UserID   string
	Username string
}

// TokenManager issues and verifies HS256-signed tokens with a fixed TTL.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager creates a manager signing with the given secret. A
// non-positive ttl falls back to DefaultTokenTTL.
func NewTokenManager(secret []byte, ttl time.Duration) (*TokenManager, error) {
	if len(secret) == 0 {
		return nil, errors.New("signing secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenManager{secret: secret, ttl: ttl}, nil
}

// Issue produces a signed token embedding the user's identity, expiring after
// the manager's TTL.
func (m *TokenManager) Issue(userID, username string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("userID is required")
	}
	now := time.Now()
	expiresAt := now.Add(m.ttl)
	claims := jwt.MapClaims{
		"sub":      userID,
		"username": username,
		"iat":      now.Unix(),
		"exp":      expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify validates the token signature and expiry and extracts the identity.
func (m *TokenManager) Verify(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpiredToken
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return Identity{}, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	username, ok := claims["username"].(string)
	if !ok || username == "" {
		return Identity{}, fmt.Errorf("%w: username", ErrMissingClaim)
	}
	return Identity{UserID: sub, Username: username}, nil
}
