package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmynk/settleup/internal/models"
)

const issuer = "settleup"

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("authorization token required")
)

// Claims is the session payload carried by a settleup token. Subject
// mirrors UserID.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// JWTManager signs and verifies HS256 session tokens.
type JWTManager struct {
	key    []byte
	ttl    time.Duration
	parser *jwt.Parser
	now    func() time.Time
}

// NewJWTManager returns a manager signing with secret. Tokens expire ttl
// after issue.
func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	return &JWTManager{
		key: []byte(secret),
		ttl: ttl,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
		),
		now: time.Now,
	}
}

// Generate issues a token for user.
func (m *JWTManager) Generate(user *models.User) (string, error) {
	issued := m.now()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(issued),
			NotBefore: jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(m.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("sign token for %s: %w", user.ID, err)
	}
	return signed, nil
}

// Validate verifies signature, issuer and lifetime of raw. Every failure
// wraps ErrInvalidToken.
func (m *JWTManager) Validate(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := m.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return m.key, nil
	})
	switch {
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	case !token.Valid, claims.UserID == "":
		return nil, ErrInvalidToken
	}
	return claims, nil
}
