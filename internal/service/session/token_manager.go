package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "storefront-session"

type sessionClaims struct {
	jwt.RegisteredClaims
	Kind string `json:"kind"`
}

type tokenManager struct {
	secret []byte
	now    func() time.Time
}

func newTokenManager(secret []byte, now func() time.Time) *tokenManager {
	return &tokenManager{secret: secret, now: now}
}

func (m *tokenManager) Issue(sessionID, kind string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Kind: kind,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Validate returns the session id carried by a well-formed, unexpired token.
func (m *tokenManager) Validate(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return "", false
	}
	if claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

var errEmptySecret = errors.New("session secret required")
