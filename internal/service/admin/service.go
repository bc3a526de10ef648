// Package admin verifies the configured back-office credentials and issues
// the signed token the admin routes require.
package admin

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/domain"
	"storefront/internal/logger"
)

const tokenIssuer = "storefront-admin"

// ErrInvalidCredentials is returned for a wrong email or password, and when no
// admin account is configured.
var ErrInvalidCredentials = errors.New("invalid admin credentials")

type Config struct {
	Email        string
	PasswordHash string
	Secret       string
	TTL          time.Duration
}

type Service struct {
	email  string
	hash   []byte
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	log    *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Service {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Service{
		email:  strings.ToLower(strings.TrimSpace(cfg.Email)),
		hash:   []byte(cfg.PasswordHash),
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		now:    time.Now,
		log:    logger.OrNop(log).Named("admin"),
	}
}

// Enabled reports whether an admin account is configured.
func (s *Service) Enabled() bool {
	return s.email != "" && len(s.hash) > 0 && len(s.secret) > 0
}

// Login returns an admin token for matching credentials.
func (s *Service) Login(email, password string) (string, error) {
	if !s.Enabled() {
		return "", ErrInvalidCredentials
	}
	email = strings.ToLower(strings.TrimSpace(email))
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(s.email)) == 1
	passErr := bcrypt.CompareHashAndPassword(s.hash, []byte(password))
	if !emailOK || passErr != nil {
		s.log.Warn("admin login rejected", zap.String("email", email))
		return "", ErrInvalidCredentials
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    tokenIssuer,
		Subject:   s.email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", err
	}
	s.log.Info("admin login", zap.String("email", s.email))
	return token, nil
}

// Authorize checks an admin token and returns the admin email it names.
func (s *Service) Authorize(token string) (string, error) {
	if !s.Enabled() || token == "" {
		return "", domain.ErrUnauthorized
	}
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithSubject(s.email),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return "", domain.ErrUnauthorized
	}
	return claims.Subject, nil
}

// TTLSeconds exposes the token lifetime in seconds.
func (s *Service) TTLSeconds() int {
	return int(s.ttl.Seconds())
}
