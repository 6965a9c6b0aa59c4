package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for hashing a plain admin password
	BcryptCost = 10

	// AdminRole is the only role a session token can carry
	AdminRole = "admin"

	DefaultSessionTTL = 24 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid password")
	ErrAuthNotConfigured  = errors.New("admin password is not configured")
	ErrInvalidToken       = errors.New("invalid token")
)

// AuthService verifies the admin password and issues session tokens.
type AuthService interface {
	Configured() bool
	Login(password string) (token string, expiresAt time.Time, err error)
	ValidateToken(token string) (*Claims, error)
	Verify(token string) bool
}

// Claims represents the JWT claims of an admin session
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type authService struct {
	passwordHash []byte
	jwtSecret    []byte
	ttl          time.Duration
	now          Clock
}

// NewAuthService builds the verifier from a bcrypt hash or, when no hash is
// given, from a plain password hashed once at start-up. An empty secret is
// replaced by a random one, so sessions do not survive a restart.
func NewAuthService(password, passwordHash, jwtSecret string, ttl time.Duration) (AuthService, error) {
	s := &authService{
		ttl: ttl,
		now: systemClock,
	}
	if s.ttl <= 0 {
		s.ttl = DefaultSessionTTL
	}

	switch {
	case passwordHash != "":
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return nil, fmt.Errorf("failed to read admin password hash: %w", err)
		}
		s.passwordHash = []byte(passwordHash)
	case password != "":
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash admin password: %w", err)
		}
		s.passwordHash = hashed
	}

	if jwtSecret != "" {
		s.jwtSecret = []byte(jwtSecret)
	} else {
		s.jwtSecret = make([]byte, 32)
		if _, err := rand.Read(s.jwtSecret); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
	}
	return s, nil
}

// Configured reports whether an admin password is set.
func (s *authService) Configured() bool {
	return len(s.passwordHash) > 0
}

// Login checks password and returns a signed session token
func (s *authService) Login(password string) (string, time.Time, error) {
	if !s.Configured() {
		return "", time.Time{}, ErrAuthNotConfigured
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := &Claims{
		Role: AdminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   AdminRole,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, expiresAt, nil
}

// ValidateToken validates a session token and returns its claims
func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Role != AdminRole {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Verify reports whether token is a valid, unexpired admin session.
func (s *authService) Verify(token string) bool {
	if token == "" {
		return false
	}
	_, err := s.ValidateToken(token)
	return err == nil
}
