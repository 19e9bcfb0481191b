// Package session issues and verifies signed session tokens carried in a cookie.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTTL - срок жизни сессии по умолчанию (один год)
const DefaultTTL = 365 * 24 * time.Hour

const issuer = "zenga-cms"

// ErrInvalidSession is returned for any token that cannot be trusted:
// malformed, badly signed, expired or not yet valid.
var ErrInvalidSession = errors.New("invalid session")

// Claims представляет JWT claims сессии
type Claims struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	UserID int64  `json:"user_id"`
	// iat в JWT хранится с точностью до секунды
	IssuedNano int64 `json:"iat_ns,omitempty"`
	jwt.RegisteredClaims
}

// TokenID returns the unique token id (jti)
func (c *Claims) TokenID() string {
	return c.ID
}

// IssuedTime returns the issue time with full precision when the token carries it,
// the second-precision iat otherwise, or zero time
func (c *Claims) IssuedTime() time.Time {
	if c.IssuedNano > 0 {
		return time.Unix(0, c.IssuedNano)
	}
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// ExpiresTime returns the expiry time or zero time
func (c *Claims) ExpiresTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Option configures Manager
type Option func(*Manager)

// WithClock overrides the time source (tests)
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// Manager issues and verifies session tokens (HS256)
type Manager struct {
	now    func() time.Time
	secret []byte
	ttl    time.Duration
}

// NewManager creates a session manager. ttl <= 0 means DefaultTTL.
func NewManager(secret string, ttl time.Duration, opts ...Option) (*Manager, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	m := &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// TTL returns the session lifetime
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue создает подписанный токен сессии для пользователя
func (m *Manager) Issue(userID int64, email, name string) (string, *Claims, error) {
	now := m.now()
	claims := &Claims{
		UserID:     userID,
		Email:      email,
		Name:       name,
		IssuedNano: now.UnixNano(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session: %w", err)
	}

	return tokenString, claims, nil
}

// Verify валидирует токен сессии. Любая ошибка сводится к ErrInvalidSession.
func (m *Manager) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidSession
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		// Проверяем что используется правильный алгоритм подписи
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID <= 0 {
		return nil, ErrInvalidSession
	}

	return claims, nil
}
