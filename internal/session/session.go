package session

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"golinks.org/internal/ids"
)

const issuer = "golinks"

const defaultTTL = 12 * time.Hour

// ErrInvalidToken indicates the session token failed validation.
var ErrInvalidToken = errors.New("session: invalid token")

// Claims are the registered claims carried by a session token. The subject
// is a user id; the live user record is always re-read per request, so the
// token carries identity only, never authorization state.
type Claims struct {
	jwt.RegisteredClaims
}

// Manager signs and verifies session tokens with the process-wide sessions
// secret (the same secret that signs transfer tokens).
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option configures Manager behavior.
type Option func(*Manager)

// WithTTL overrides the session lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(m *Manager) {
		if fn != nil {
			m.now = fn
		}
	}
}

func NewManager(secret []byte, opts ...Option) (*Manager, error) {
	if len(secret) == 0 {
		return nil, errors.New("session: signing secret is required")
	}
	m := &Manager{secret: secret, ttl: defaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Issue signs a session token for the given user id.
func (m *Manager) Issue(userID string) (string, time.Time, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", time.Time{}, errors.New("session: user id is required")
	}
	now := m.now().UTC()
	expiresAt := now.Add(m.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        ids.New(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks the token signature, issuer, and expiry, and returns the
// subject user id.
func (m *Manager) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidToken
	}
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (any, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, ErrInvalidToken
			}
			return m.secret, nil
		},
		jwt.WithTimeFunc(m.now),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
