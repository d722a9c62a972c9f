package auth

import (
	"errors"
	"maps"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the lifetime of a session token when none is configured (30 days).
const DefaultTTL = 60 * 24 * 30 * time.Minute

const (
	claimEmail = "email"
	claimExp   = "exp"
)

var (
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrExpired          = errors.New("token has expired")
	ErrMalformed        = errors.New("token is malformed")
)

// Claims are the decoded payload of a token, keyed by claim name.
type Claims map[string]any

func (c Claims) String(key string) string {
	v, ok := c[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func (c Claims) Email() string {
	return c.String(claimEmail)
}

// ExpiresAt returns the exp claim, or the zero time when it is missing.
func (c Claims) ExpiresAt() time.Time {
	exp, err := jwt.MapClaims(c).GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl == 0 {
		ttl = DefaultTTL
	}

	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Encode signs claims with the configured TTL.
func (m *Manager) Encode(claims Claims) (string, error) {
	return m.EncodeWithTTL(claims, m.ttl)
}

// EncodeWithTTL signs a copy of claims with exp set to now+ttl. No other
// registered claims are added, so identical input yields an identical token.
func (m *Manager) EncodeWithTTL(claims Claims, ttl time.Duration) (string, error) {
	payload := make(jwt.MapClaims, len(claims)+1)
	maps.Copy(payload, claims)
	payload[claimExp] = m.now().Add(ttl).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	return token.SignedString(m.secret)
}

func (m *Manager) Decode(tokenStr string) (Claims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		default:
			return nil, ErrMalformed
		}
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrMalformed
	}

	return Claims(mc), nil
}

// IssueSession mints a session credential for the given email.
func (m *Manager) IssueSession(email string) (string, error) {
	return m.Encode(Claims{claimEmail: email})
}

// SessionEmail decodes a session credential and returns its email claim.
func (m *Manager) SessionEmail(tokenStr string) (string, error) {
	claims, err := m.Decode(tokenStr)
	if err != nil {
		return "", err
	}

	email := claims.Email()
	if email == "" {
		return "", ErrMalformed
	}

	return email, nil
}
