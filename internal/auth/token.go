package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"reelshare/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL matches the session lifetime users expect from the web
// client: thirty days.
const DefaultTokenTTL = 30 * 24 * time.Hour

// ErrInvalidToken covers every verification failure: bad signature, expired,
// malformed, or wrong algorithm. Callers must not distinguish between them.
var ErrInvalidToken = errors.New("invalid session token")

// Claims carries the identity embedded in a session token. Subject holds the
// user id.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// TokenManager issues and validates stateless HS256 session tokens. Tokens
// are not persisted server-side; validity is purely cryptographic and
// time-based.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a manager around the signing secret. A zero ttl
// falls back to DefaultTokenTTL.
func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("session secret required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue mints a signed token for the user.
func (m *TokenManager) Issue(user models.User) (string, error) {
	now := m.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Email: user.Email,
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Validate checks the signature and expiry and returns the embedded claims.
func (m *TokenManager) Validate(tokenString string) (Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return m.now() }),
	)
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Claims{}, ErrInvalidToken
	}
	return *claims, nil
}

// TTL reports the configured token lifetime, used to size session cookies.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}
