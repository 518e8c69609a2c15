// Package auth resolves bearer tokens to a caller identity. The
// surface that issues tokens (account login) lives outside this
// service; we only verify.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kellyg78/vu-music-sala/internal/domain"
)

var (
	ErrMissingToken = errors.New("auth: token not provided")
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Authenticator turns a bearer token into the caller's identity.
type Authenticator interface {
	Resolve(token string) (domain.OwnerID, error)
}

type claims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
}

// JWT verifies HMAC-signed tokens. The subject claim carries the
// owner id.
type JWT struct {
	secret []byte
}

func NewJWT(secret string) *JWT {
	return &JWT{secret: []byte(secret)}
}

func (j *JWT) Resolve(token string) (domain.OwnerID, error) {
	if token == "" {
		return "", ErrMissingToken
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		return j.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, ErrInvalidToken)
	}
	if parsed.Subject == "" {
		return "", fmt.Errorf("missing subject: %w", ErrInvalidToken)
	}
	return domain.OwnerID(parsed.Subject), nil
}

// Issue signs a token for the given owner. Used by tooling and tests;
// the production issuer is the account service.
func (j *JWT) Issue(owner domain.OwnerID, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(owner),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Username: username,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(j.secret)
}
