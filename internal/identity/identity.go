// Package identity resolves which user a request acts for.
package identity

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthenticated is returned when a request carries credentials that
// cannot be verified.
var ErrUnauthenticated = errors.New("unauthenticated")

type Resolver interface {
	Resolve(r *http.Request) (string, error)
}

// Static resolves every request to the same user.
type Static string

func (s Static) Resolve(*http.Request) (string, error) {
	return string(s), nil
}

// Header reads the user id from a request header and defers to Fallback
// when the header is empty.
type Header struct {
	Name     string
	Fallback Resolver
}

func (h Header) Resolve(r *http.Request) (string, error) {
	if v := strings.TrimSpace(r.Header.Get(h.Name)); v != "" {
		return v, nil
	}
	return h.Fallback.Resolve(r)
}

// JWT takes the user id from the sub claim of an HS256 bearer token.
// Requests without an Authorization header go to Fallback.
type JWT struct {
	secret   []byte
	fallback Resolver
}

func NewJWT(secret string, fallback Resolver) *JWT {
	return &JWT{secret: []byte(secret), fallback: fallback}
}

func (j *JWT) Resolve(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return j.fallback.Resolve(r)
	}
	raw, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return "", fmt.Errorf("%w: expected bearer token", ErrUnauthenticated)
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return j.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}
	return claims.Subject, nil
}

// New builds the resolver chain. With a secret set, only a verified token
// names a user; requests without one get the static default and the
// header is never consulted. Without a secret, the header is read first.
func New(defaultUserID, header, jwtSecret string) Resolver {
	var r Resolver = Static(defaultUserID)
	if jwtSecret != "" {
		return NewJWT(jwtSecret, r)
	}
	if header != "" {
		r = Header{Name: header, Fallback: r}
	}
	return r
}
