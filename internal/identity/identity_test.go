package identity

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, secret string, claims jwt.RegisteredClaims, method jwt.SigningMethod) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func TestStatic(t *testing.T) {
	id, err := Static("default_user").Resolve(httptest.NewRequest("POST", "/api/process", nil))
	require.NoError(t, err)
	assert.Equal(t, "default_user", id)
}

func TestHeader(t *testing.T) {
	r := Header{Name: "X-User-ID", Fallback: Static("default_user")}

	req := httptest.NewRequest("POST", "/api/process", nil)
	id, err := r.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "default_user", id, "missing header falls back")

	req.Header.Set("X-User-ID", "  coach-42 ")
	id, err = r.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "coach-42", id)
}

func TestJWT(t *testing.T) {
	const secret = "test-secret"
	r := New("default_user", "X-User-ID", secret)

	valid := signed(t, secret, jwt.RegisteredClaims{
		Subject:   "user-7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, jwt.SigningMethodHS256)
	expired := signed(t, secret, jwt.RegisteredClaims{
		Subject:   "user-7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}, jwt.SigningMethodHS256)
	wrongKey := signed(t, "other", jwt.RegisteredClaims{Subject: "user-7"}, jwt.SigningMethodHS256)
	noSubject := signed(t, secret, jwt.RegisteredClaims{}, jwt.SigningMethodHS256)
	wrongAlg := signed(t, secret, jwt.RegisteredClaims{Subject: "user-7"}, jwt.SigningMethodHS512)

	tests := []struct {
		name    string
		auth    string
		header  string
		want    string
		wantErr bool
	}{
		{"valid token", "Bearer " + valid, "", "user-7", false},
		{"token wins over header", "Bearer " + valid, "someone-else", "user-7", false},
		{"header ignored without token", "", "coach-1", "default_user", false},
		{"no auth no header uses default", "", "", "default_user", false},
		{"expired", "Bearer " + expired, "", "", true},
		{"wrong key", "Bearer " + wrongKey, "", "", true},
		{"no subject", "Bearer " + noSubject, "", "", true},
		{"wrong algorithm", "Bearer " + wrongAlg, "", "", true},
		{"not bearer", "Basic abc", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/process", nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			if tt.header != "" {
				req.Header.Set("X-User-ID", tt.header)
			}

			id, err := r.Resolve(req)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrUnauthenticated), "expected ErrUnauthenticated, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestNew_WithoutSecretIgnoresAuthorization(t *testing.T) {
	r := New("default_user", "", "")

	req := httptest.NewRequest("POST", "/api/process", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	id, err := r.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "default_user", id)
}

func TestNew_HeaderWithoutSecret(t *testing.T) {
	r := New("default_user", "X-User-ID", "")

	req := httptest.NewRequest("POST", "/api/process", nil)
	req.Header.Set("X-User-ID", "coach-1")
	id, err := r.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "coach-1", id)
}
