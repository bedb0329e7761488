package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "tester",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func authedRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/inspect/health", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func okHandler() (http.Handler, *bool) {
	called := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}), &called
}

func TestBearerAuth_DisabledWithoutSecret(t *testing.T) {
	handler, called := okHandler()
	rec := httptest.NewRecorder()

	BearerAuth("")(handler).ServeHTTP(rec, authedRequest(""))
	assert.True(t, *called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBearerAuth_ValidToken(t *testing.T) {
	handler, called := okHandler()
	rec := httptest.NewRecorder()

	BearerAuth("secret")(handler).ServeHTTP(rec, authedRequest(signToken(t, "secret")))
	assert.True(t, *called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBearerAuth_MissingHeader(t *testing.T) {
	handler, called := okHandler()
	rec := httptest.NewRecorder()

	BearerAuth("secret")(handler).ServeHTTP(rec, authedRequest(""))
	assert.False(t, *called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerAuth_WrongSecret(t *testing.T) {
	handler, called := okHandler()
	rec := httptest.NewRecorder()

	BearerAuth("secret")(handler).ServeHTTP(rec, authedRequest(signToken(t, "other")))
	assert.False(t, *called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid token")
}
