package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hexmap-server/internal/access"
	"hexmap-server/internal/auth"
	"hexmap-server/internal/shared/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func requesterEcho(got *access.Requester) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = RequesterFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthenticator(t *testing.T) {
	validator, err := auth.NewValidator(testSecret)
	require.NoError(t, err)
	authn := NewAuthenticator(validator)

	userToken, err := validator.Generate("alice", "", time.Hour)
	require.NoError(t, err)
	systemToken, err := validator.Generate("", auth.RoleSystem, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name      string
		prepare   func(r *http.Request)
		status    int
		requester access.Requester
	}{
		{"no token", func(r *http.Request) {}, http.StatusNoContent, access.Anonymous()},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+userToken) }, http.StatusNoContent, access.User("alice")},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: authCookieName, Value: userToken}) }, http.StatusNoContent, access.User("alice")},
		{"system role", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+systemToken) }, http.StatusNoContent, access.System()},
		{"garbage", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized, access.Anonymous()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got access.Requester
			req := httptest.NewRequest(http.MethodGet, "/api/items/1", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()

			authn.Middleware(requesterEcho(&got)).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.requester, got)
		})
	}
}

func TestRequesterFromContext_DefaultsToAnonymous(t *testing.T) {
	assert.True(t, RequesterFromContext(context.Background()).IsAnonymous())
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, rec.Header().Get(requestIDHeader))

	inbound := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, inbound)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, inbound, seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "not a uuid")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.NotEqual(t, "not a uuid", seen)
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	rl := NewRateLimiter(ctx, config.RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 0.001,
		BurstSize:         2,
		TrustProxy:        true,
	})
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(forwardedFor string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1, 192.168.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2"))

	rl.evictIdle(time.Now())
	assert.Len(t, rl.clients, 2)

	rl.evictIdle(time.Now().Add(2 * time.Hour))
	assert.Empty(t, rl.clients)
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	req.Header.Set("X-Forwarded-For", "10.0.0.9")

	assert.Equal(t, "192.168.1.1", getClientIP(req, false))
	assert.Equal(t, "10.0.0.9", getClientIP(req, true))
}
