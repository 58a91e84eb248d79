package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hexmap-server/internal/auth"
	"hexmap-server/internal/content"
	"hexmap-server/internal/mapitem"
	"hexmap-server/internal/middleware"
	serverHandlers "hexmap-server/internal/server/handlers"
	"hexmap-server/internal/shared/config"
	"hexmap-server/internal/shared/database/dbtest"
	"hexmap-server/internal/tree"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newHandler(t *testing.T) (http.Handler, *auth.Validator) {
	t.Helper()
	db := dbtest.New(t)
	limits := config.DefaultTreeConfig()
	items := mapitem.NewRepository(db, slog.Default(), limits.ContentBatchSize)
	contents := content.NewRepository(db, slog.Default(), limits.ContentBatchSize)
	service := tree.NewService(db, items, contents, nil, limits, slog.Default())

	validator, err := auth.NewValidator(testSecret)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	routes := NewRoutes(
		db,
		nil,
		service,
		middleware.NewAuthenticator(validator),
		middleware.NewCORS(config.FrontendConfig{URL: "http://localhost:3000"}),
		middleware.NewRateLimiter(ctx, config.RateLimitConfig{}),
	)
	return routes.Setup(), validator
}

func TestHealth(t *testing.T) {
	handler, _ := newHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/server/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body serverHandlers.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "connected", body.Database)
	assert.Equal(t, "disabled", body.Events)
}

func TestMetricsExposed(t *testing.T) {
	handler, _ := newHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTileRoutesResolveRequester(t *testing.T) {
	handler, validator := newHandler(t)
	token, err := validator.Generate("alice", "", time.Hour)
	require.NoError(t, err)

	create := func(authorization string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/maps", strings.NewReader(`{"title":"alice"}`))
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, create("Bearer broken"))
	assert.NotEqual(t, http.StatusCreated, create(""))
	assert.Equal(t, http.StatusCreated, create("Bearer "+token))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/alice/roots", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String(), "private maps are hidden from anonymous readers")
}
