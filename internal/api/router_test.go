package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/eventify-org/server/internal/api/handlers"
	"github.com/eventify-org/server/internal/api/middleware"
	"github.com/eventify-org/server/internal/auth"
	"github.com/eventify-org/server/internal/config"
	"github.com/eventify-org/server/internal/testauth"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := config.Defaults()
	cfg.Environment = "test"
	cfg.RateLimit = config.RateLimitConfig{LoginPerMinute: 2}

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.Environment)
	t.Cleanup(limiter.Close)

	return NewRouter(Dependencies{
		Config:      cfg,
		Logger:      zerolog.Nop(),
		Build:       BuildInfo{Version: "1.0.0"},
		Tokens:      testauth.New().Manager(),
		Health:      handlers.NewHealthChecker("1.0.0", "abc", handlers.Check{Name: "database", Run: func(context.Context) error { return nil }}),
		RateLimiter: limiter,
	})
}

func TestRouter_PublicEndpoints(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/healthz", "/readyz", "/version", "/metrics", "/api/v1/openapi.json"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
		require.NotEmpty(t, rec.Header().Get("X-Request-ID"), path)
		require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"), path)
	}
}

func TestRouter_OpenAPIIsJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/openapi.json", nil))

	var doc map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&doc))
	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, paths, "/registrations/{eventId}")
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t)

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodPost, "/api/v1/events"},
		{http.MethodPost, "/api/v1/registrations/01HV00000000000000000000E1"},
		{http.MethodGet, "/api/v1/registrations/my"},
		{http.MethodGet, "/api/v1/admin/users"},
		{http.MethodPost, "/api/v1/registrations/event/01HV00000000000000000000E1/checkin"},
	}
	for _, rt := range routes {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(rt.method, rt.path, nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code, rt.method+" "+rt.path)
		require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	}
}

func TestRouter_ForeignTokenRejected(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	testauth.NewWithSecret(strings.Repeat("z", 40)).AddAuth(t, req, "01HV0000000000000000000001", auth.RoleAdmin)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_MethodAndPathMismatch(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/events", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Contains(t, rec.Header().Get("Allow"), http.MethodGet)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_LoginIsRateLimited(t *testing.T) {
	router := newTestRouter(t)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{`))
		req.RemoteAddr = "192.0.2.7:5000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)
}
