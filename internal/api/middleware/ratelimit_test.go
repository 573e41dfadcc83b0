package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eventify-org/server/internal/auth"
	"github.com/eventify-org/server/internal/config"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, cfg config.RateLimitConfig) *RateLimiter {
	t.Helper()
	l := NewRateLimiter(cfg, "test")
	t.Cleanup(l.Close)
	return l
}

func doRequest(handler http.Handler, remote string, mutate func(*http.Request) *http.Request) int {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = remote
	if mutate != nil {
		req = mutate(req)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimit_LoginBurstThenBlocks(t *testing.T) {
	l := newTestLimiter(t, config.RateLimitConfig{LoginPerMinute: 3})
	handler := l.Limit(TierLogin)(okHandler)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, doRequest(handler, "192.0.2.10:1000", nil), "request %d", i+1)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = "192.0.2.10:1000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "20", rec.Header().Get("Retry-After"))
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	require.Equal(t, http.StatusOK, doRequest(handler, "192.0.2.11:1000", nil), "other clients are unaffected")
}

func TestRateLimit_ZeroDisablesTier(t *testing.T) {
	l := newTestLimiter(t, config.RateLimitConfig{})
	handler := l.Limit(TierPublic)(okHandler)
	for i := 0; i < 50; i++ {
		require.Equal(t, http.StatusOK, doRequest(handler, "192.0.2.10:1000", nil))
	}
}

func TestRateLimit_AuthenticatedKeyedByUser(t *testing.T) {
	l := newTestLimiter(t, config.RateLimitConfig{AuthenticatedPerMinute: 1})
	handler := l.Limit(TierAuthenticated)(okHandler)
	as := func(userID string) func(*http.Request) *http.Request {
		return func(r *http.Request) *http.Request {
			return r.WithContext(auth.WithPrincipal(r.Context(), auth.Principal{UserID: userID, Role: auth.RoleAttendee}))
		}
	}

	require.Equal(t, http.StatusOK, doRequest(handler, "198.51.100.1:1", as("u1")))
	require.Equal(t, http.StatusOK, doRequest(handler, "198.51.100.1:1", as("u2")))
	require.Equal(t, http.StatusTooManyRequests, doRequest(handler, "198.51.100.1:1", as("u1")))
}

func TestRateLimit_ForwardedForOnlyFromTrustedProxy(t *testing.T) {
	l := newTestLimiter(t, config.RateLimitConfig{TrustedProxyCIDRs: []string{"10.0.0.0/8", "not-a-cidr"}})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:443"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.1.2.3")
	require.Equal(t, "203.0.113.9", l.clientKey(req))

	req.RemoteAddr = "203.0.113.50:443"
	require.Equal(t, "203.0.113.50", l.clientKey(req))
}

func TestRateLimit_CleanupDropsStaleEntries(t *testing.T) {
	l := newTestLimiter(t, config.RateLimitConfig{PublicPerMinute: 10})
	l.limiter(TierPublic, "a")
	l.cleanup(time.Now().Add(limiterTTL + time.Minute))

	l.mu.Lock()
	defer l.mu.Unlock()
	require.Empty(t, l.limiters)
}
