package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eventify-org/server/internal/auth"
	"github.com/eventify-org/server/internal/domain/users"
	"github.com/eventify-org/server/internal/testauth"
	"github.com/stretchr/testify/require"
)

type stubLookup map[string]*users.User

func (s stubLookup) Get(_ context.Context, id string) (*users.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, users.ErrNotFound
}

func TestAuthenticator(t *testing.T) {
	issuer := testauth.New()
	lookup := stubLookup{
		"U1": {ID: "U1", Role: auth.RoleOrganizer},
		"U2": {ID: "U2", Role: auth.RoleAttendee},
	}
	authn := NewAuthenticator(issuer.Manager(), lookup, "test")

	var seen auth.Principal
	protected := authn.RequireRole(auth.RoleOrganizer, auth.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	bearer := func(userID string, role auth.Role) string {
		return issuer.Bearer(t, userID, role)
	}

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"deleted user", bearer("GONE", auth.RoleOrganizer), http.StatusUnauthorized},
		{"role from database wins over token", bearer("U2", auth.RoleOrganizer), http.StatusForbidden},
		{"organizer allowed", bearer("U1", auth.RoleAttendee), http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/events", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)
			require.Equal(t, tt.status, rec.Code)
		})
	}
	require.Equal(t, auth.Principal{UserID: "U1", Role: auth.RoleOrganizer}, seen)
}
