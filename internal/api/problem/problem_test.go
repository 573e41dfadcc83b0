package problem

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eventify-org/server/internal/auth"
	"github.com/eventify-org/server/internal/domain/events"
	"github.com/eventify-org/server/internal/domain/registrations"
	"github.com/eventify-org/server/internal/domain/users"
	"github.com/eventify-org/server/internal/storage"
	"github.com/eventify-org/server/internal/validation"
	"github.com/stretchr/testify/require"
)

func TestWrite_DevIncludesDetail(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/api/v1/resource", nil)
	res := httptest.NewRecorder()

	Write(res, req, http.StatusBadRequest, "https://example.com/problem", "bad request", errors.New("boom"), "development")

	require.Equal(t, "application/problem+json", res.Result().Header.Get("Content-Type"))

	var body ProblemDetails
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	require.Equal(t, "boom", body.Detail)
	require.Equal(t, "/api/v1/resource", body.Instance)
}

func TestWrite_ProdSanitizesDetail(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/api/v1/resource", nil)
	res := httptest.NewRecorder()

	Write(res, req, http.StatusInternalServerError, TypeInternal, "Internal error", errors.New("pq: relation missing"), "production")

	var body ProblemDetails
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	require.Equal(t, http.StatusText(http.StatusInternalServerError), body.Detail)
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     int
		typ        string
		retryAfter string
	}{
		{"invalid fields", validation.NewError("title", "is required"), http.StatusBadRequest, TypeInvalidFields, ""},
		{"missing token", auth.ErrMissingToken, http.StatusUnauthorized, TypeUnauthenticated, ""},
		{"bad credentials", users.ErrInvalidCredentials, http.StatusUnauthorized, TypeUnauthenticated, ""},
		{"not organizer", events.ErrNotAuthorized, http.StatusForbidden, TypeForbidden, ""},
		{"protected admin", users.ErrProtectedAdmin, http.StatusForbidden, TypeForbidden, ""},
		{"event missing", registrations.ErrEventNotFound, http.StatusNotFound, TypeNotFound, ""},
		{"wrapped missing", fmt.Errorf("load: %w", events.ErrNotFound), http.StatusNotFound, TypeNotFound, ""},
		{"duplicate", registrations.ErrAlreadyRegistered, http.StatusConflict, TypeAlreadyRegistered, ""},
		{"full", registrations.ErrEventFull, http.StatusConflict, TypeEventFull, ""},
		{"past", registrations.ErrEventExpired, http.StatusBadRequest, TypeEventExpired, ""},
		{"email taken", users.ErrEmailTaken, http.StatusConflict, TypeEmailTaken, ""},
		{"serialization", fmt.Errorf("%w: deadlock", storage.ErrConflict), http.StatusServiceUnavailable, TypeUnavailable, "1"},
		{"db down", storage.ErrUnavailable, http.StatusServiceUnavailable, TypeUnavailable, "5"},
		{"other", errors.New("boom"), http.StatusInternalServerError, TypeInternal, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/registrations/X", nil)
			res := httptest.NewRecorder()

			FromError(res, req, tt.err, "production")

			require.Equal(t, tt.status, res.Code)
			require.Equal(t, tt.retryAfter, res.Header().Get("Retry-After"))
			var body ProblemDetails
			require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
			require.Equal(t, tt.typ, body.Type)
			require.Equal(t, tt.status, body.Status)
		})
	}
}

func TestFromError_FieldErrors(t *testing.T) {
	verr := &validation.Error{}
	verr.Add("capacity", "must be at least 1")
	verr.Add("date", "must be a date in YYYY-MM-DD format")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", nil)
	res := httptest.NewRecorder()
	FromError(res, req, fmt.Errorf("create event: %w", verr), "production")

	var body ProblemDetails
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	require.Equal(t, http.StatusBadRequest, body.Status)
	require.Equal(t, "must be at least 1", body.Errors["capacity"])
	require.Contains(t, body.Errors, "date")
}
