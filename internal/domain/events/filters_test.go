package events

import (
	"net/url"
	"testing"
	"time"

	"github.com/eventify-org/server/internal/validation"
	"github.com/stretchr/testify/require"
)

func assertFieldError(t *testing.T, err error, field string) {
	t.Helper()
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, field)
}

func TestParseFiltersDefaults(t *testing.T) {
	filters, err := ParseFilters(url.Values{})

	require.NoError(t, err)
	require.Equal(t, WhenAll, filters.When)
	require.Empty(t, filters.Category)
	require.Empty(t, filters.State)
	require.Nil(t, filters.DateFrom)
	require.Nil(t, filters.DateTo)
	require.Empty(t, filters.OrganizerID)
}

func TestParseFiltersValues(t *testing.T) {
	values := url.Values{}
	values.Set("status", " Upcoming ")
	values.Set("category", "CONCERT")
	values.Set("state", "ongoing")
	values.Set("dateFrom", "2026-01-01")
	values.Set("dateTo", "2026-01-31")
	values.Set("organizerId", "01hqzx3y4k6f7g8h9j0k1m2n3p")

	filters, err := ParseFilters(values)

	require.NoError(t, err)
	require.Equal(t, WhenUpcoming, filters.When)
	require.Equal(t, CategoryConcert, filters.Category)
	require.Equal(t, StateOngoing, filters.State)
	require.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *filters.DateFrom)
	require.Equal(t, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), *filters.DateTo)
	require.Equal(t, "01HQZX3Y4K6F7G8H9J0K1M2N3P", filters.OrganizerID)
}

func TestParseFiltersErrors(t *testing.T) {
	cases := map[string]url.Values{
		"status":      {"status": {"tomorrow"}},
		"category":    {"category": {"rave"}},
		"state":       {"state": {"archived"}},
		"dateFrom":    {"dateFrom": {"01/02/2026"}},
		"dateTo":      {"dateFrom": {"2026-02-02"}, "dateTo": {"2026-02-01"}},
		"organizerId": {"organizerId": {"not-a-ulid"}},
	}
	for field, values := range cases {
		t.Run(field, func(t *testing.T) {
			_, err := ParseFilters(values)
			assertFieldError(t, err, field)
		})
	}
}
