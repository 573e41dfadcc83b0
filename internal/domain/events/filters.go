package events

import (
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/eventify-org/server/internal/domain/ids"
	"github.com/eventify-org/server/internal/validation"
)

// ParseFilters reads listing filters from query parameters.
func ParseFilters(values url.Values) (Filters, error) {
	filters := Filters{When: WhenAll}
	verr := &validation.Error{}

	if raw := strings.ToLower(strings.TrimSpace(values.Get("status"))); raw != "" {
		switch When(raw) {
		case WhenAll, WhenUpcoming, WhenPast:
			filters.When = When(raw)
		default:
			verr.Add("status", "must be one of: upcoming, past, all")
		}
	}

	if raw := strings.ToLower(strings.TrimSpace(values.Get("category"))); raw != "" {
		if slices.Contains(Categories, raw) {
			filters.Category = raw
		} else {
			verr.Add("category", "unsupported category")
		}
	}

	if raw := strings.ToLower(strings.TrimSpace(values.Get("state"))); raw != "" {
		if slices.Contains(States, raw) {
			filters.State = raw
		} else {
			verr.Add("state", "unsupported lifecycle state")
		}
	}

	filters.DateFrom = parseDate(verr, "dateFrom", values.Get("dateFrom"))
	filters.DateTo = parseDate(verr, "dateTo", values.Get("dateTo"))
	if filters.DateFrom != nil && filters.DateTo != nil && filters.DateTo.Before(*filters.DateFrom) {
		verr.Add("dateTo", "must be on or after dateFrom")
	}

	if raw := strings.TrimSpace(values.Get("organizerId")); raw != "" {
		if err := ids.ValidateULID(raw); err != nil {
			verr.Add("organizerId", "invalid ULID")
		} else {
			filters.OrganizerID = ids.Normalize(raw)
		}
	}

	if err := verr.OrNil(); err != nil {
		return Filters{}, err
	}
	return filters, nil
}

func parseDate(verr *validation.Error, field, value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	parsed, err := time.Parse(time.DateOnly, value)
	if err != nil {
		verr.Add(field, "must be a date in YYYY-MM-DD format")
		return nil
	}
	return &parsed
}
