// Package registrations implements the registration engine: the only code
// path that changes seat counts, attendee lists and the registration rows
// that back them.
package registrations

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound = errors.New("not found")

	ErrEventNotFound        = fmt.Errorf("event %w", ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("user %w", ErrNotFound)
	ErrRegistrationNotFound = fmt.Errorf("registration %w", ErrNotFound)

	ErrNotAuthorized     = errors.New("not authorized")
	ErrAlreadyRegistered = errors.New("already registered for this event")
	ErrEventFull         = errors.New("event is full")
	ErrEventExpired      = errors.New("event has already taken place")

	// ErrDuplicateTicket is reported by the store when a generated ticket
	// number collides with an existing one.
	ErrDuplicateTicket = errors.New("duplicate ticket number")
)

type Status string

const (
	StatusRegistered Status = "registered"
	StatusAttended   Status = "attended"
	StatusCancelled  Status = "cancelled"
)

// Active reports whether the registration holds a seat.
func (s Status) Active() bool {
	return s == StatusRegistered || s == StatusAttended
}

type Registration struct {
	ID           string
	UserID       string
	EventID      string
	Status       Status
	TicketNumber string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CancelledAt  *time.Time

	Event *EventSummary
	User  *UserSummary
}

// EventSummary is embedded in a user's own registration listing.
type EventSummary struct {
	ID              string
	Title           string
	Description     string
	Date            time.Time
	Time            string
	Location        string
	ImageURL        string
	Capacity        int
	RegisteredCount int
}

// UserSummary is embedded in an organizer's attendee listing.
type UserSummary struct {
	ID             string
	Name           string
	Email          string
	Phone          string
	ProfilePicture string
}

// EventSeats is the invariant-bearing slice of an event row.
type EventSeats struct {
	ID              string
	OrganizerID     string
	Date            time.Time
	Capacity        int
	RegisteredCount int
	AttendeeIDs     []string
}

type ListOptions struct {
	IncludeCancelled bool
}
