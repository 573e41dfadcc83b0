package events

import (
	"context"
	"errors"
	"time"

	"github.com/eventify-org/server/internal/api/pagination"
)

var (
	ErrNotFound      = errors.New("event not found")
	ErrNotAuthorized = errors.New("not authorized")

	// ErrCapacityBelowRegistered is returned by the repository when a
	// capacity change would drop below the seats already taken.
	ErrCapacityBelowRegistered = errors.New("capacity below registered count")
)

const (
	CategoryConference = "conference"
	CategoryWorkshop   = "workshop"
	CategorySeminar    = "seminar"
	CategoryNetworking = "networking"
	CategoryConcert    = "concert"
	CategorySports     = "sports"
	CategoryOther      = "other"
)

var Categories = []string{
	CategoryConference, CategoryWorkshop, CategorySeminar, CategoryNetworking,
	CategoryConcert, CategorySports, CategoryOther,
}

// Lifecycle states set by organizers. They are independent of whether the
// event date has passed.
const (
	StateUpcoming  = "upcoming"
	StateOngoing   = "ongoing"
	StateCompleted = "completed"
	StateCancelled = "cancelled"
)

var States = []string{StateUpcoming, StateOngoing, StateCompleted, StateCancelled}

type Event struct {
	ID              string
	Title           string
	Description     string
	Category        string
	Date            time.Time
	Time            string
	Location        string
	Latitude        *float64
	Longitude       *float64
	ImageURL        string
	Capacity        int
	RegisteredCount int
	OrganizerID     string
	Organizer       *Organizer
	AttendeeIDs     []string
	Price           float64
	Tags            []string
	Requirements    string
	State           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Organizer is the public summary of the event's organizer.
type Organizer struct {
	ID             string
	Name           string
	Email          string
	ProfilePicture string
}

func (e *Event) AvailableSeats() int {
	if e.RegisteredCount >= e.Capacity {
		return 0
	}
	return e.Capacity - e.RegisteredCount
}

// Patch carries the mutable event fields. Nil means unchanged. The
// organizer and the seat bookkeeping are deliberately absent.
type Patch struct {
	Title        *string
	Description  *string
	Category     *string
	Date         *time.Time
	Time         *string
	Location     *string
	Latitude     *float64
	Longitude    *float64
	ImageURL     *string
	Capacity     *int
	Price        *float64
	Tags         []string
	TagsSet      bool
	Requirements *string
	State        *string
}

// When selects events relative to today.
type When string

const (
	WhenAll      When = "all"
	WhenUpcoming When = "upcoming"
	WhenPast     When = "past"
)

type Filters struct {
	When        When
	Today       time.Time
	Category    string
	DateFrom    *time.Time
	DateTo      *time.Time
	OrganizerID string
	State       string
}

type ListResult struct {
	Events []Event
	Total  int
}

type Repository interface {
	// Create inserts the event and links it to the organizer atomically.
	Create(ctx context.Context, event Event) (*Event, error)
	GetByID(ctx context.Context, id string) (*Event, error)
	Update(ctx context.Context, id string, patch Patch) (*Event, error)
	List(ctx context.Context, filters Filters, page pagination.Page) (ListResult, error)
	Search(ctx context.Context, query string, limit int) ([]Event, error)
}

// Purger deletes an event along with its registrations and back-references.
type Purger interface {
	PurgeEvent(ctx context.Context, eventID string) error
}
