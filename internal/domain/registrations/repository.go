package registrations

import (
	"context"
	"time"
)

// Repository is the storage boundary of the engine. Every mutation happens
// through a Tx obtained from WithTx; a non-nil error from fn rolls back
// everything fn did.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	GetEventSeats(ctx context.Context, eventID string) (*EventSeats, error)
	ListByUser(ctx context.Context, userID string, opts ListOptions) ([]Registration, error)
	ListByEvent(ctx context.Context, eventID string, opts ListOptions) ([]Registration, error)
	EventIDs(ctx context.Context) ([]string, error)
}

// Tx exposes the primitives used inside one engine transaction. Events are
// always locked before users.
type Tx interface {
	// LockEvent takes a row lock on the event; ErrEventNotFound when absent.
	LockEvent(ctx context.Context, eventID string) (*EventSeats, error)
	// LockEvents locks every listed event in id order and skips missing ones.
	LockEvents(ctx context.Context, eventIDs []string) ([]EventSeats, error)
	// LockUser takes a row lock on the user; ErrUserNotFound when absent.
	LockUser(ctx context.Context, userID string) error

	FindActive(ctx context.Context, userID, eventID string) (*Registration, error)
	FindActiveByTicket(ctx context.Context, eventID, ticket string) (*Registration, error)
	// Insert fails with ErrAlreadyRegistered when an active row exists for
	// the pair, ErrDuplicateTicket on a ticket collision and
	// ErrUserNotFound when the user is gone. A failed insert leaves the
	// transaction usable.
	Insert(ctx context.Context, reg Registration) error
	Cancel(ctx context.Context, registrationID string, at time.Time) error
	MarkAttended(ctx context.Context, registrationID string, at time.Time) error

	// ClaimSeat increments the count and records the attendee only while
	// count < capacity. It reports false when no seat was left.
	ClaimSeat(ctx context.Context, eventID, userID string) (bool, error)
	// ReleaseSeat decrements the count, never below zero, and drops the attendee.
	ReleaseSeat(ctx context.Context, eventID, userID string) error
	SetSeats(ctx context.Context, eventID string, count int, attendeeIDs []string) error
	ActiveAttendees(ctx context.Context, eventID string) ([]string, error)

	LinkUser(ctx context.Context, userID, eventID string) error
	UnlinkUser(ctx context.Context, userID, eventID string) error

	ActiveEventIDsForUser(ctx context.Context, userID string) ([]string, error)
	EventsOrganizedBy(ctx context.Context, userID string) ([]string, error)

	// DeleteForEvent removes every registration row of the event and
	// returns the affected user ids.
	DeleteForEvent(ctx context.Context, eventID string) ([]string, error)
	PruneUsersRegistered(ctx context.Context, userIDs []string, eventID string) error
	UnlinkOrganizer(ctx context.Context, organizerID, eventID string) error
	DeleteEvent(ctx context.Context, eventID string) error
	DeleteForUser(ctx context.Context, userID string) error
	DeleteUser(ctx context.Context, userID string) error

	// QueueConfirmation schedules the confirmation notice so that it
	// exists only if the transaction commits.
	QueueConfirmation(ctx context.Context, registrationID string) error
}

// Recorder receives engine outcomes for metrics.
type Recorder interface {
	Outcome(operation, result string)
	SeatsChanged(delta int)
	DriftDetected(eventID string)
}

type nopRecorder struct{}

func (nopRecorder) Outcome(string, string) {}
func (nopRecorder) SeatsChanged(int)       {}
func (nopRecorder) DriftDetected(string)   {}
