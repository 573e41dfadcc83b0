package registrations

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/eventify-org/server/internal/auth"
	"github.com/eventify-org/server/internal/domain/calendar"
	"github.com/eventify-org/server/internal/domain/ids"
	"github.com/eventify-org/server/internal/storage"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/eventify-org/server/internal/domain/registrations"

	// maxTicketAttempts bounds retries after a ticket number collision.
	maxTicketAttempts = 3
)

// Engine serializes every seat change of an event behind that event's row
// lock. It never retries a failed transaction on its own.
type Engine struct {
	repo     Repository
	calendar calendar.Calendar
	recorder Recorder
	logger   zerolog.Logger
	tracer   trace.Tracer
}

type Option func(*Engine)

func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

func NewEngine(repo Repository, cal calendar.Calendar, logger zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		repo:     repo,
		calendar: cal,
		recorder: nopRecorder{},
		logger:   logger.With().Str("component", "registrations").Logger(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register claims one seat of the event for the user. Preconditions are
// checked in order: the event exists, it has not passed, the user holds no
// active registration for it, and a seat is free.
func (e *Engine) Register(ctx context.Context, userID, eventID string) (*Registration, error) {
	userID, eventID = ids.Normalize(userID), ids.Normalize(eventID)
	ctx, span := e.start(ctx, "Register", eventID, userID)
	defer span.End()

	var created *Registration
	err := e.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		seats, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if e.calendar.IsPast(seats.Date) {
			return ErrEventExpired
		}
		existing, err := tx.FindActive(ctx, userID, eventID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyRegistered
		}
		if seats.RegisteredCount >= seats.Capacity {
			return ErrEventFull
		}

		reg, err := e.insert(ctx, tx, userID, eventID)
		if err != nil {
			return err
		}

		claimed, err := tx.ClaimSeat(ctx, eventID, userID)
		if err != nil {
			return err
		}
		if !claimed {
			return ErrEventFull
		}
		if err := tx.LinkUser(ctx, userID, eventID); err != nil {
			return err
		}
		if err := tx.QueueConfirmation(ctx, reg.ID); err != nil {
			return fmt.Errorf("queue confirmation: %w", err)
		}
		created = reg
		return nil
	})
	if err != nil {
		e.fail(span, "register", err)
		return nil, err
	}

	e.recorder.Outcome("register", "ok")
	e.recorder.SeatsChanged(1)
	e.logger.Info().
		Str("event_id", eventID).
		Str("user_id", userID).
		Str("ticket", created.TicketNumber).
		Msg("registration created")
	return created, nil
}

func (e *Engine) insert(ctx context.Context, tx Tx, userID, eventID string) (*Registration, error) {
	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate registration id: %w", err)
	}
	now := e.calendar.Now().UTC()
	reg := Registration{
		ID:        id,
		UserID:    userID,
		EventID:   eventID,
		Status:    StatusRegistered,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for attempt := 0; attempt < maxTicketAttempts; attempt++ {
		reg.TicketNumber = NewTicketNumber(eventID, userID, now.Add(time.Duration(attempt)*time.Millisecond))
		err = tx.Insert(ctx, reg)
		if !errors.Is(err, ErrDuplicateTicket) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// Unregister cancels the user's active registration and gives the seat back.
// The row is kept with status cancelled.
func (e *Engine) Unregister(ctx context.Context, userID, eventID string) error {
	userID, eventID = ids.Normalize(userID), ids.Normalize(eventID)
	ctx, span := e.start(ctx, "Unregister", eventID, userID)
	defer span.End()

	err := e.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.LockEvent(ctx, eventID); err != nil {
			return err
		}
		reg, err := tx.FindActive(ctx, userID, eventID)
		if err != nil {
			return err
		}
		if reg == nil {
			return ErrRegistrationNotFound
		}
		if err := tx.Cancel(ctx, reg.ID, e.calendar.Now().UTC()); err != nil {
			return err
		}
		if err := tx.ReleaseSeat(ctx, eventID, userID); err != nil {
			return err
		}
		return tx.UnlinkUser(ctx, userID, eventID)
	})
	if err != nil {
		e.fail(span, "unregister", err)
		return err
	}

	e.recorder.Outcome("unregister", "ok")
	e.recorder.SeatsChanged(-1)
	e.logger.Info().
		Str("event_id", eventID).
		Str("user_id", userID).
		Msg("registration cancelled")
	return nil
}

// ListMine returns the user's registrations newest first, each with a
// summary of its event.
func (e *Engine) ListMine(ctx context.Context, userID string, opts ListOptions) ([]Registration, error) {
	return e.repo.ListByUser(ctx, ids.Normalize(userID), opts)
}

// ListForEvent returns the event's registrations newest first with attendee
// contact details. Only the organizer of record or an admin may ask.
func (e *Engine) ListForEvent(ctx context.Context, eventID string, requester auth.Principal, opts ListOptions) ([]Registration, error) {
	eventID = ids.Normalize(eventID)
	seats, err := e.repo.GetEventSeats(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !canManage(requester, seats) {
		return nil, ErrNotAuthorized
	}
	return e.repo.ListByEvent(ctx, eventID, opts)
}

// CheckIn marks the ticket holder as attended. Checking in twice is a no-op.
func (e *Engine) CheckIn(ctx context.Context, eventID, ticket string, requester auth.Principal) (*Registration, error) {
	eventID = ids.Normalize(eventID)
	ctx, span := e.start(ctx, "CheckIn", eventID, "")
	defer span.End()

	var checked *Registration
	err := e.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		seats, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if !canManage(requester, seats) {
			return ErrNotAuthorized
		}
		reg, err := tx.FindActiveByTicket(ctx, eventID, ticket)
		if err != nil {
			return err
		}
		if reg == nil {
			return ErrRegistrationNotFound
		}
		if reg.Status == StatusRegistered {
			now := e.calendar.Now().UTC()
			if err := tx.MarkAttended(ctx, reg.ID, now); err != nil {
				return err
			}
			reg.Status = StatusAttended
			reg.UpdatedAt = now
		}
		checked = reg
		return nil
	})
	if err != nil {
		e.fail(span, "checkin", err)
		return nil, err
	}
	e.recorder.Outcome("checkin", "ok")
	return checked, nil
}

// PurgeEvent deletes the event with all of its registrations and prunes the
// back-references held by attendees and the organizer.
func (e *Engine) PurgeEvent(ctx context.Context, eventID string) error {
	eventID = ids.Normalize(eventID)
	ctx, span := e.start(ctx, "PurgeEvent", eventID, "")
	defer span.End()

	var released int
	err := e.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		seats, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return err
		}
		released = seats.RegisteredCount
		return purgeLockedEvent(ctx, tx, *seats, "")
	})
	if err != nil {
		e.fail(span, "purge_event", err)
		return err
	}

	e.recorder.Outcome("purge_event", "ok")
	e.logger.Info().
		Str("event_id", eventID).
		Int("released_seats", released).
		Msg("event purged")
	return nil
}

// purgeLockedEvent removes an already locked event. skipUserID names a user
// whose row is about to be deleted and needs no pruning.
func purgeLockedEvent(ctx context.Context, tx Tx, seats EventSeats, skipUserID string) error {
	affected, err := tx.DeleteForEvent(ctx, seats.ID)
	if err != nil {
		return err
	}
	if skipUserID != "" {
		affected = slices.DeleteFunc(affected, func(id string) bool { return id == skipUserID })
	}
	if err := tx.PruneUsersRegistered(ctx, affected, seats.ID); err != nil {
		return err
	}
	if seats.OrganizerID != skipUserID {
		if err := tx.UnlinkOrganizer(ctx, seats.OrganizerID, seats.ID); err != nil {
			return err
		}
	}
	return tx.DeleteEvent(ctx, seats.ID)
}

// PurgeUser deletes the user, every event they organize and every
// registration they hold, giving seats back to the events that remain.
func (e *Engine) PurgeUser(ctx context.Context, userID string) error {
	userID = ids.Normalize(userID)
	ctx, span := e.start(ctx, "PurgeUser", "", userID)
	defer span.End()

	var released int
	err := e.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		organized, err := tx.EventsOrganizedBy(ctx, userID)
		if err != nil {
			return err
		}
		attending, err := tx.ActiveEventIDsForUser(ctx, userID)
		if err != nil {
			return err
		}

		lockedSeats, err := tx.LockEvents(ctx, union(organized, attending))
		if err != nil {
			return err
		}
		locked := make(map[string]EventSeats, len(lockedSeats))
		for _, s := range lockedSeats {
			locked[s.ID] = s
		}

		if err := tx.LockUser(ctx, userID); err != nil {
			return err
		}

		// Registrations committed between the first read and the user lock
		// are caught here. Their events are locked late, which can only
		// end in a deadlock abort surfaced as a storage conflict.
		attending, err = tx.ActiveEventIDsForUser(ctx, userID)
		if err != nil {
			return err
		}
		var late []string
		for _, id := range attending {
			if _, ok := locked[id]; !ok {
				late = append(late, id)
			}
		}
		if len(late) > 0 {
			extra, err := tx.LockEvents(ctx, late)
			if err != nil {
				return err
			}
			for _, s := range extra {
				locked[s.ID] = s
			}
		}

		for _, id := range organized {
			seats, ok := locked[id]
			if !ok {
				continue
			}
			if err := purgeLockedEvent(ctx, tx, seats, userID); err != nil {
				return err
			}
			delete(locked, id)
		}

		for _, id := range attending {
			if _, ok := locked[id]; !ok {
				continue
			}
			if err := tx.ReleaseSeat(ctx, id, userID); err != nil {
				return err
			}
			released++
		}

		if err := tx.DeleteForUser(ctx, userID); err != nil {
			return err
		}
		return tx.DeleteUser(ctx, userID)
	})
	if err != nil {
		e.fail(span, "purge_user", err)
		return err
	}

	e.recorder.Outcome("purge_user", "ok")
	e.recorder.SeatsChanged(-released)
	e.logger.Info().
		Str("user_id", userID).
		Int("released_seats", released).
		Msg("user purged")
	return nil
}

func canManage(p auth.Principal, seats *EventSeats) bool {
	if p.IsZero() {
		return false
	}
	return p.IsAdmin() || p.UserID == seats.OrganizerID
}

func union(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	slices.Sort(out)
	return slices.Compact(out)
}

func (e *Engine) start(ctx context.Context, op, eventID, userID string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{}
	if eventID != "" {
		attrs = append(attrs, attribute.String("event.id", eventID))
	}
	if userID != "" {
		attrs = append(attrs, attribute.String("user.id", userID))
	}
	return e.tracer.Start(ctx, "registrations."+op, trace.WithAttributes(attrs...))
}

func (e *Engine) fail(span trace.Span, op string, err error) {
	result := Result(err)
	span.SetAttributes(attribute.String("result", result))
	if result == "error" || result == "conflict" || result == "unavailable" {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Error().Err(err).Str("operation", op).Msg("registration operation failed")
	}
	e.recorder.Outcome(op, result)
}

// Result names the outcome class of an engine error for metrics and traces.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, ErrEventExpired):
		return "expired"
	case errors.Is(err, ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, ErrEventFull):
		return "full"
	case errors.Is(err, storage.ErrConflict):
		return "conflict"
	case errors.Is(err, storage.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
