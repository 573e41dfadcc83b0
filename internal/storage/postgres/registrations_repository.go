package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/eventify-org/server/internal/domain/registrations"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConfirmationQueue schedules a confirmation notice on the caller's
// transaction so the job only exists if the registration commits.
type ConfirmationQueue interface {
	EnqueueConfirmation(ctx context.Context, tx pgx.Tx, registrationID string) error
}

// RegistrationStore backs the registration engine.
type RegistrationStore struct {
	pool  *pgxpool.Pool
	queue ConfirmationQueue
}

var (
	_ registrations.Repository = (*RegistrationStore)(nil)
	_ registrations.Tx         = (*registrationTx)(nil)
)

// NewRegistrationStore returns a store; queue may be nil when background
// jobs are disabled.
func NewRegistrationStore(pool *pgxpool.Pool, queue ConfirmationQueue) *RegistrationStore {
	return &RegistrationStore{pool: pool, queue: queue}
}

func (s *RegistrationStore) WithTx(ctx context.Context, fn func(context.Context, registrations.Tx) error) error {
	return withTx(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, &registrationTx{tx: tx, queue: s.queue})
	})
}

func (s *RegistrationStore) GetEventSeats(ctx context.Context, eventID string) (*registrations.EventSeats, error) {
	return eventSeats(ctx, s.pool, eventID, false)
}

const registrationColumns = `r.id, r.user_id, r.event_id, r.status, r.ticket_number, r.created_at, r.updated_at, r.cancelled_at`

func (s *RegistrationStore) ListByUser(ctx context.Context, userID string, opts registrations.ListOptions) ([]registrations.Registration, error) {
	rows, err := s.pool.Query(ctx, `
SELECT `+registrationColumns+`,
       e.id, e.title, e.description, e.event_date, e.event_time, e.location, e.image_url,
       e.capacity, e.registered_count
  FROM registrations r
  JOIN events e ON e.id = r.event_id
 WHERE r.user_id = $1
   AND ($2::boolean OR r.status <> 'cancelled')
 ORDER BY r.created_at DESC, r.id DESC`, userID, opts.IncludeCancelled)
	if err != nil {
		return nil, classify(fmt.Errorf("list registrations by user: %w", err))
	}
	defer rows.Close()

	out := []registrations.Registration{}
	for rows.Next() {
		var (
			reg   registrations.Registration
			event registrations.EventSummary
		)
		dest := append(registrationDest(&reg),
			&event.ID, &event.Title, &event.Description, &event.Date, &event.Time, &event.Location, &event.ImageURL,
			&event.Capacity, &event.RegisteredCount)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		reg.Event = &event
		out = append(out, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("list registrations by user: %w", err))
	}
	return out, nil
}

func (s *RegistrationStore) ListByEvent(ctx context.Context, eventID string, opts registrations.ListOptions) ([]registrations.Registration, error) {
	rows, err := s.pool.Query(ctx, `
SELECT `+registrationColumns+`,
       u.id, u.name, u.email, u.phone, u.profile_picture
  FROM registrations r
  JOIN users u ON u.id = r.user_id
 WHERE r.event_id = $1
   AND ($2::boolean OR r.status <> 'cancelled')
 ORDER BY r.created_at DESC, r.id DESC`, eventID, opts.IncludeCancelled)
	if err != nil {
		return nil, classify(fmt.Errorf("list registrations by event: %w", err))
	}
	defer rows.Close()

	out := []registrations.Registration{}
	for rows.Next() {
		var (
			reg  registrations.Registration
			user registrations.UserSummary
		)
		dest := append(registrationDest(&reg), &user.ID, &user.Name, &user.Email, &user.Phone, &user.ProfilePicture)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		reg.User = &user
		out = append(out, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("list registrations by event: %w", err))
	}
	return out, nil
}

// GetDetails loads one registration with both its event and user
// summaries. ErrRegistrationNotFound when the row is gone.
func (s *RegistrationStore) GetDetails(ctx context.Context, registrationID string) (*registrations.Registration, error) {
	var (
		reg   registrations.Registration
		event registrations.EventSummary
		user  registrations.UserSummary
	)
	dest := append(registrationDest(&reg),
		&event.ID, &event.Title, &event.Description, &event.Date, &event.Time, &event.Location, &event.ImageURL,
		&event.Capacity, &event.RegisteredCount,
		&user.ID, &user.Name, &user.Email, &user.Phone, &user.ProfilePicture)
	err := s.pool.QueryRow(ctx, `
SELECT `+registrationColumns+`,
       e.id, e.title, e.description, e.event_date, e.event_time, e.location, e.image_url,
       e.capacity, e.registered_count,
       u.id, u.name, u.email, u.phone, u.profile_picture
  FROM registrations r
  JOIN events e ON e.id = r.event_id
  JOIN users u ON u.id = r.user_id
 WHERE r.id = $1`, registrationID).Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, registrations.ErrRegistrationNotFound
	}
	if err != nil {
		return nil, classify(fmt.Errorf("get registration: %w", err))
	}
	reg.Event = &event
	reg.User = &user
	return &reg, nil
}

func (s *RegistrationStore) EventIDs(ctx context.Context) ([]string, error) {
	return collectIDs(ctx, s.pool, `SELECT id FROM events ORDER BY id`)
}

type registrationTx struct {
	tx    pgx.Tx
	queue ConfirmationQueue
}

func (t *registrationTx) LockEvent(ctx context.Context, eventID string) (*registrations.EventSeats, error) {
	return eventSeats(ctx, t.tx, eventID, true)
}

// LockEvents relies on the sort running below the row-lock step so rows are
// locked in id order.
func (t *registrationTx) LockEvents(ctx context.Context, eventIDs []string) ([]registrations.EventSeats, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}
	rows, err := t.tx.Query(ctx, `
SELECT id, organizer_id, event_date, capacity, registered_count, attendee_ids
  FROM events
 WHERE id = ANY($1)
 ORDER BY id
   FOR UPDATE`, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("lock events: %w", err)
	}
	defer rows.Close()

	var out []registrations.EventSeats
	for rows.Next() {
		var seats registrations.EventSeats
		if err := rows.Scan(&seats.ID, &seats.OrganizerID, &seats.Date, &seats.Capacity,
			&seats.RegisteredCount, &seats.AttendeeIDs); err != nil {
			return nil, fmt.Errorf("scan event seats: %w", err)
		}
		out = append(out, seats)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lock events: %w", err)
	}
	return out, nil
}

func (t *registrationTx) LockUser(ctx context.Context, userID string) error {
	var id string
	err := t.tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return registrations.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("lock user: %w", err)
	}
	return nil
}

func (t *registrationTx) FindActive(ctx context.Context, userID, eventID string) (*registrations.Registration, error) {
	return t.findOne(ctx, `
SELECT `+registrationColumns+` FROM registrations r
 WHERE r.user_id = $1 AND r.event_id = $2 AND r.status <> 'cancelled'`, userID, eventID)
}

func (t *registrationTx) FindActiveByTicket(ctx context.Context, eventID, ticket string) (*registrations.Registration, error) {
	return t.findOne(ctx, `
SELECT `+registrationColumns+` FROM registrations r
 WHERE r.event_id = $1 AND r.ticket_number = $2 AND r.status <> 'cancelled'`, eventID, ticket)
}

func (t *registrationTx) findOne(ctx context.Context, query string, args ...any) (*registrations.Registration, error) {
	var reg registrations.Registration
	err := t.tx.QueryRow(ctx, query, args...).Scan(registrationDest(&reg)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return &reg, nil
}

// Insert runs inside a savepoint so a constraint violation does not abort
// the surrounding transaction.
func (t *registrationTx) Insert(ctx context.Context, reg registrations.Registration) error {
	savepoint, err := t.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}
	_, err = savepoint.Exec(ctx, `
INSERT INTO registrations (id, user_id, event_id, status, ticket_number, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		reg.ID, reg.UserID, reg.EventID, string(reg.Status), reg.TicketNumber, reg.CreatedAt, reg.UpdatedAt,
	)
	if err != nil {
		_ = savepoint.Rollback(ctx)
		switch {
		case isConstraint(err, codeUniqueViolation, constraintActivePair):
			return registrations.ErrAlreadyRegistered
		case isConstraint(err, codeUniqueViolation, constraintTicketNumber):
			return registrations.ErrDuplicateTicket
		case isConstraint(err, codeForeignKeyViolation, constraintRegistrationUser):
			return registrations.ErrUserNotFound
		case isConstraint(err, codeForeignKeyViolation, "registrations_event_id_fkey"):
			return registrations.ErrEventNotFound
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	if err := savepoint.Commit(ctx); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

func (t *registrationTx) Cancel(ctx context.Context, registrationID string, at time.Time) error {
	return t.setStatus(ctx, `
UPDATE registrations
   SET status = 'cancelled', cancelled_at = $2, updated_at = $2
 WHERE id = $1 AND status <> 'cancelled'`, registrationID, at)
}

func (t *registrationTx) MarkAttended(ctx context.Context, registrationID string, at time.Time) error {
	return t.setStatus(ctx, `
UPDATE registrations
   SET status = 'attended', updated_at = $2
 WHERE id = $1 AND status <> 'cancelled'`, registrationID, at)
}

func (t *registrationTx) setStatus(ctx context.Context, query string, id string, at time.Time) error {
	tag, err := t.tx.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("update registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return registrations.ErrRegistrationNotFound
	}
	return nil
}

func (t *registrationTx) ClaimSeat(ctx context.Context, eventID, userID string) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
UPDATE events
   SET registered_count = registered_count + 1,
       attendee_ids = CASE WHEN $2 = ANY (attendee_ids) THEN attendee_ids
                           ELSE array_append(attendee_ids, $2) END,
       updated_at = now()
 WHERE id = $1 AND registered_count < capacity`, eventID, userID)
	if err != nil {
		return false, fmt.Errorf("claim seat: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *registrationTx) ReleaseSeat(ctx context.Context, eventID, userID string) error {
	_, err := t.tx.Exec(ctx, `
UPDATE events
   SET registered_count = GREATEST(registered_count - 1, 0),
       attendee_ids = array_remove(attendee_ids, $2),
       updated_at = now()
 WHERE id = $1`, eventID, userID)
	if err != nil {
		return fmt.Errorf("release seat: %w", err)
	}
	return nil
}

func (t *registrationTx) SetSeats(ctx context.Context, eventID string, count int, attendeeIDs []string) error {
	_, err := t.tx.Exec(ctx, `
UPDATE events SET registered_count = $2, attendee_ids = $3, updated_at = now() WHERE id = $1`,
		eventID, count, nonNil(attendeeIDs))
	if err != nil {
		return fmt.Errorf("set seats: %w", err)
	}
	return nil
}

func (t *registrationTx) ActiveAttendees(ctx context.Context, eventID string) ([]string, error) {
	return collectIDs(ctx, t.tx, `
SELECT user_id FROM registrations
 WHERE event_id = $1 AND status <> 'cancelled'
 ORDER BY created_at, id`, eventID)
}

func (t *registrationTx) LinkUser(ctx context.Context, userID, eventID string) error {
	_, err := t.tx.Exec(ctx, `
UPDATE users
   SET events_registered = array_append(events_registered, $2), updated_at = now()
 WHERE id = $1 AND NOT ($2 = ANY (events_registered))`, userID, eventID)
	if err != nil {
		return fmt.Errorf("link user: %w", err)
	}
	return nil
}

func (t *registrationTx) UnlinkUser(ctx context.Context, userID, eventID string) error {
	_, err := t.tx.Exec(ctx, `
UPDATE users
   SET events_registered = array_remove(events_registered, $2), updated_at = now()
 WHERE id = $1`, userID, eventID)
	if err != nil {
		return fmt.Errorf("unlink user: %w", err)
	}
	return nil
}

func (t *registrationTx) ActiveEventIDsForUser(ctx context.Context, userID string) ([]string, error) {
	return collectIDs(ctx, t.tx, `
SELECT DISTINCT event_id FROM registrations
 WHERE user_id = $1 AND status <> 'cancelled'
 ORDER BY event_id`, userID)
}

func (t *registrationTx) EventsOrganizedBy(ctx context.Context, userID string) ([]string, error) {
	return collectIDs(ctx, t.tx, `SELECT id FROM events WHERE organizer_id = $1 ORDER BY id`, userID)
}

func (t *registrationTx) DeleteForEvent(ctx context.Context, eventID string) ([]string, error) {
	affected, err := collectIDs(ctx, t.tx, `DELETE FROM registrations WHERE event_id = $1 RETURNING user_id`, eventID)
	if err != nil {
		return nil, err
	}
	slices.Sort(affected)
	return slices.Compact(affected), nil
}

// PruneUsersRegistered locks the users in id order before touching them so
// concurrent purges cannot deadlock on each other.
func (t *registrationTx) PruneUsersRegistered(ctx context.Context, userIDs []string, eventID string) error {
	if len(userIDs) == 0 {
		return nil
	}
	if _, err := collectIDs(ctx, t.tx, `SELECT id FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`, userIDs); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx, `
UPDATE users
   SET events_registered = array_remove(events_registered, $2), updated_at = now()
 WHERE id = ANY($1) AND $2 = ANY (events_registered)`, userIDs, eventID)
	if err != nil {
		return fmt.Errorf("prune registered events: %w", err)
	}
	return nil
}

func (t *registrationTx) UnlinkOrganizer(ctx context.Context, organizerID, eventID string) error {
	_, err := t.tx.Exec(ctx, `
UPDATE users
   SET events_created = array_remove(events_created, $2), updated_at = now()
 WHERE id = $1`, organizerID, eventID)
	if err != nil {
		return fmt.Errorf("unlink organizer: %w", err)
	}
	return nil
}

func (t *registrationTx) DeleteEvent(ctx context.Context, eventID string) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM events WHERE id = $1`, eventID); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

func (t *registrationTx) DeleteForUser(ctx context.Context, userID string) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM registrations WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete user registrations: %w", err)
	}
	return nil
}

func (t *registrationTx) DeleteUser(ctx context.Context, userID string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return registrations.ErrUserNotFound
	}
	return nil
}

func (t *registrationTx) QueueConfirmation(ctx context.Context, registrationID string) error {
	if t.queue == nil {
		return nil
	}
	return t.queue.EnqueueConfirmation(ctx, t.tx, registrationID)
}

func eventSeats(ctx context.Context, q queryer, eventID string, lock bool) (*registrations.EventSeats, error) {
	query := `
SELECT id, organizer_id, event_date, capacity, registered_count, attendee_ids
  FROM events
 WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	var seats registrations.EventSeats
	err := q.QueryRow(ctx, query, eventID).Scan(&seats.ID, &seats.OrganizerID, &seats.Date, &seats.Capacity,
		&seats.RegisteredCount, &seats.AttendeeIDs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, registrations.ErrEventNotFound
	}
	if err != nil {
		return nil, classify(fmt.Errorf("event seats: %w", err))
	}
	return &seats, nil
}

func registrationDest(reg *registrations.Registration) []any {
	return []any{&reg.ID, &reg.UserID, &reg.EventID, &reg.Status, &reg.TicketNumber,
		&reg.CreatedAt, &reg.UpdatedAt, &reg.CancelledAt}
}

func collectIDs(ctx context.Context, q queryer, query string, args ...any) ([]string, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(fmt.Errorf("query ids: %w", err))
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, classify(fmt.Errorf("collect ids: %w", err))
	}
	return ids, nil
}
