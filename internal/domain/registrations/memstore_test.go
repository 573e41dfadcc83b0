package registrations

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"
)

// memStore is an in-memory Repository. WithTx holds one mutex for the whole
// transaction and restores a snapshot when fn fails, which gives the engine
// the same all-or-nothing view the database does.
type memStore struct {
	mu sync.Mutex

	events map[string]*EventSeats
	users  map[string]*memUser
	regs   []Registration
	queued []string

	// failOn makes the named Tx method return errInjected.
	failOn string
}

type memUser struct {
	ID         string
	Registered []string
	Created    []string
}

var errInjected = errors.New("injected failure")

func newMemStore() *memStore {
	return &memStore{events: map[string]*EventSeats{}, users: map[string]*memUser{}}
}

func (s *memStore) addUser(id string) {
	s.users[id] = &memUser{ID: id}
}

func (s *memStore) addEvent(id, organizerID string, date time.Time, capacity int) {
	s.events[id] = &EventSeats{ID: id, OrganizerID: organizerID, Date: date, Capacity: capacity, AttendeeIDs: []string{}}
	if u, ok := s.users[organizerID]; ok {
		u.Created = append(u.Created, id)
	}
}

func (s *memStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.clone()
	if err := fn(ctx, &memTx{s: s}); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

func (s *memStore) clone() *memStore {
	c := &memStore{events: map[string]*EventSeats{}, users: map[string]*memUser{}}
	for id, e := range s.events {
		copied := *e
		copied.AttendeeIDs = slices.Clone(e.AttendeeIDs)
		c.events[id] = &copied
	}
	for id, u := range s.users {
		c.users[id] = &memUser{ID: u.ID, Registered: slices.Clone(u.Registered), Created: slices.Clone(u.Created)}
	}
	c.regs = slices.Clone(s.regs)
	c.queued = slices.Clone(s.queued)
	return c
}

func (s *memStore) restore(c *memStore) {
	s.events, s.users, s.regs, s.queued = c.events, c.users, c.regs, c.queued
}

func (s *memStore) GetEventSeats(_ context.Context, eventID string) (*EventSeats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return nil, ErrEventNotFound
	}
	copied := *e
	return &copied, nil
}

func (s *memStore) ListByUser(_ context.Context, userID string, opts ListOptions) ([]Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(func(r Registration) bool { return r.UserID == userID }, opts), nil
}

func (s *memStore) ListByEvent(_ context.Context, eventID string, opts ListOptions) ([]Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(func(r Registration) bool { return r.EventID == eventID }, opts), nil
}

func (s *memStore) list(match func(Registration) bool, opts ListOptions) []Registration {
	var out []Registration
	for i := len(s.regs) - 1; i >= 0; i-- {
		r := s.regs[i]
		if match(r) && (opts.IncludeCancelled || r.Status.Active()) {
			out = append(out, r)
		}
	}
	return out
}

func (s *memStore) EventIDs(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for id := range s.events {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (s *memStore) activeCount(eventID string) int {
	n := 0
	for _, r := range s.regs {
		if r.EventID == eventID && r.Status.Active() {
			n++
		}
	}
	return n
}

type memTx struct {
	s *memStore
}

func (t *memTx) fail(op string) error {
	if t.s.failOn == op {
		return errInjected
	}
	return nil
}

func (t *memTx) LockEvent(_ context.Context, eventID string) (*EventSeats, error) {
	if err := t.fail("LockEvent"); err != nil {
		return nil, err
	}
	e, ok := t.s.events[eventID]
	if !ok {
		return nil, ErrEventNotFound
	}
	copied := *e
	copied.AttendeeIDs = slices.Clone(e.AttendeeIDs)
	return &copied, nil
}

func (t *memTx) LockEvents(ctx context.Context, eventIDs []string) ([]EventSeats, error) {
	sorted := slices.Clone(eventIDs)
	slices.Sort(sorted)
	var out []EventSeats
	for _, id := range slices.Compact(sorted) {
		seats, err := t.LockEvent(ctx, id)
		if errors.Is(err, ErrEventNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *seats)
	}
	return out, nil
}

func (t *memTx) LockUser(_ context.Context, userID string) error {
	if _, ok := t.s.users[userID]; !ok {
		return ErrUserNotFound
	}
	return nil
}

func (t *memTx) FindActive(_ context.Context, userID, eventID string) (*Registration, error) {
	for _, r := range t.s.regs {
		if r.UserID == userID && r.EventID == eventID && r.Status.Active() {
			copied := r
			return &copied, nil
		}
	}
	return nil, nil
}

func (t *memTx) FindActiveByTicket(_ context.Context, eventID, ticket string) (*Registration, error) {
	for _, r := range t.s.regs {
		if r.EventID == eventID && r.TicketNumber == ticket && r.Status.Active() {
			copied := r
			return &copied, nil
		}
	}
	return nil, nil
}

func (t *memTx) Insert(_ context.Context, reg Registration) error {
	if err := t.fail("Insert"); err != nil {
		return err
	}
	if _, ok := t.s.users[reg.UserID]; !ok {
		return ErrUserNotFound
	}
	for _, r := range t.s.regs {
		if r.TicketNumber == reg.TicketNumber {
			return ErrDuplicateTicket
		}
		if r.UserID == reg.UserID && r.EventID == reg.EventID && r.Status.Active() {
			return ErrAlreadyRegistered
		}
	}
	t.s.regs = append(t.s.regs, reg)
	return nil
}

func (t *memTx) update(id string, fn func(*Registration)) {
	for i := range t.s.regs {
		if t.s.regs[i].ID == id {
			fn(&t.s.regs[i])
		}
	}
}

func (t *memTx) Cancel(_ context.Context, registrationID string, at time.Time) error {
	t.update(registrationID, func(r *Registration) {
		r.Status = StatusCancelled
		r.CancelledAt = &at
		r.UpdatedAt = at
	})
	return nil
}

func (t *memTx) MarkAttended(_ context.Context, registrationID string, at time.Time) error {
	t.update(registrationID, func(r *Registration) {
		r.Status = StatusAttended
		r.UpdatedAt = at
	})
	return nil
}

func (t *memTx) ClaimSeat(_ context.Context, eventID, userID string) (bool, error) {
	if err := t.fail("ClaimSeat"); err != nil {
		return false, err
	}
	e := t.s.events[eventID]
	if e.RegisteredCount >= e.Capacity {
		return false, nil
	}
	e.RegisteredCount++
	e.AttendeeIDs = append(e.AttendeeIDs, userID)
	return true, nil
}

func (t *memTx) ReleaseSeat(_ context.Context, eventID, userID string) error {
	e := t.s.events[eventID]
	e.RegisteredCount = max(e.RegisteredCount-1, 0)
	e.AttendeeIDs = slices.DeleteFunc(e.AttendeeIDs, func(id string) bool { return id == userID })
	return nil
}

func (t *memTx) SetSeats(_ context.Context, eventID string, count int, attendeeIDs []string) error {
	e := t.s.events[eventID]
	e.RegisteredCount = count
	e.AttendeeIDs = attendeeIDs
	return nil
}

func (t *memTx) ActiveAttendees(_ context.Context, eventID string) ([]string, error) {
	var out []string
	for _, r := range t.s.regs {
		if r.EventID == eventID && r.Status.Active() {
			out = append(out, r.UserID)
		}
	}
	return out, nil
}

func (t *memTx) LinkUser(_ context.Context, userID, eventID string) error {
	if err := t.fail("LinkUser"); err != nil {
		return err
	}
	u := t.s.users[userID]
	if !slices.Contains(u.Registered, eventID) {
		u.Registered = append(u.Registered, eventID)
	}
	return nil
}

func (t *memTx) UnlinkUser(_ context.Context, userID, eventID string) error {
	if u, ok := t.s.users[userID]; ok {
		u.Registered = slices.DeleteFunc(u.Registered, func(id string) bool { return id == eventID })
	}
	return nil
}

func (t *memTx) ActiveEventIDsForUser(_ context.Context, userID string) ([]string, error) {
	var out []string
	for _, r := range t.s.regs {
		if r.UserID == userID && r.Status.Active() {
			out = append(out, r.EventID)
		}
	}
	return out, nil
}

func (t *memTx) EventsOrganizedBy(_ context.Context, userID string) ([]string, error) {
	var out []string
	for id, e := range t.s.events {
		if e.OrganizerID == userID {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (t *memTx) DeleteForEvent(_ context.Context, eventID string) ([]string, error) {
	if err := t.fail("DeleteForEvent"); err != nil {
		return nil, err
	}
	var affected []string
	t.s.regs = slices.DeleteFunc(t.s.regs, func(r Registration) bool {
		if r.EventID == eventID {
			affected = append(affected, r.UserID)
			return true
		}
		return false
	})
	slices.Sort(affected)
	return slices.Compact(affected), nil
}

func (t *memTx) PruneUsersRegistered(ctx context.Context, userIDs []string, eventID string) error {
	for _, id := range userIDs {
		if err := t.UnlinkUser(ctx, id, eventID); err != nil {
			return err
		}
	}
	return nil
}

func (t *memTx) UnlinkOrganizer(_ context.Context, organizerID, eventID string) error {
	if u, ok := t.s.users[organizerID]; ok {
		u.Created = slices.DeleteFunc(u.Created, func(id string) bool { return id == eventID })
	}
	return nil
}

func (t *memTx) DeleteEvent(_ context.Context, eventID string) error {
	if err := t.fail("DeleteEvent"); err != nil {
		return err
	}
	delete(t.s.events, eventID)
	return nil
}

func (t *memTx) DeleteForUser(_ context.Context, userID string) error {
	t.s.regs = slices.DeleteFunc(t.s.regs, func(r Registration) bool { return r.UserID == userID })
	return nil
}

func (t *memTx) DeleteUser(_ context.Context, userID string) error {
	if err := t.fail("DeleteUser"); err != nil {
		return err
	}
	delete(t.s.users, userID)
	return nil
}

func (t *memTx) QueueConfirmation(_ context.Context, registrationID string) error {
	if err := t.fail("QueueConfirmation"); err != nil {
		return err
	}
	t.s.queued = append(t.s.queued, registrationID)
	return nil
}
