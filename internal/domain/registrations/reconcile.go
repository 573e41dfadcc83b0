package registrations

import (
	"context"
	"errors"
	"slices"

	"github.com/eventify-org/server/internal/domain/ids"
)

// Drift describes how an event's stored seat bookkeeping differs from its
// active registration rows.
type Drift struct {
	EventID     string
	StoredCount int
	ActualCount int
	Missing     []string // active registrants absent from the attendee list
	Extra       []string // attendee list entries without an active registration
	Fixed       bool
}

func (d Drift) HasDrift() bool {
	return d.StoredCount != d.ActualCount || len(d.Missing) > 0 || len(d.Extra) > 0
}

// Reconcile compares one event's counter and attendee list with its active
// registrations, rewriting both when fix is set.
func (e *Engine) Reconcile(ctx context.Context, eventID string, fix bool) (Drift, error) {
	eventID = ids.Normalize(eventID)
	ctx, span := e.start(ctx, "Reconcile", eventID, "")
	defer span.End()

	var drift Drift
	err := e.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		seats, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return err
		}
		active, err := tx.ActiveAttendees(ctx, eventID)
		if err != nil {
			return err
		}
		drift = compare(*seats, active)
		if !drift.HasDrift() || !fix {
			return nil
		}
		if err := tx.SetSeats(ctx, eventID, len(active), sortedCopy(active)); err != nil {
			return err
		}
		drift.Fixed = true
		return nil
	})
	if err != nil {
		e.fail(span, "reconcile", err)
		return Drift{}, err
	}

	if drift.HasDrift() {
		e.recorder.DriftDetected(eventID)
		e.logger.Warn().
			Str("event_id", eventID).
			Int("stored_count", drift.StoredCount).
			Int("actual_count", drift.ActualCount).
			Int("missing", len(drift.Missing)).
			Int("extra", len(drift.Extra)).
			Bool("fixed", drift.Fixed).
			Msg("seat bookkeeping drift")
	}
	return drift, nil
}

// ReconcileAll walks every event and returns the ones that drifted. Events
// deleted while the walk runs are skipped.
func (e *Engine) ReconcileAll(ctx context.Context, fix bool) ([]Drift, error) {
	eventIDs, err := e.repo.EventIDs(ctx)
	if err != nil {
		return nil, err
	}
	var drifted []Drift
	for _, id := range eventIDs {
		if err := ctx.Err(); err != nil {
			return drifted, err
		}
		drift, err := e.Reconcile(ctx, id, fix)
		if err != nil {
			if errors.Is(err, ErrEventNotFound) {
				continue
			}
			return drifted, err
		}
		if drift.HasDrift() {
			drifted = append(drifted, drift)
		}
	}
	e.logger.Info().
		Int("events", len(eventIDs)).
		Int("drifted", len(drifted)).
		Bool("fix", fix).
		Msg("reconcile finished")
	return drifted, nil
}

func compare(seats EventSeats, active []string) Drift {
	stored := make(map[string]struct{}, len(seats.AttendeeIDs))
	for _, id := range seats.AttendeeIDs {
		stored[id] = struct{}{}
	}
	actual := make(map[string]struct{}, len(active))
	for _, id := range active {
		actual[id] = struct{}{}
	}

	drift := Drift{
		EventID:     seats.ID,
		StoredCount: seats.RegisteredCount,
		ActualCount: len(active),
	}
	for id := range actual {
		if _, ok := stored[id]; !ok {
			drift.Missing = append(drift.Missing, id)
		}
	}
	for id := range stored {
		if _, ok := actual[id]; !ok {
			drift.Extra = append(drift.Extra, id)
		}
	}
	// Duplicated attendee entries also count as drift.
	if len(seats.AttendeeIDs) != len(stored) {
		drift.Extra = append(drift.Extra, duplicates(seats.AttendeeIDs)...)
	}
	slices.Sort(drift.Missing)
	slices.Sort(drift.Extra)
	return drift
}

func duplicates(values []string) []string {
	seen := make(map[string]int, len(values))
	var out []string
	for _, v := range values {
		seen[v]++
		if seen[v] == 2 {
			out = append(out, v)
		}
	}
	return out
}

func sortedCopy(values []string) []string {
	out := slices.Clone(values)
	slices.Sort(out)
	return out
}
