package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/eventify-org/server/internal/storage"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeAdminShutdown        = "57P01"
	codeCannotConnectNow     = "57P03"
)

// Constraint names referenced by error translation. They must match the
// migrations.
const (
	constraintUsersEmail          = "users_email_key"
	constraintActivePair          = "registrations_active_pair_key"
	constraintTicketNumber        = "registrations_ticket_number_key"
	constraintWithinCapacity      = "events_registered_within_capacity"
	constraintRegistrationUser    = "registrations_user_id_fkey"
	constraintEventsOrganizerUser = "events_organizer_id_fkey"
)

func pgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

func isConstraint(err error, code, constraint string) bool {
	pgErr, ok := pgError(err)
	return ok && pgErr.Code == code && pgErr.ConstraintName == constraint
}

// classify tags transient failures with the backend-neutral storage errors
// and leaves everything else untouched.
func classify(err error) error {
	if err == nil || storage.IsTransient(err) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if pgErr, ok := pgError(err); ok {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
			return fmt.Errorf("%w: %w", storage.ErrConflict, err)
		case codeAdminShutdown, codeCannotConnectNow:
			return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
		}
		return err
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	}
	return err
}
