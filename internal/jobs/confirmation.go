package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eventify-org/server/internal/domain/registrations"
	"github.com/eventify-org/server/internal/email"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog"
)

type ConfirmationArgs struct {
	RegistrationID string `json:"registration_id"`
}

func (ConfirmationArgs) Kind() string { return JobKindRegistrationConfirmation }

// RegistrationLoader returns a registration with its event and user
// summaries filled in.
type RegistrationLoader interface {
	GetDetails(ctx context.Context, registrationID string) (*registrations.Registration, error)
}

type Mailer interface {
	SendRegistrationConfirmation(ctx context.Context, c email.Confirmation) error
}

// ConfirmationWorker mails the ticket of a freshly committed registration.
// Registrations cancelled or deleted before the job runs get no mail.
type ConfirmationWorker struct {
	river.WorkerDefaults[ConfirmationArgs]
	Registrations RegistrationLoader
	Mailer        Mailer
	BaseURL       string
	Logger        zerolog.Logger
}

func (w *ConfirmationWorker) Timeout(*river.Job[ConfirmationArgs]) time.Duration {
	return 30 * time.Second
}

func (w *ConfirmationWorker) Work(ctx context.Context, job *river.Job[ConfirmationArgs]) error {
	if job == nil {
		return fmt.Errorf("confirmation job missing")
	}
	if w.Registrations == nil || w.Mailer == nil {
		return fmt.Errorf("confirmation worker not configured")
	}
	id := job.Args.RegistrationID
	if id == "" {
		return river.JobCancel(fmt.Errorf("confirmation job %d has no registration id", job.ID))
	}

	reg, err := w.Registrations.GetDetails(ctx, id)
	if errors.Is(err, registrations.ErrRegistrationNotFound) {
		w.Logger.Info().Str("registration_id", id).Msg("registration gone, skipping confirmation")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load registration: %w", err)
	}
	if !reg.Status.Active() {
		w.Logger.Info().Str("registration_id", id).Msg("registration cancelled, skipping confirmation")
		return nil
	}

	confirmation := email.Confirmation{
		To:           reg.User.Email,
		AttendeeName: reg.User.Name,
		EventTitle:   reg.Event.Title,
		EventDate:    reg.Event.Date.Format(time.DateOnly),
		EventTime:    reg.Event.Time,
		Location:     reg.Event.Location,
		TicketNumber: reg.TicketNumber,
	}
	if w.BaseURL != "" {
		confirmation.EventURL = strings.TrimRight(w.BaseURL, "/") + "/events/" + reg.Event.ID
	}
	if err := w.Mailer.SendRegistrationConfirmation(ctx, confirmation); err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	return nil
}

// Inserter is the transactional insert half of a River client.
type Inserter interface {
	InsertTx(ctx context.Context, tx pgx.Tx, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// ConfirmationQueue inserts confirmation jobs on the registration's own
// transaction.
type ConfirmationQueue struct {
	client Inserter
	policy *RetryPolicy
}

func NewConfirmationQueue(client Inserter, policy *RetryPolicy) *ConfirmationQueue {
	if policy == nil {
		policy = NewRetryPolicy(0)
	}
	return &ConfirmationQueue{client: client, policy: policy}
}

func (q *ConfirmationQueue) EnqueueConfirmation(ctx context.Context, tx pgx.Tx, registrationID string) error {
	_, err := q.client.InsertTx(ctx, tx, ConfirmationArgs{RegistrationID: registrationID},
		q.policy.InsertOpts(JobKindRegistrationConfirmation))
	if err != nil {
		return fmt.Errorf("insert confirmation job: %w", err)
	}
	return nil
}
