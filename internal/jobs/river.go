// Package jobs runs the background work of the server on River: the
// registration confirmation mail and the periodic seat reconciliation.
package jobs

import (
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"
)

const (
	JobKindRegistrationConfirmation = "registration_confirmation"
	JobKindReconcileSeats           = "reconcile_seats"
)

const (
	ConfirmationMaxAttempts = 5
	ReconcileMaxAttempts    = 1
)

// QueueMail keeps outbound mail off the default queue so a slow provider
// cannot starve reconciliation.
const QueueMail = "mail"

// RetryConfig controls per-kind retry behavior.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// RetryPolicy implements River's ClientRetryPolicy with per-kind exponential backoff.
type RetryPolicy struct {
	Default RetryConfig
	ByKind  map[string]RetryConfig
}

// NewRetryPolicy returns the retry policy; confirmationAttempts <= 0 keeps
// the default.
func NewRetryPolicy(confirmationAttempts int) *RetryPolicy {
	if confirmationAttempts <= 0 {
		confirmationAttempts = ConfirmationMaxAttempts
	}
	return &RetryPolicy{
		Default: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   30 * time.Second,
			MaxDelay:    30 * time.Minute,
		},
		ByKind: map[string]RetryConfig{
			JobKindRegistrationConfirmation: {
				MaxAttempts: confirmationAttempts,
				BaseDelay:   30 * time.Second,
				MaxDelay:    1 * time.Hour,
			},
			// The next periodic run is the retry.
			JobKindReconcileSeats: {
				MaxAttempts: ReconcileMaxAttempts,
			},
		},
	}
}

// NextRetry determines the next retry time for a failed job.
func (p *RetryPolicy) NextRetry(job *rivertype.JobRow) time.Time {
	config := p.configFor(job.Kind)
	if config.BaseDelay == 0 {
		return time.Now()
	}

	attempt := max(job.Attempt, 1)
	delay := time.Duration(float64(config.BaseDelay) * math.Pow(2, float64(attempt-1)))
	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}

	if job.AttemptedAt != nil {
		return job.AttemptedAt.Add(delay)
	}
	return time.Now().Add(delay)
}

// InsertOpts returns the insert options for a job kind.
func (p *RetryPolicy) InsertOpts(kind string) *river.InsertOpts {
	opts := &river.InsertOpts{MaxAttempts: p.configFor(kind).MaxAttempts}
	if kind == JobKindRegistrationConfirmation {
		opts.Queue = QueueMail
	}
	return opts
}

func (p *RetryPolicy) configFor(kind string) RetryConfig {
	if p == nil {
		return RetryConfig{MaxAttempts: 3, BaseDelay: 30 * time.Second, MaxDelay: 30 * time.Minute}
	}
	if config, ok := p.ByKind[kind]; ok {
		return config
	}
	return p.Default
}

// ClientOptions are the knobs of NewClient. A nil Workers builds an
// insert-only client.
type ClientOptions struct {
	Workers      *river.Workers
	Logger       *slog.Logger
	Hooks        []rivertype.Hook
	PeriodicJobs []*river.PeriodicJob
	MaxWorkers   int
	Policy       *RetryPolicy
	// OnExhausted is told about jobs that failed their final attempt.
	OnExhausted  AlertFunc
}

// NewClientConfig builds a River client configuration with retry policy.
func NewClientConfig(opts ClientOptions) *river.Config {
	policy := opts.Policy
	if policy == nil {
		policy = NewRetryPolicy(0)
	}
	config := &river.Config{
		RetryPolicy: policy,
		MaxAttempts: policy.Default.MaxAttempts,
		Hooks:       opts.Hooks,
	}
	if opts.Workers != nil {
		maxWorkers := opts.MaxWorkers
		if maxWorkers <= 0 {
			maxWorkers = 10
		}
		config.Workers = opts.Workers
		config.PeriodicJobs = opts.PeriodicJobs
		config.Queues = map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: maxWorkers},
			QueueMail:          {MaxWorkers: max(maxWorkers/2, 1)},
		}
	}
	if opts.Logger != nil {
		config.Logger = opts.Logger
		config.ErrorHandler = NewAlertingErrorHandler(opts.Logger, opts.OnExhausted)
	}
	return config
}

// NewClient creates a River client using pgx v5.
func NewClient(pool *pgxpool.Pool, opts ClientOptions) (*river.Client[pgx.Tx], error) {
	return river.NewClient(riverpgxv5.New(pool), NewClientConfig(opts))
}

// NewPeriodicJobs schedules seat reconciliation every interval. A zero
// interval disables it.
func NewPeriodicJobs(reconcileInterval time.Duration, fix bool) []*river.PeriodicJob {
	if reconcileInterval <= 0 {
		return nil
	}
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(reconcileInterval),
			func() (river.JobArgs, *river.InsertOpts) {
				return ReconcileSeatsArgs{Fix: fix}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: false},
		),
	}
}
