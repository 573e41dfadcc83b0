package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/eventify-org/server/internal/domain/registrations"
	"github.com/riverqueue/river"
	"github.com/rs/zerolog"
)

type ReconcileSeatsArgs struct {
	Fix bool `json:"fix"`
}

func (ReconcileSeatsArgs) Kind() string { return JobKindReconcileSeats }

// InsertOpts keeps at most one pending reconcile run.
func (ReconcileSeatsArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		MaxAttempts: ReconcileMaxAttempts,
		UniqueOpts:  river.UniqueOpts{ByArgs: true, ByPeriod: time.Minute},
	}
}

type Reconciler interface {
	ReconcileAll(ctx context.Context, fix bool) ([]registrations.Drift, error)
}

// ReconcileSeatsWorker compares every event's seat bookkeeping with its
// active registrations.
type ReconcileSeatsWorker struct {
	river.WorkerDefaults[ReconcileSeatsArgs]
	Reconciler Reconciler
	Logger     zerolog.Logger
}

func (w *ReconcileSeatsWorker) Timeout(*river.Job[ReconcileSeatsArgs]) time.Duration {
	return 10 * time.Minute
}

func (w *ReconcileSeatsWorker) Work(ctx context.Context, job *river.Job[ReconcileSeatsArgs]) error {
	if job == nil {
		return fmt.Errorf("reconcile job missing")
	}
	if w.Reconciler == nil {
		return fmt.Errorf("reconcile worker not configured")
	}
	drifted, err := w.Reconciler.ReconcileAll(ctx, job.Args.Fix)
	if err != nil {
		return fmt.Errorf("reconcile seats: %w", err)
	}
	if len(drifted) > 0 {
		w.Logger.Warn().Int("drifted", len(drifted)).Bool("fix", job.Args.Fix).Msg("seat drift found")
	}
	return nil
}
