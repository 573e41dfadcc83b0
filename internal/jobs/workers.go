package jobs

import (
	"github.com/riverqueue/river"
	"github.com/rs/zerolog"
)

// Dependencies wires the workers to the rest of the server.
type Dependencies struct {
	Registrations RegistrationLoader
	Mailer        Mailer
	Reconciler    Reconciler
	BaseURL       string
	Logger        zerolog.Logger
}

func NewWorkers(deps Dependencies) *river.Workers {
	logger := deps.Logger.With().Str("component", "jobs").Logger()
	workers := river.NewWorkers()
	river.AddWorker(workers, &ConfirmationWorker{
		Registrations: deps.Registrations,
		Mailer:        deps.Mailer,
		BaseURL:       deps.BaseURL,
		Logger:        logger,
	})
	river.AddWorker(workers, &ReconcileSeatsWorker{
		Reconciler: deps.Reconciler,
		Logger:     logger,
	})
	return workers
}
