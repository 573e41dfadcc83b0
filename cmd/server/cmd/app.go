package cmd

import (
	"fmt"
	"time"

	"github.com/eventify-org/server/internal/auth"
	"github.com/eventify-org/server/internal/config"
	"github.com/eventify-org/server/internal/domain/calendar"
	"github.com/eventify-org/server/internal/domain/events"
	"github.com/eventify-org/server/internal/domain/registrations"
	"github.com/eventify-org/server/internal/domain/users"
	"github.com/eventify-org/server/internal/metrics"
	"github.com/eventify-org/server/internal/storage/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// services is the domain layer built on one pool. serve, reconcile and
// admin all start from here.
type services struct {
	store    *postgres.RegistrationStore
	engine   *registrations.Engine
	users    *users.Service
	events   *events.Service
	calendar calendar.Calendar
}

// newServices wires repositories into the domain services. queue may be nil,
// in which case registrations commit without a confirmation job.
func newServices(cfg config.Config, logger zerolog.Logger, pool *pgxpool.Pool, queue postgres.ConfirmationQueue) (*services, error) {
	loc, err := cfg.Registration.Location()
	if err != nil {
		return nil, err
	}
	cal := calendar.New(loc, time.Now)

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return nil, fmt.Errorf("create repository: %w", err)
	}

	store := postgres.NewRegistrationStore(pool, queue)
	engine := registrations.NewEngine(store, cal, logger, registrations.WithRecorder(metrics.RegistrationRecorder{}))

	return &services{
		store:    store,
		engine:   engine,
		users:    users.NewService(repo.Users(), engine, auth.NewPasswordHasher(cfg.Auth.BcryptCost), logger),
		events:   events.NewService(repo.Events(), engine, cal, logger),
		calendar: cal,
	}, nil
}
