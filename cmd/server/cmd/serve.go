package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eventify-org/server/internal/api"
	"github.com/eventify-org/server/internal/api/handlers"
	"github.com/eventify-org/server/internal/api/middleware"
	"github.com/eventify-org/server/internal/auth"
	"github.com/eventify-org/server/internal/config"
	"github.com/eventify-org/server/internal/email"
	"github.com/eventify-org/server/internal/jobs"
	"github.com/eventify-org/server/internal/metrics"
	"github.com/eventify-org/server/internal/storage/postgres"
	"github.com/eventify-org/server/internal/telemetry"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type serveOptions struct {
	host    string
	port    int
	migrate bool
}

func newServeCommand(flags *globalFlags) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Eventify HTTP server",
		Long: `Start the Eventify HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables (or --config file if provided)
- Optionally apply database migrations (--migrate)
- Bootstrap an admin account if ADMIN_* env vars are set
- Start background workers for confirmation mail and seat reconciliation
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Apply migrations before serving
  server serve --migrate

  # Start with custom config file
  server serve --config /etc/eventify/config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if opts.host != "" {
				cfg.Server.Host = opts.host
			}
			if opts.port != 0 {
				cfg.Server.Port = opts.port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, *opts)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "server host address (default: 0.0.0.0)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "server port (default: 8080)")
	cmd.Flags().BoolVar(&opts.migrate, "migrate", false, "apply database and job queue migrations before serving")
	return cmd
}

func runServer(ctx context.Context, cfg config.Config, opts serveOptions) error {
	logger := config.NewLogger(cfg.Logging)
	logger.Info().
		Str("version", Version).
		Str("environment", cfg.Environment).
		Msg("starting eventify server")

	metrics.Init(Version, GitCommit, BuildDate)

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown error")
		}
	}()

	if opts.migrate {
		if err := postgres.MigrateUp(cfg.Database.URL); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	if opts.migrate {
		if err := postgres.MigrateRiver(ctx, pool); err != nil {
			return err
		}
		logger.Info().Msg("migrations applied")
	}

	riverLogger := config.NewSlogLogger(cfg.Logging)
	policy := jobs.NewRetryPolicy(cfg.Jobs.RetryConfirmation)
	hooks := []rivertype.Hook{metrics.NewRiverMetricsHook()}

	// The insert-only client enqueues confirmations on the registration
	// transaction; the worker client below processes them.
	var queue postgres.ConfirmationQueue
	if cfg.Jobs.Enabled {
		inserter, err := jobs.NewClient(pool, jobs.ClientOptions{Logger: riverLogger, Hooks: hooks, Policy: policy})
		if err != nil {
			return fmt.Errorf("create job inserter: %w", err)
		}
		queue = jobs.NewConfirmationQueue(inserter, policy)
	}

	svc, err := newServices(cfg, logger, pool, queue)
	if err != nil {
		return err
	}

	mailer, err := email.NewService(cfg.Email, logger)
	if err != nil {
		return fmt.Errorf("create mailer: %w", err)
	}

	var worker *river.Client[pgx.Tx]
	if cfg.Jobs.Enabled {
		worker, err = jobs.NewClient(pool, jobs.ClientOptions{
			Workers: jobs.NewWorkers(jobs.Dependencies{
				Registrations: svc.store,
				Mailer:        mailer,
				Reconciler:    svc.engine,
				BaseURL:       cfg.Server.BaseURL,
				Logger:        logger,
			}),
			Logger:       riverLogger,
			Hooks:        hooks,
			PeriodicJobs: jobs.NewPeriodicJobs(cfg.Jobs.ReconcileInterval, cfg.Jobs.ReconcileFix),
			OnExhausted:  metrics.RecordJobExhausted,
			MaxWorkers:   cfg.Jobs.MaxWorkers,
			Policy:       policy,
		})
		if err != nil {
			return fmt.Errorf("create job workers: %w", err)
		}
	} else {
		logger.Warn().Msg("background jobs disabled, confirmation mail will not be sent")
	}

	bootstrapCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := bootstrapAdmin(bootstrapCtx, cfg, svc, logger); err != nil {
		logger.Error().Err(err).Msg("admin bootstrap failed")
	}
	cancel()

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.Environment)
	defer limiter.Close()

	health := handlers.NewHealthChecker(Version, GitCommit,
		handlers.Check{Name: "database", Run: pool.Ping},
		handlers.Check{Name: "migrations", Run: func(ctx context.Context) error {
			return postgres.CheckSchema(ctx, pool)
		}},
	)

	server := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: api.NewRouter(api.Dependencies{
			Config:        cfg,
			Logger:        logger,
			Build:         api.BuildInfo{Version: Version, GitCommit: GitCommit, BuildDate: BuildDate},
			Tokens:        auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.JWTIssuer),
			Users:         svc.users,
			Events:        svc.events,
			Registrations: svc.engine,
			Health:        health,
			RateLimiter:   limiter,
		}),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// River gets its own context so shutdown can drain jobs through Stop.
	if worker != nil {
		if err := worker.Start(context.Background()); err != nil {
			return fmt.Errorf("river workers failed to start: %w", err)
		}
		logger.Info().Int("max_workers", cfg.Jobs.MaxWorkers).Msg("background job workers started")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		metrics.NewDBCollector(pool).Run(gctx, 15*time.Second)
		return nil
	})

	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = errors.Join(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if worker != nil {
			if err := worker.Stop(shutdownCtx); err != nil {
				errs = errors.Join(errs, fmt.Errorf("river shutdown: %w", err))
			} else {
				logger.Info().Msg("background job workers stopped")
			}
		}
		return errs
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
