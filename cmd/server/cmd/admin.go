package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/eventify-org/server/internal/config"
	"github.com/eventify-org/server/internal/domain/users"
	"github.com/eventify-org/server/internal/storage/postgres"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newAdminCommand(flags *globalFlags) *cobra.Command {
	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts",
	}

	var name, email, password string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an administrator account",
		Long: `Create an administrator account directly in the database.

The password is read from --password or, when omitted, from ADMIN_PASSWORD.

Examples:
  server admin create --name "Site Admin" --email admin@example.com
  ADMIN_PASSWORD=s3cret-pass server admin create --name Ops --email ops@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}
			if name == "" || email == "" || password == "" {
				return fmt.Errorf("--name, --email and a password are required")
			}

			cfg, err := loadConfig(flags)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			logger := config.NewLogger(cfg.Logging)

			pool, err := postgres.NewPool(cmd.Context(), cfg.Database)
			if err != nil {
				return fmt.Errorf("database connection failed: %w", err)
			}
			defer pool.Close()

			svc, err := newServices(cfg, logger, pool, nil)
			if err != nil {
				return err
			}

			user, err := svc.users.CreateAdmin(cmd.Context(), name, email, password)
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
	createCmd.Flags().StringVar(&name, "name", "", "display name")
	createCmd.Flags().StringVar(&email, "email", "", "login email")
	createCmd.Flags().StringVar(&password, "password", "", "password (default: $ADMIN_PASSWORD)")

	adminCmd.AddCommand(createCmd)
	return adminCmd
}

// bootstrapAdmin creates the configured admin on first start. An existing
// account with the same email is left untouched.
func bootstrapAdmin(ctx context.Context, cfg config.Config, svc *services, logger zerolog.Logger) error {
	bootstrap := cfg.AdminBootstrap
	if bootstrap.Name == "" || bootstrap.Password == "" || bootstrap.Email == "" {
		logger.Debug().Msg("admin bootstrap env vars not fully set; skipping")
		return nil
	}

	user, err := svc.users.CreateAdmin(ctx, bootstrap.Name, bootstrap.Email, bootstrap.Password)
	if errors.Is(err, users.ErrEmailTaken) {
		return nil
	}
	if err != nil {
		return err
	}

	// Email is PII; keep it out of production logs.
	event := logger.Info().Str("user_id", user.ID)
	if cfg.Environment != "production" {
		event = event.Str("email", user.Email)
	}
	event.Msg("bootstrapped admin user")
	return nil
}
