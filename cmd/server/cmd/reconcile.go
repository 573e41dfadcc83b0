package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/eventify-org/server/internal/config"
	"github.com/eventify-org/server/internal/domain/registrations"
	"github.com/eventify-org/server/internal/storage/postgres"
	"github.com/spf13/cobra"
)

func newReconcileCommand(flags *globalFlags) *cobra.Command {
	var (
		fix     bool
		eventID string
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Check seat counts against active registrations",
		Long: `Compare every event's stored seat count and attendee list with its
active registrations and report any drift.

By default nothing is changed. With --fix the stored bookkeeping is
rewritten to match the registrations.

Examples:
  # Report drift for all events
  server reconcile

  # Repair a single event
  server reconcile --event 01J9Z3K7C4T1M8Q2X5W6V0B9NA --fix`,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			var drifts []registrations.Drift
			if eventID != "" {
				drift, err := svc.engine.Reconcile(cmd.Context(), eventID, fix)
				if err != nil {
					return fmt.Errorf("reconcile event: %w", err)
				}
				if drift.HasDrift() {
					drifts = append(drifts, drift)
				}
			} else {
				drifts, err = svc.engine.ReconcileAll(cmd.Context(), fix)
				if err != nil {
					return fmt.Errorf("reconcile: %w", err)
				}
			}

			printDrift(cmd.OutOrStdout(), drifts, fix)
			return nil
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "rewrite seat bookkeeping to match active registrations")
	cmd.Flags().StringVar(&eventID, "event", "", "reconcile a single event by id")
	return cmd
}

func printDrift(out io.Writer, drifts []registrations.Drift, fix bool) {
	if len(drifts) == 0 {
		fmt.Fprintln(out, "No drift found")
		return
	}

	for _, d := range drifts {
		fmt.Fprintf(out, "Event %s: stored %d, actual %d\n", d.EventID, d.StoredCount, d.ActualCount)
		if len(d.Missing) > 0 {
			fmt.Fprintf(out, "  missing attendees: %s\n", strings.Join(d.Missing, ", "))
		}
		if len(d.Extra) > 0 {
			fmt.Fprintf(out, "  extra attendees:   %s\n", strings.Join(d.Extra, ", "))
		}
		if d.Fixed {
			fmt.Fprintln(out, "  fixed")
		}
	}

	summary := fmt.Sprintf("%d event(s) drifted", len(drifts))
	if !fix {
		summary += "; rerun with --fix to repair"
	}
	fmt.Fprintln(out, summary)
}
