package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cardgraph/internal/config"
	"cardgraph/internal/lifecycle"
	"cardgraph/internal/logging"
	"cardgraph/internal/scheduler"
	"cardgraph/internal/sessions"
)

func newTickCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Run one scheduler pass, starting any due sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(func(cfg *config.Config, store *sessions.Store, manager *lifecycle.Manager) error {
				service := scheduler.NewService(cfg, store, manager, logging.NewNop())
				result, err := service.Tick(cmd.Context(), cfg.Scheduler.Secret)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, result)
				}
				if result.Due == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No sessions due")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d due: started %v, skipped %v, failed %v\n",
					result.Due, result.Started, result.Skipped, result.Failed)
				return nil
			})
		},
	}

	addJSONFlag(cmd, &asJSON)
	return cmd
}

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Run one retention sweep over terminal sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(func(cfg *config.Config, store *sessions.Store, manager *lifecycle.Manager) error {
				service := scheduler.NewService(cfg, store, manager, logging.NewNop())
				result, err := service.Reap(cmd.Context(), cfg.Scheduler.Secret)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				switch {
				case result.Skipped:
					fmt.Fprintln(out, "Skipped: a sweep ran within the last hour")
				case result.RetentionDisabled:
					fmt.Fprintln(out, "Retention is disabled; nothing purged")
				case len(result.Purged) == 0:
					fmt.Fprintln(out, "No sessions past retention")
				default:
					fmt.Fprintf(out, "Purged sessions %v (%d archived file(s) removed)\n",
						result.Purged, result.FilesRemoved)
				}
				return nil
			})
		},
	}

	addJSONFlag(cmd, &asJSON)
	return cmd
}
