package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cardgraph/internal/config"
	"cardgraph/internal/daemon"
	"cardgraph/internal/logging"
	"cardgraph/internal/sessions"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the orchestrator daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runServe(cmd, cfg)
		},
	}
}

func runServe(cmd *cobra.Command, cfg *config.Config) error {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}

	store, err := sessions.Open(cfg)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	d, err := daemon.New(cfg, store, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.Start(runCtx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "cardgraph listening on %s (pid %d)\n", d.Addr(), os.Getpid())

	<-runCtx.Done()
	logger.Info("shutdown signal received")
	d.Stop()
	return nil
}
