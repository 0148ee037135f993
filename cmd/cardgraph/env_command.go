package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cardgraph/internal/api"
	"cardgraph/internal/config"
	"cardgraph/internal/envcheck"
	"cardgraph/internal/sessions"
)

func newEnvCheckCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "env-check",
		Short: "Probe binaries, directories, disk space, and CPU headroom",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *sessions.Store) error {
				settings, err := store.GetSettings(cmd.Context())
				if err != nil {
					return err
				}
				report := envcheck.RunAll(cfg, settings)
				if asJSON {
					return writeJSON(cmd, api.EnvCheckResponse{Report: report, Healthy: report.Healthy()})
				}
				renderEnvReport(cmd, report)
				if !report.Healthy() {
					return fmt.Errorf("environment check failed")
				}
				return nil
			})
		},
	}

	addJSONFlag(cmd, &asJSON)
	return cmd
}

func renderEnvReport(cmd *cobra.Command, report *envcheck.Report) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Binaries", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, binary := range report.Binaries {
		kind := statusOK
		detail := binary.Command
		switch {
		case binary.Available:
			if binary.Detail != "" {
				detail = binary.Detail
			}
		case binary.Optional:
			kind = statusWarn
			detail = "not found (optional)"
		default:
			kind = statusError
			detail = "not found"
		}
		fmt.Fprintln(out, renderStatusLine(binary.Name, kind, detail, colorize))
	}

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Environment", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, check := range report.Checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
}
