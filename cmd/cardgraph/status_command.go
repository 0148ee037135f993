package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cardgraph/internal/api"
	"cardgraph/internal/config"
	"cardgraph/internal/lifecycle"
	"cardgraph/internal/sessions"
	"cardgraph/internal/status"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the session overview",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(func(cfg *config.Config, store *sessions.Store, manager *lifecycle.Manager) error {
				aggregator := status.NewAggregator(store, manager)
				overview, err := aggregator.Overview(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, api.OverviewResponse{
						Overview: overview,
						PID:      os.Getpid(),
						DBPath:   store.Path(),
					})
				}
				renderOverview(cmd, overview)
				return nil
			})
		},
	}

	addJSONFlag(cmd, &asJSON)
	return cmd
}

func renderOverview(cmd *cobra.Command, overview *status.Overview) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Sessions", colorize) {
		fmt.Fprintln(out, line)
	}
	total := 0
	for _, s := range sessions.AllStatuses() {
		count := overview.Counts[s]
		total += count
		kind := statusInfo
		if count > 0 {
			kind = statusKindForSession(s)
		}
		fmt.Fprintln(out, renderStatusLine(string(s), kind, strconv.Itoa(count), colorize))
	}
	if total == 0 {
		fmt.Fprintln(out, statusIndent+"No sessions yet")
	}

	if len(overview.Active) > 0 {
		fmt.Fprintln(out)
		for _, line := range renderSectionHeader("Active now", colorize) {
			fmt.Fprintln(out, line)
		}
		rows := make([][]string, 0, len(overview.Active))
		for _, s := range overview.Active {
			started := ""
			if s.ActualStart != nil {
				started = humanize.Time(*s.ActualStart)
			}
			rows = append(rows, []string{
				strconv.FormatInt(s.ID, 10),
				s.AuctionName,
				string(s.Status),
				started,
			})
		}
		fmt.Fprintln(out, renderTable([]string{"ID", "Auction", "Status", "Started"}, rows, 0))
	}
}
