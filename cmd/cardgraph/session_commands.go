package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cardgraph/internal/api"
	"cardgraph/internal/config"
	"cardgraph/internal/lifecycle"
	"cardgraph/internal/sessions"
	"cardgraph/internal/status"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Manage recording sessions",
	}

	sessionCmd.AddCommand(newSessionListCommand(ctx))
	sessionCmd.AddCommand(newSessionShowCommand(ctx))
	sessionCmd.AddCommand(newSessionAddCommand(ctx))
	sessionCmd.AddCommand(newSessionEditCommand(ctx))
	sessionCmd.AddCommand(newSessionStartCommand(ctx))
	sessionCmd.AddCommand(newSessionStopCommand(ctx))
	sessionCmd.AddCommand(newSessionCancelCommand(ctx))
	sessionCmd.AddCommand(newSessionDeleteCommand(ctx))
	sessionCmd.AddCommand(newSessionLogsCommand(ctx))
	sessionCmd.AddCommand(newSessionStatusCommand(ctx))

	return sessionCmd
}

func newSessionListCommand(ctx *commandContext) *cobra.Command {
	var (
		statusFilter string
		limit        int
		offset       int
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest scheduled first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(func(cfg *config.Config, store *sessions.Store, manager *lifecycle.Manager) error {
				filter := sessions.ListFilter{Limit: limit, Offset: offset}
				if statusFilter != "" {
					parsed, ok := sessions.ParseStatus(statusFilter)
					if !ok {
						return fmt.Errorf("unknown status %q", statusFilter)
					}
					filter.Status = parsed
				}
				list, total, err := manager.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, api.SessionListResponse{Sessions: list, Total: total})
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No sessions")
					return nil
				}
				rows := make([][]string, 0, len(list))
				for _, s := range list {
					rows = append(rows, []string{
						strconv.FormatInt(s.ID, 10),
						s.AuctionName,
						string(s.Status),
						s.ScheduledStart.Local().Format("2006-01-02 15:04"),
						humanize.Time(s.ScheduledStart),
						strconv.Itoa(s.TotalSegments),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Auction", "Status", "Scheduled", "When", "Segments"},
					rows, 0, 5,
				))
				fmt.Fprintf(cmd.OutOrStdout(), "%d of %d session(s)\n", len(list), total)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Filter by status")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum sessions to list (0 = all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Sessions to skip")
	addJSONFlag(cmd, &asJSON)
	return cmd
}

func newSessionShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return ctx.withManager(func(cfg *config.Config, store *sessions.Store, manager *lifecycle.Manager) error {
				session, err := manager.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, api.SessionResponse{Session: session})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderKV(sessionDetailPairs(session)))
				return nil
			})
		},
	}

	addJSONFlag(cmd, &asJSON)
	return cmd
}

func sessionDetailPairs(s *sessions.Session) [][2]string {
	pairs := [][2]string{
		{"ID", strconv.FormatInt(s.ID, 10)},
		{"Auction", s.AuctionName},
		{"URL", s.AuctionURL},
		{"Status", string(s.Status)},
		{"Scheduled", s.ScheduledStart.Local().Format(time.RFC1123)},
	}
	if s.ActualStart != nil {
		pairs = append(pairs, [2]string{"Started", s.ActualStart.Local().Format(time.RFC1123)})
	}
	if s.EndTime != nil {
		pairs = append(pairs, [2]string{"Ended", s.EndTime.Local().Format(time.RFC1123)})
	}
	if s.StopReason != "" {
		pairs = append(pairs, [2]string{"Stop reason", s.StopReason})
	}
	pairs = append(pairs,
		[2]string{"Segments", strconv.Itoa(s.TotalSegments)},
		[2]string{"Recorded", formatDuration(s.TotalDurationSec)},
	)
	if s.SessionDir != "" {
		pairs = append(pairs, [2]string{"Archive dir", s.SessionDir})
	}
	for _, o := range []struct {
		label string
		value *int
	}{
		{"Segment length override", s.OverrideSegmentLength},
		{"Silence timeout override", s.OverrideSilenceTimeout},
		{"Max duration override", s.OverrideMaxDuration},
		{"CPU limit override", s.OverrideCPULimit},
	} {
		if o.value != nil {
			pairs = append(pairs, [2]string{o.label, strconv.Itoa(*o.value)})
		}
	}
	if s.OverrideAcquisitionMode != "" {
		pairs = append(pairs, [2]string{"Acquisition override", string(s.OverrideAcquisitionMode)})
	}
	if s.CreatedBy != "" {
		pairs = append(pairs, [2]string{"Created by", s.CreatedBy})
	}
	pairs = append(pairs, [2]string{"Created", humanize.Time(s.CreatedAt)})
	return pairs
}

type sessionFlagSet struct {
	name           string
	url            string
	start          string
	segmentLength  int
	silenceTimeout int
	maxDuration    int
	cpuLimit       int
	acquisition    string
	createdBy      string
}

func (f *sessionFlagSet) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Auction name")
	cmd.Flags().StringVar(&f.url, "url", "", "Auction stream URL")
	cmd.Flags().StringVar(&f.start, "start", "", "Scheduled start (RFC3339 or \"2006-01-02 15:04\")")
	cmd.Flags().IntVar(&f.segmentLength, "segment-length", 0, "Override segment length in minutes")
	cmd.Flags().IntVar(&f.silenceTimeout, "silence-timeout", 0, "Override silence timeout in minutes")
	cmd.Flags().IntVar(&f.maxDuration, "max-duration", 0, "Override max session hours")
	cmd.Flags().IntVar(&f.cpuLimit, "cpu-limit", 0, "Override worker CPU cores")
	cmd.Flags().StringVar(&f.acquisition, "acquisition", "", "Override acquisition mode")
	cmd.Flags().StringVar(&f.createdBy, "created-by", "", "Operator name to record")
}

// apply folds the flags the operator actually set into req.
func (f *sessionFlagSet) apply(cmd *cobra.Command, req *lifecycle.CreateRequest) error {
	flags := cmd.Flags()
	if flags.Changed("name") {
		req.AuctionName = f.name
	}
	if flags.Changed("url") {
		req.AuctionURL = f.url
	}
	if flags.Changed("start") {
		start, err := api.ParseScheduledStart(f.start)
		if err != nil {
			return err
		}
		req.ScheduledStart = start
	}
	if flags.Changed("segment-length") {
		req.OverrideSegmentLength = intOverride(f.segmentLength)
	}
	if flags.Changed("silence-timeout") {
		req.OverrideSilenceTimeout = intOverride(f.silenceTimeout)
	}
	if flags.Changed("max-duration") {
		req.OverrideMaxDuration = intOverride(f.maxDuration)
	}
	if flags.Changed("cpu-limit") {
		req.OverrideCPULimit = intOverride(f.cpuLimit)
	}
	if flags.Changed("acquisition") {
		req.OverrideAcquisition = f.acquisition
	}
	if flags.Changed("created-by") {
		req.CreatedBy = f.createdBy
	}
	return nil
}

// intOverride maps the flag sentinel 0 to "clear the override".
func intOverride(value int) *int {
	if value == 0 {
		return nil
	}
	return &value
}

func newSessionAddCommand(ctx *commandContext) *cobra.Command {
	var flags sessionFlagSet

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Schedule a new recording session",
		RunE: func(cmd *cobra.Command, args []string) error {
			var req lifecycle.CreateRequest
			if err := flags.apply(cmd, &req); err != nil {
				return err
			}
			return ctx.withManager(func(cfg *config.Config, store *sessions.Store, manager *lifecycle.Manager) error {
				session, err := manager.Create(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Scheduled session %d (%s) for %s\n",
					session.ID, session.AuctionName, session.ScheduledStart.Local().Format(time.RFC1123))
				return nil
			})
		},
	}

	flags.register(cmd)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func newSessionEditCommand(ctx *commandContext) *cobra.Command {
	var flags sessionFlagSet

	cmd := &cobra.Command{
		Use:   "edit <session-id>",
		Short: "Edit a session that has not started recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return ctx.withManager(func(cfg *config.Config, store *sessions.Store, manager *lifecycle.Manager) error {
				current, err := manager.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				req := lifecycle.CreateRequest{
					AuctionName:            current.AuctionName,
					AuctionURL:             current.AuctionURL,
					ScheduledStart:         current.ScheduledStart,
					OverrideSegmentLength:  current.OverrideSegmentLength,
					OverrideSilenceTimeout: current.OverrideSilenceTimeout,
					OverrideMaxDuration:    current.OverrideMaxDuration,
					OverrideCPULimit:       current.OverrideCPULimit,
					OverrideAcquisition:    string(current.OverrideAcquisitionMode),
					CreatedBy:              current.CreatedBy,
				}
				if err := flags.apply(cmd, &req); err != nil {
					return err
				}
				updated, err := manager.Update(cmd.Context(), id, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated session %d (status %s)\n", updated.ID, updated.Status)
				return nil
			})
		},
	}

	flags.register(cmd)
	return cmd
}

func newSessionStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start <session-id>",
		Short: "Start recording a scheduled session now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return ctx.withManager(func(cfg *config.Config, store *sessions.Store, manager *lifecycle.Manager) error {
				session, err := manager.Start(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Session %d recording (%s acquisition)\n",
					session.ID, effectiveAcquisition(cmd, store, session))
				return nil
			})
		},
	}
}

func effectiveAcquisition(cmd *cobra.Command, store *sessions.Store, session *sessions.Session) sessions.AcquisitionMode {
	settings, err := store.GetSettings(cmd.Context())
	if err != nil {
		return session.OverrideAcquisitionMode
	}
	return settings.EffectiveAcquisitionMode(session)
}

func newSessionStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <session-id>",
		Short: "Ask a recording session to stop gracefully",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return ctx.withManager(func(cfg *config.Config, store *sessions.Store, manager *lifecycle.Manager) error {
				if err := manager.Stop(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stop requested for session %d\n", id)
				return nil
			})
		},
	}
}

func newSessionCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <session-id>",
		Short: "Cancel a recording or processing session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return ctx.withManager(func(cfg *config.Config, store *sessions.Store, manager *lifecycle.Manager) error {
				if err := manager.Cancel(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cancelled session %d\n", id)
				return nil
			})
		},
	}
}

func newSessionDeleteCommand(ctx *commandContext) *cobra.Command {
	var keepFiles bool

	cmd := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session, its markers, and its archived audio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return ctx.withManager(func(cfg *config.Config, store *sessions.Store, manager *lifecycle.Manager) error {
				result, err := manager.Delete(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %d (%d archived file(s) removed)\n",
					id, result.FilesRemoved)
				return nil
			})
		},
	}

	// Kept hidden until the worker gains a matching keep-files mode.
	cmd.Flags().BoolVar(&keepFiles, "keep-files", false, "")
	_ = cmd.Flags().MarkHidden("keep-files")
	return cmd
}

func newSessionLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "logs <session-id>",
		Short: "Show a session's event log, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return ctx.withManager(func(cfg *config.Config, store *sessions.Store, manager *lifecycle.Manager) error {
				logs, err := manager.Logs(cmd.Context(), id, limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, api.LogsResponse{Logs: logs})
				}
				if len(logs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No log entries")
					return nil
				}
				for _, entry := range logs {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %-5s %-18s %s\n",
						entry.CreatedAt.Local().Format("2006-01-02 15:04:05"),
						strings.ToUpper(entry.Level), entry.EventType, entry.Message)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries to show (0 = all)")
	addJSONFlag(cmd, &asJSON)
	return cmd
}

func newSessionStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status <session-id>",
		Short: "Show live progress for one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return ctx.withManager(func(cfg *config.Config, store *sessions.Store, manager *lifecycle.Manager) error {
				aggregator := status.NewAggregator(store, manager)
				snapshot, err := aggregator.Snapshot(cmd.Context(), id)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, api.StatusResponse{Status: snapshot})
				}
				renderSnapshot(cmd, snapshot)
				return nil
			})
		},
	}

	addJSONFlag(cmd, &asJSON)
	return cmd
}

func renderSnapshot(cmd *cobra.Command, snapshot *status.Snapshot) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	session := snapshot.Session

	for _, line := range renderSectionHeader(fmt.Sprintf("Session %d: %s", session.ID, session.AuctionName), colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Status", statusKindForSession(session.Status), string(session.Status), colorize))
	workerKind := statusWarn
	workerText := "no worker lock"
	if snapshot.WorkerActive {
		workerKind = statusOK
		workerText = "worker lock held"
	}
	if !session.Status.IsActive() {
		workerKind = statusInfo
	}
	fmt.Fprintln(out, renderStatusLine("Worker", workerKind, workerText, colorize))
	fmt.Fprintln(out, renderStatusLine("Elapsed", statusInfo, formatDuration(snapshot.ElapsedSec), colorize))
	fmt.Fprintln(out, renderStatusLine("Segment length", statusInfo,
		fmt.Sprintf("%d min", snapshot.SegmentLengthMinutes), colorize))

	seg := snapshot.Segments
	fmt.Fprintln(out, renderStatusLine("Segments", statusInfo,
		fmt.Sprintf("%d total, %d recorded, %d transcribed", seg.Total, seg.RecordingComplete, seg.TranscriptionComplete), colorize))
	if seg.TotalSizeBytes > 0 {
		fmt.Fprintln(out, renderStatusLine("Archive size", statusInfo,
			humanize.IBytes(uint64(seg.TotalSizeBytes)), colorize))
	}
	if snapshot.CurrentSegmentStart != nil {
		fmt.Fprintln(out, renderStatusLine("Current segment", statusOK,
			"started "+humanize.Time(*snapshot.CurrentSegmentStart), colorize))
	}
}

func statusKindForSession(s sessions.Status) statusKind {
	switch s {
	case sessions.StatusRecording, sessions.StatusProcessing:
		return statusOK
	case sessions.StatusError:
		return statusError
	case sessions.StatusStopped:
		return statusWarn
	default:
		return statusInfo
	}
}

func parseSessionID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid session id %q", raw)
	}
	return id, nil
}

func formatDuration(seconds int64) string {
	if seconds <= 0 {
		return "0s"
	}
	return (time.Duration(seconds) * time.Second).String()
}
