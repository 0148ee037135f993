package lifecycle

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cardgraph/internal/config"
	"cardgraph/internal/logging"
	"cardgraph/internal/sessions"
	"cardgraph/internal/signals"
)

// Manager coordinates session transitions between the store, the signal
// directory, and the detached worker processes.
type Manager struct {
	cfg     *config.Config
	store   *sessions.Store
	markers *signals.Dir
	logger  *slog.Logger
}

// NewManager wires a lifecycle manager. The signal directory is created if
// missing.
func NewManager(cfg *config.Config, store *sessions.Store, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	markers, err := signals.NewDir(cfg.Paths.SignalDir)
	if err != nil {
		return nil, err
	}
	return &Manager{
		cfg:     cfg,
		store:   store,
		markers: markers,
		logger:  logging.WithComponent(logger, "lifecycle"),
	}, nil
}

// Signals exposes the marker directory for collaborators such as the
// scheduler.
func (m *Manager) Signals() *signals.Dir {
	return m.markers
}

// CreateRequest carries the operator's new-session parameters. Override
// fields are nil/empty to inherit the global settings value.
type CreateRequest struct {
	AuctionName    string
	AuctionURL     string
	ScheduledStart time.Time

	OverrideSegmentLength  *int
	OverrideSilenceTimeout *int
	OverrideMaxDuration    *int
	OverrideCPULimit       *int
	OverrideAcquisition    string

	CreatedBy string
}

// Create validates and persists a new scheduled session.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*sessions.Session, error) {
	session, err := validateCreate(req)
	if err != nil {
		return nil, err
	}

	created, err := m.store.CreateSession(ctx, session)
	if err != nil {
		return nil, sessions.Wrap(nil, "create session", "persist", err)
	}
	_ = m.store.AppendLog(ctx, created.ID, "info", "session_created",
		fmt.Sprintf("session scheduled for %s", created.ScheduledStart.Format(time.RFC3339)))
	m.logger.Info("session created", logging.SessionID(created.ID), logging.String("auction", created.AuctionName))
	return created, nil
}

// Get returns the session or a not-found error.
func (m *Manager) Get(ctx context.Context, id int64) (*sessions.Session, error) {
	session, err := m.store.GetSession(ctx, id)
	if err != nil {
		return nil, sessions.Wrap(nil, "get session", "load", err)
	}
	if session == nil {
		return nil, sessions.Wrap(sessions.ErrNotFound, "get session", fmt.Sprintf("session %d", id), nil)
	}
	return session, nil
}

// List returns sessions per the filter plus the total matching count.
func (m *Manager) List(ctx context.Context, filter sessions.ListFilter) ([]*sessions.Session, int, error) {
	items, total, err := m.store.ListSessions(ctx, filter)
	if err != nil {
		return nil, 0, sessions.Wrap(nil, "list sessions", "query", err)
	}
	return items, total, nil
}

// Logs returns the newest log entries for a session.
func (m *Manager) Logs(ctx context.Context, id int64, limit int) ([]*sessions.LogEntry, error) {
	if _, err := m.Get(ctx, id); err != nil {
		return nil, err
	}
	entries, err := m.store.LogsBySession(ctx, id, limit)
	if err != nil {
		return nil, sessions.Wrap(nil, "session logs", "query", err)
	}
	return entries, nil
}

// Start launches the worker for a scheduled session. Direct-stream capture
// is spawned by this daemon; browser automation is handed to the privileged
// wrapper through a start request marker. The launch happens before any
// status write, so a failed launch leaves the row scheduled and a later
// retry is safe.
func (m *Manager) Start(ctx context.Context, id int64) (*sessions.Session, error) {
	session, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status != sessions.StatusScheduled {
		return nil, sessions.Wrap(sessions.ErrStateConflict, "start session",
			fmt.Sprintf("session %d is %s, not scheduled", id, session.Status), nil)
	}
	if m.markers.HasLock(id) {
		return nil, sessions.Wrap(sessions.ErrExternalProcess, "start session",
			fmt.Sprintf("worker lock already held for session %d", id), nil)
	}

	settings, err := m.store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	mode := settings.EffectiveAcquisitionMode(session)

	switch mode {
	case sessions.ModeBrowserAutomation:
		if err := m.markers.DropStartRequest(id); err != nil {
			return nil, sessions.Wrap(sessions.ErrExternalProcess, "start session", "drop start request", err)
		}
	default:
		script := m.cfg.ManagerScriptPath()
		if _, err := os.Stat(script); err != nil {
			return nil, sessions.Wrap(sessions.ErrExternalProcess, "start session",
				fmt.Sprintf("worker script %s unavailable", script), err)
		}
		started, err := m.markers.AcquireAndLaunch(signals.LaunchSpec{
			SessionID: id,
			Argv:      m.workerArgv(id),
		})
		if err != nil {
			return nil, sessions.Wrap(sessions.ErrExternalProcess, "start session", "spawn worker", err)
		}
		if !started {
			return nil, sessions.Wrap(sessions.ErrExternalProcess, "start session",
				fmt.Sprintf("worker lock already held for session %d", id), nil)
		}
	}

	now := time.Now().UTC()
	session.Status = sessions.StatusRecording
	session.ActualStart = &now
	session.StopReason = ""
	session.EndTime = nil
	if err := m.store.UpdateSession(ctx, session); err != nil {
		return nil, sessions.Wrap(nil, "start session", "mark recording", err)
	}
	if mode == sessions.ModeBrowserAutomation {
		_ = m.store.AppendLog(ctx, id, "info", "session_queued", "browser automation launch requested")
	} else {
		_ = m.store.AppendLog(ctx, id, "info", "session_started", "direct stream worker launched")
	}

	m.logger.Info("session started",
		logging.SessionID(id),
		logging.String("mode", string(mode)))
	return session, nil
}

// Stop asks the worker to finish the current segment and wrap up.
func (m *Manager) Stop(ctx context.Context, id int64) error {
	session, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	if !session.Status.IsActive() {
		return sessions.Wrap(sessions.ErrStateConflict, "stop session",
			fmt.Sprintf("session %d is %s, not active", id, session.Status), nil)
	}
	if err := m.markers.DropStop(id); err != nil {
		return sessions.Wrap(sessions.ErrExternalProcess, "stop session", "drop stop signal", err)
	}
	_ = m.store.AppendLog(ctx, id, "info", "stop_requested", "graceful stop signal dropped")
	m.logger.Info("stop requested", logging.SessionID(id))
	return nil
}

// Cancel aborts a running session. The worker owns the resulting state
// change; this only drops the cancel signal. Inactive sessions conflict.
func (m *Manager) Cancel(ctx context.Context, id int64) error {
	session, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	if !session.Status.IsActive() {
		return sessions.Wrap(sessions.ErrStateConflict, "cancel session",
			fmt.Sprintf("session %d is %s, not active", id, session.Status), nil)
	}
	if err := m.markers.DropCancel(id); err != nil {
		return sessions.Wrap(sessions.ErrExternalProcess, "cancel session", "drop cancel signal", err)
	}
	_ = m.store.AppendLog(ctx, id, "warn", "cancel_requested", "cancel signal dropped")
	m.logger.Info("session cancelled", logging.SessionID(id), logging.String("status", string(session.Status)))
	return nil
}

// Update replaces the editable session parameters. Editing a terminal
// session resets it to scheduled and clears the run outcome so it can be
// re-run.
func (m *Manager) Update(ctx context.Context, id int64, req CreateRequest) (*sessions.Session, error) {
	session, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !session.Status.Editable() {
		return nil, sessions.Wrap(sessions.ErrStateConflict, "update session",
			fmt.Sprintf("session %d is %s; stop it before editing", id, session.Status), nil)
	}

	validated, err := validateCreate(req)
	if err != nil {
		return nil, err
	}

	rescheduled := session.Status.IsTerminal()
	session.AuctionName = validated.AuctionName
	session.AuctionURL = validated.AuctionURL
	session.ScheduledStart = validated.ScheduledStart
	session.OverrideSegmentLength = validated.OverrideSegmentLength
	session.OverrideSilenceTimeout = validated.OverrideSilenceTimeout
	session.OverrideMaxDuration = validated.OverrideMaxDuration
	session.OverrideCPULimit = validated.OverrideCPULimit
	session.OverrideAcquisitionMode = validated.OverrideAcquisitionMode
	session.Status = sessions.StatusScheduled
	session.StopReason = ""
	session.ActualStart = nil
	session.EndTime = nil

	if err := m.store.UpdateSession(ctx, session); err != nil {
		return nil, sessions.Wrap(nil, "update session", "persist", err)
	}
	event := "session_updated"
	if rescheduled {
		event = "session_rescheduled"
	}
	_ = m.store.AppendLog(ctx, id, "info", event,
		fmt.Sprintf("session parameters replaced; next start %s", session.ScheduledStart.Format(time.RFC3339)))
	m.logger.Info("session updated", logging.SessionID(id), logging.Bool("rescheduled", rescheduled))
	return session, nil
}

// DeleteResult reports what a delete removed.
type DeleteResult struct {
	FilesRemoved int
}

// Delete cancels any running worker, waits briefly for it to notice, then
// removes the session's archive directory, markers, and database rows.
// Archive removal is best effort; the database delete is authoritative.
func (m *Manager) Delete(ctx context.Context, id int64) (*DeleteResult, error) {
	session, err := m.store.GetSession(ctx, id)
	if err != nil {
		return nil, sessions.Wrap(nil, "delete session", "load", err)
	}
	if session == nil {
		return nil, sessions.Wrap(sessions.ErrNotFound, "delete session", fmt.Sprintf("session %d", id), nil)
	}

	if session.Status.IsActive() {
		if err := m.markers.DropCancel(id); err != nil {
			m.logger.Warn("cancel signal before delete failed", logging.SessionID(id), logging.Error(err))
		}
		wait := time.Duration(m.cfg.Scheduler.DeleteSignalWaitMsec) * time.Millisecond
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	result := &DeleteResult{}
	if session.SessionDir != "" {
		removed, err := removeTree(session.SessionDir)
		result.FilesRemoved = removed
		if err != nil {
			m.logger.Warn("archive removal incomplete",
				logging.SessionID(id),
				logging.String("dir", session.SessionDir),
				logging.Error(err))
		}
	}

	if err := m.markers.ClearAll(id); err != nil {
		m.logger.Warn("marker cleanup incomplete", logging.SessionID(id), logging.Error(err))
	}

	if _, err := m.store.DeleteSession(ctx, id); err != nil {
		return nil, sessions.Wrap(nil, "delete session", "remove rows", err)
	}

	m.logger.Info("session deleted",
		logging.SessionID(id),
		logging.Int("files_removed", result.FilesRemoved))
	return result, nil
}

func (m *Manager) workerArgv(id int64) []string {
	return []string{
		m.cfg.Workers.PythonBinary,
		m.cfg.ManagerScriptPath(),
		"--session-id", strconv.FormatInt(id, 10),
		"--db", m.store.Path(),
	}
}

func validateCreate(req CreateRequest) (*sessions.Session, error) {
	name := strings.TrimSpace(req.AuctionName)
	if name == "" {
		return nil, sessions.Wrap(sessions.ErrValidation, "validate session", "auction_name must not be empty", nil)
	}

	rawURL := strings.TrimSpace(req.AuctionURL)
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, sessions.Wrap(sessions.ErrValidation, "validate session",
			fmt.Sprintf("auction_url must be an absolute http(s) URL, got %q", rawURL), nil)
	}

	if req.ScheduledStart.IsZero() {
		return nil, sessions.Wrap(sessions.ErrValidation, "validate session", "scheduled_start is required", nil)
	}

	ranges := []struct {
		field string
		value *int
		min   int
		max   int
	}{
		{"segment_length_minutes", req.OverrideSegmentLength, 5, 60},
		{"silence_timeout_minutes", req.OverrideSilenceTimeout, 1, 30},
		{"max_session_hours", req.OverrideMaxDuration, 1, 24},
		{"max_cpu_cores", req.OverrideCPULimit, 1, 3},
	}
	for _, r := range ranges {
		if r.value != nil && (*r.value < r.min || *r.value > r.max) {
			return nil, sessions.Wrap(sessions.ErrValidation, "validate session",
				fmt.Sprintf("%s override must be between %d and %d, got %d", r.field, r.min, r.max, *r.value), nil)
		}
	}

	mode, ok := sessions.ParseAcquisitionMode(req.OverrideAcquisition)
	if !ok {
		return nil, sessions.Wrap(sessions.ErrValidation, "validate session",
			fmt.Sprintf("acquisition_mode override must be direct_stream or browser_automation, got %q", req.OverrideAcquisition), nil)
	}

	return &sessions.Session{
		AuctionName:             name,
		AuctionURL:              rawURL,
		ScheduledStart:          req.ScheduledStart.UTC(),
		OverrideSegmentLength:   req.OverrideSegmentLength,
		OverrideSilenceTimeout:  req.OverrideSilenceTimeout,
		OverrideMaxDuration:     req.OverrideMaxDuration,
		OverrideCPULimit:        req.OverrideCPULimit,
		OverrideAcquisitionMode: mode,
		CreatedBy:               strings.TrimSpace(req.CreatedBy),
	}, nil
}

// removeTree deletes a directory recursively and reports how many regular
// files it removed. Partial removal returns the count alongside the error.
func removeTree(root string) (int, error) {
	count := 0
	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.Type().IsRegular() {
			count++
		}
		return nil
	})
	if walkErr != nil {
		if os.IsNotExist(walkErr) {
			return 0, nil
		}
		return 0, fmt.Errorf("walk %s: %w", root, walkErr)
	}
	if err := os.RemoveAll(root); err != nil {
		return 0, fmt.Errorf("remove %s: %w", root, err)
	}
	return count, nil
}
