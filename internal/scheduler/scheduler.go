package scheduler

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"cardgraph/internal/config"
	"cardgraph/internal/lifecycle"
	"cardgraph/internal/logging"
	"cardgraph/internal/sessions"
)

// reapThrottle is the minimum spacing between retention sweeps. Ticks can
// arrive far more often than purges need to run.
const reapThrottle = time.Hour

// Service runs the scheduled-start tick and the retention reaper.
type Service struct {
	cfg     *config.Config
	store   *sessions.Store
	manager *lifecycle.Manager
	logger  *slog.Logger
}

// NewService wires the scheduler against the shared store and lifecycle
// manager.
func NewService(cfg *config.Config, store *sessions.Store, manager *lifecycle.Manager, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		cfg:     cfg,
		store:   store,
		manager: manager,
		logger:  logging.WithComponent(logger, "scheduler"),
	}
}

// Authorize checks the shared scheduler secret in constant time.
func (s *Service) Authorize(secret string) error {
	expected := s.cfg.Scheduler.Secret
	if expected == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(expected)) != 1 {
		return sessions.Wrap(sessions.ErrForbidden, "scheduler", "invalid scheduler key", nil)
	}
	return nil
}

// TickResult summarizes one scheduler pass.
type TickResult struct {
	Due     int     `json:"due"`
	Started []int64 `json:"started"`
	Skipped []int64 `json:"skipped"`
	Failed  []int64 `json:"failed"`
}

// Tick starts every due scheduled session. A failure to start one session
// never blocks the others; failed sessions stay scheduled and are retried
// on the next tick.
func (s *Service) Tick(ctx context.Context, secret string) (*TickResult, error) {
	if err := s.Authorize(secret); err != nil {
		return nil, err
	}

	due, err := s.store.DueSessions(ctx, time.Now())
	if err != nil {
		return nil, sessions.Wrap(nil, "scheduler tick", "query due sessions", err)
	}

	result := &TickResult{Due: len(due)}
	for _, session := range due {
		if s.manager.Signals().HasLock(session.ID) {
			result.Skipped = append(result.Skipped, session.ID)
			s.logger.Debug("tick skipping locked session", logging.SessionID(session.ID))
			continue
		}
		if _, err := s.manager.Start(ctx, session.ID); err != nil {
			result.Failed = append(result.Failed, session.ID)
			s.logger.Error("tick failed to start session", logging.SessionID(session.ID), logging.Error(err))
			continue
		}
		result.Started = append(result.Started, session.ID)
	}

	if result.Due > 0 {
		s.logger.Info("scheduler tick",
			logging.Int("due", result.Due),
			logging.Int("started", len(result.Started)),
			logging.Int("skipped", len(result.Skipped)),
			logging.Int("failed", len(result.Failed)))
	}
	return result, nil
}

// ReapResult summarizes one retention sweep.
type ReapResult struct {
	Skipped           bool    `json:"skipped"`
	RetentionDisabled bool    `json:"retention_disabled"`
	Purged            []int64 `json:"purged"`
	FilesRemoved      int     `json:"files_removed"`
}

// Reap purges terminal sessions older than the retention window. Sweeps
// self-throttle to at most one per hour using the cleanup marker's mtime,
// guarded by a file lock so concurrent callers cannot race the check.
func (s *Service) Reap(ctx context.Context, secret string) (*ReapResult, error) {
	if err := s.Authorize(secret); err != nil {
		return nil, err
	}

	guard := flock.New(filepath.Join(s.cfg.Paths.DataDir, "reaper.lock"))
	locked, err := guard.TryLock()
	if err != nil {
		return nil, sessions.Wrap(nil, "retention reap", "acquire reaper lock", err)
	}
	if !locked {
		return &ReapResult{Skipped: true}, nil
	}
	defer func() { _ = guard.Unlock() }()

	marker := filepath.Join(s.cfg.Paths.DataDir, "last_cleanup")
	if info, err := os.Stat(marker); err == nil {
		if time.Since(info.ModTime()) < reapThrottle {
			return &ReapResult{Skipped: true}, nil
		}
	}

	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.RetentionEnabled() {
		s.logger.Info("retention disabled; reap is a no-op")
		return &ReapResult{RetentionDisabled: true}, nil
	}

	cutoff := time.Now().Add(-time.Duration(settings.AudioRetentionDays) * 24 * time.Hour)
	expired, err := s.store.ExpiredSessions(ctx, cutoff)
	if err != nil {
		return nil, sessions.Wrap(nil, "retention reap", "query expired sessions", err)
	}

	result := &ReapResult{}
	for _, session := range expired {
		deleted, err := s.manager.Delete(ctx, session.ID)
		if err != nil {
			s.logger.Error("reap failed to purge session", logging.SessionID(session.ID), logging.Error(err))
			continue
		}
		result.Purged = append(result.Purged, session.ID)
		result.FilesRemoved += deleted.FilesRemoved
	}

	if err := s.touchMarker(marker); err != nil {
		s.logger.Warn("update cleanup marker", logging.Error(err))
	}

	s.logger.Info("retention reap",
		logging.Int("expired", len(expired)),
		logging.Int("purged", len(result.Purged)),
		logging.Int("files_removed", result.FilesRemoved))
	return result, nil
}

func (s *Service) touchMarker(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	now := time.Now()
	return os.Chtimes(path, now, now)
}
