package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofrs/flock"

	"cardgraph/internal/config"
	"cardgraph/internal/lifecycle"
	"cardgraph/internal/logging"
	"cardgraph/internal/scheduler"
	"cardgraph/internal/sessions"
	"cardgraph/internal/status"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *sessions.Store
	manager    *lifecycle.Manager
	sched      *scheduler.Service
	aggregator *status.Aggregator

	lockPath string
	lock     *flock.Flock

	cron gocron.Scheduler
	api  *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *sessions.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	manager, err := lifecycle.NewManager(cfg, store, logger)
	if err != nil {
		return nil, err
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "cardgraph.lock")
	d := &Daemon{
		cfg:        cfg,
		logger:     logging.WithComponent(logger, "daemon"),
		store:      store,
		manager:    manager,
		sched:      scheduler.NewService(cfg, store, manager, logger),
		aggregator: status.NewAggregator(store, manager),
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}

	d.api, err = newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Manager exposes the lifecycle manager for the CLI's local mode.
func (d *Daemon) Manager() *lifecycle.Manager {
	return d.manager
}

// Start acquires the daemon lock, schedules the periodic jobs, and serves
// the API until the context is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !ok {
		return errors.New("another cardgraph daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.startCron(runCtx); err != nil {
		d.releaseLock()
		cancel()
		return err
	}

	if d.api != nil {
		if err := d.api.start(runCtx); err != nil {
			d.stopCron()
			d.releaseLock()
			cancel()
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts the scheduler jobs and API server and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.api != nil {
		d.api.stop()
	}
	d.stopCron()
	d.releaseLock()
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the API listen address once serving, for tests that bind
// to an ephemeral port.
func (d *Daemon) Addr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

func (d *Daemon) startCron(ctx context.Context) error {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	tickEvery := time.Duration(d.cfg.Scheduler.TickIntervalSeconds) * time.Second
	if _, err := cron.NewJob(
		gocron.DurationJob(tickEvery),
		gocron.NewTask(func() {
			if _, err := d.sched.Tick(ctx, d.cfg.Scheduler.Secret); err != nil {
				d.logger.Error("scheduler tick failed", logging.Error(err))
			}
		}),
		gocron.WithName("session-tick"),
	); err != nil {
		return fmt.Errorf("schedule tick job: %w", err)
	}

	cleanupEvery := time.Duration(d.cfg.Scheduler.CleanupIntervalMins) * time.Minute
	if _, err := cron.NewJob(
		gocron.DurationJob(cleanupEvery),
		gocron.NewTask(func() {
			if _, err := d.sched.Reap(ctx, d.cfg.Scheduler.Secret); err != nil {
				d.logger.Error("retention reap failed", logging.Error(err))
			}
		}),
		gocron.WithName("retention-reap"),
	); err != nil {
		return fmt.Errorf("schedule reap job: %w", err)
	}

	cron.Start()
	d.cron = cron
	return nil
}

func (d *Daemon) stopCron() {
	if d.cron == nil {
		return
	}
	if err := d.cron.Shutdown(); err != nil {
		d.logger.Warn("scheduler shutdown", logging.Error(err))
	}
	d.cron = nil
}

func (d *Daemon) releaseLock() {
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release daemon lock", logging.Error(err))
	}
}
