// Package status assembles the polling snapshot the dashboard renders for
// a session: lifecycle state, segment progress, and timing derived from
// the worker-maintained rows.
package status

import (
	"context"
	"time"

	"cardgraph/internal/lifecycle"
	"cardgraph/internal/sessions"
	"cardgraph/internal/signals"
)

// Snapshot is one coherent view of a session's progress.
type Snapshot struct {
	Session  *sessions.Session        `json:"session"`
	Segments *sessions.SegmentSummary `json:"segments"`

	// WorkerActive reports whether a worker lock is currently held.
	WorkerActive bool `json:"worker_active"`

	// ElapsedSec is time since the actual start for running sessions and
	// the recorded total for finished ones.
	ElapsedSec int64 `json:"elapsed_sec"`

	// SegmentLengthMinutes is the effective segment length after applying
	// any session override.
	SegmentLengthMinutes int `json:"segment_length_minutes"`

	// CurrentSegmentStart is when the segment now recording began, when
	// one is active.
	CurrentSegmentStart *time.Time `json:"current_segment_start,omitempty"`
}

// Aggregator builds snapshots from the store and signal directory.
type Aggregator struct {
	store   *sessions.Store
	manager *lifecycle.Manager
	markers *signals.Dir
}

// NewAggregator wires a status aggregator.
func NewAggregator(store *sessions.Store, manager *lifecycle.Manager) *Aggregator {
	return &Aggregator{
		store:   store,
		manager: manager,
		markers: manager.Signals(),
	}
}

// Snapshot returns the current view of a session, or a not-found error.
func (a *Aggregator) Snapshot(ctx context.Context, id int64) (*Snapshot, error) {
	session, err := a.manager.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	summary, err := a.store.SummarizeSegments(ctx, id)
	if err != nil {
		return nil, sessions.Wrap(nil, "status snapshot", "summarize segments", err)
	}

	settings, err := a.store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Session:              session,
		Segments:             summary,
		WorkerActive:         a.markers.HasLock(id),
		SegmentLengthMinutes: settings.EffectiveSegmentLength(session),
	}

	switch {
	case session.Status.IsActive() && session.ActualStart != nil:
		snap.ElapsedSec = int64(time.Since(*session.ActualStart).Seconds())
	case session.ActualStart != nil && session.EndTime != nil:
		snap.ElapsedSec = int64(session.EndTime.Sub(*session.ActualStart).Seconds())
	}

	if session.Status == sessions.StatusRecording {
		start, err := a.store.ActiveSegmentStart(ctx, id)
		if err != nil {
			return nil, sessions.Wrap(nil, "status snapshot", "active segment", err)
		}
		snap.CurrentSegmentStart = start
	}

	return snap, nil
}

// Overview summarizes the whole queue for the dashboard landing view.
type Overview struct {
	Counts map[sessions.Status]int `json:"counts"`
	Active []*sessions.Session     `json:"active"`
}

// Overview returns per-status counts plus the currently active sessions.
func (a *Aggregator) Overview(ctx context.Context) (*Overview, error) {
	counts, err := a.store.CountByStatus(ctx)
	if err != nil {
		return nil, sessions.Wrap(nil, "status overview", "count sessions", err)
	}

	overview := &Overview{Counts: counts}
	for _, status := range []sessions.Status{sessions.StatusRecording, sessions.StatusProcessing} {
		items, _, err := a.store.ListSessions(ctx, sessions.ListFilter{Status: status})
		if err != nil {
			return nil, sessions.Wrap(nil, "status overview", "list active sessions", err)
		}
		overview.Active = append(overview.Active, items...)
	}
	return overview, nil
}
