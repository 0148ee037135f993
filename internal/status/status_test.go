package status_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cardgraph/internal/lifecycle"
	"cardgraph/internal/sessions"
	"cardgraph/internal/status"
	"cardgraph/internal/testsupport"
)

type fixture struct {
	store      *sessions.Store
	manager    *lifecycle.Manager
	aggregator *status.Aggregator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	manager, err := lifecycle.NewManager(cfg, store, nil)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return &fixture{
		store:      store,
		manager:    manager,
		aggregator: status.NewAggregator(store, manager),
	}
}

func (fx *fixture) create(t *testing.T, name string) *sessions.Session {
	t.Helper()
	created, err := fx.manager.Create(context.Background(), lifecycle.CreateRequest{
		AuctionName:    name,
		AuctionURL:     "https://auctions.example.com/" + name,
		ScheduledStart: time.Now(),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return created
}

func TestSnapshotMissingSession(t *testing.T) {
	fx := newFixture(t)
	if _, err := fx.aggregator.Snapshot(context.Background(), 123); !errors.Is(err, sessions.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSnapshotAggregatesSegments(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	session := fx.create(t, "progress")
	started := time.Now().Add(-30 * time.Minute).UTC()
	session.Status = sessions.StatusRecording
	session.ActualStart = &started
	if err := fx.store.UpdateSession(ctx, session); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}

	segStart := time.Now().Add(-5 * time.Minute).UTC()
	testsupport.SeedSegment(t, fx.store, testsupport.SegmentSeed{
		SessionID:           session.ID,
		Number:              1,
		RecordingStatus:     sessions.SegRecordingComplete,
		TranscriptionStatus: sessions.SegTranscriptionComplete,
		DurationSec:         900,
		SizeBytes:           28_800_000,
	})
	testsupport.SeedSegment(t, fx.store, testsupport.SegmentSeed{
		SessionID:       session.ID,
		Number:          2,
		RecordingStatus: sessions.SegRecordingActive,
		StartedAt:       &segStart,
	})

	snap, err := fx.aggregator.Snapshot(ctx, session.ID)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.Segments.Total != 2 {
		t.Fatalf("expected 2 segments, got %d", snap.Segments.Total)
	}
	if snap.Segments.RecordingComplete != 1 || snap.Segments.RecordingActive != 1 {
		t.Fatalf("unexpected recording counters: %#v", snap.Segments)
	}
	if snap.Segments.TranscriptionComplete != 1 || snap.Segments.TranscriptionPending != 1 {
		t.Fatalf("unexpected transcription counters: %#v", snap.Segments)
	}
	if snap.Segments.TotalDurationSec != 900 {
		t.Fatalf("expected 900s of audio, got %d", snap.Segments.TotalDurationSec)
	}

	if snap.ElapsedSec < 29*60 || snap.ElapsedSec > 31*60 {
		t.Fatalf("implausible elapsed %d", snap.ElapsedSec)
	}
	if snap.CurrentSegmentStart == nil || !snap.CurrentSegmentStart.Equal(segStart) {
		t.Fatalf("unexpected current segment start %v", snap.CurrentSegmentStart)
	}
	if snap.SegmentLengthMinutes != 15 {
		t.Fatalf("expected default 15 minute segments, got %d", snap.SegmentLengthMinutes)
	}
}

func TestSnapshotUsesOverrideSegmentLength(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	segLen := 45
	created, err := fx.manager.Create(ctx, lifecycle.CreateRequest{
		AuctionName:           "long segments",
		AuctionURL:            "https://auctions.example.com/long",
		ScheduledStart:        time.Now(),
		OverrideSegmentLength: &segLen,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	snap, err := fx.aggregator.Snapshot(ctx, created.ID)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.SegmentLengthMinutes != 45 {
		t.Fatalf("expected override segment length, got %d", snap.SegmentLengthMinutes)
	}
}

func TestSnapshotFinishedSessionUsesRecordedWindow(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	session := fx.create(t, "finished")
	started := time.Now().Add(-2 * time.Hour).UTC()
	ended := started.Add(90 * time.Minute)
	session.Status = sessions.StatusComplete
	session.ActualStart = &started
	session.EndTime = &ended
	if err := fx.store.UpdateSession(ctx, session); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}

	snap, err := fx.aggregator.Snapshot(ctx, session.ID)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.ElapsedSec != int64(90*60) {
		t.Fatalf("expected 5400s elapsed, got %d", snap.ElapsedSec)
	}
	if snap.WorkerActive {
		t.Fatal("expected no active worker")
	}
	if snap.CurrentSegmentStart != nil {
		t.Fatal("finished sessions have no current segment")
	}
}

func TestOverviewCountsAndActive(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.create(t, "pending-one")
	fx.create(t, "pending-two")
	active := fx.create(t, "active")
	active.Status = sessions.StatusRecording
	if err := fx.store.UpdateSession(ctx, active); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}

	overview, err := fx.aggregator.Overview(ctx)
	if err != nil {
		t.Fatalf("Overview failed: %v", err)
	}
	if overview.Counts[sessions.StatusScheduled] != 2 || overview.Counts[sessions.StatusRecording] != 1 {
		t.Fatalf("unexpected counts: %#v", overview.Counts)
	}
	if len(overview.Active) != 1 || overview.Active[0].ID != active.ID {
		t.Fatalf("unexpected active list: %#v", overview.Active)
	}
}
