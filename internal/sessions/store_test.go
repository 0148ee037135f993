package sessions_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"cardgraph/internal/sessions"
	"cardgraph/internal/testsupport"
)

func newSession(name string, start time.Time) *sessions.Session {
	return &sessions.Session{
		AuctionName:    name,
		AuctionURL:     "https://auctions.example.com/" + strings.ToLower(name),
		ScheduledStart: start,
		CreatedBy:      "tester",
	}
}

func TestCreateAndGetSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	start := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	created, err := store.CreateSession(ctx, newSession("Vintage Lot", start))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected session ID to be assigned")
	}
	if created.Status != sessions.StatusScheduled {
		t.Fatalf("expected scheduled status, got %s", created.Status)
	}
	if !created.ScheduledStart.Equal(start) {
		t.Fatalf("scheduled start mismatch: want %v got %v", start, created.ScheduledStart)
	}

	fetched, err := store.GetSession(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if fetched == nil || fetched.AuctionName != "Vintage Lot" {
		t.Fatalf("unexpected fetched session: %#v", fetched)
	}
	if fetched.OverrideSegmentLength != nil {
		t.Fatalf("expected no segment length override, got %v", *fetched.OverrideSegmentLength)
	}
}

func TestGetSessionMissingReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	fetched, err := store.GetSession(context.Background(), 9999)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if fetched != nil {
		t.Fatalf("expected nil for missing session, got %#v", fetched)
	}
}

func TestUpdateSessionRoundTripsOverrides(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	created, err := store.CreateSession(ctx, newSession("Override Run", time.Now().UTC()))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	segLen := 30
	cpu := 1
	now := time.Now().UTC().Truncate(time.Second)
	created.OverrideSegmentLength = &segLen
	created.OverrideCPULimit = &cpu
	created.OverrideAcquisitionMode = sessions.ModeBrowserAutomation
	created.Status = sessions.StatusStopped
	created.StopReason = "user_cancel"
	created.ActualStart = &now
	created.EndTime = &now
	created.SessionDir = "/tmp/archive/override-run"
	created.TotalSegments = 4
	created.TotalDurationSec = 3600

	if err := store.UpdateSession(ctx, created); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}

	fetched, err := store.GetSession(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if fetched.OverrideSegmentLength == nil || *fetched.OverrideSegmentLength != 30 {
		t.Fatalf("segment length override lost: %#v", fetched.OverrideSegmentLength)
	}
	if fetched.OverrideAcquisitionMode != sessions.ModeBrowserAutomation {
		t.Fatalf("acquisition override lost: %q", fetched.OverrideAcquisitionMode)
	}
	if fetched.Status != sessions.StatusStopped || fetched.StopReason != "user_cancel" {
		t.Fatalf("status round trip failed: %s / %s", fetched.Status, fetched.StopReason)
	}
	if fetched.ActualStart == nil || !fetched.ActualStart.Equal(now) {
		t.Fatalf("actual start mismatch: %v", fetched.ActualStart)
	}
	if fetched.TotalSegments != 4 || fetched.TotalDurationSec != 3600 {
		t.Fatalf("totals mismatch: %d / %d", fetched.TotalSegments, fetched.TotalDurationSec)
	}
}

func TestDeleteSessionCascadesAndReportsExistence(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	created, err := store.CreateSession(ctx, newSession("Doomed", time.Now().UTC()))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := store.AppendLog(ctx, created.ID, "info", "session_created", "created for deletion test"); err != nil {
		t.Fatalf("AppendLog failed: %v", err)
	}

	existed, err := store.DeleteSession(ctx, created.ID)
	if err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if !existed {
		t.Fatal("expected delete to report an existing row")
	}

	logsAfter, err := store.LogsBySession(ctx, created.ID, 0)
	if err != nil {
		t.Fatalf("LogsBySession failed: %v", err)
	}
	if len(logsAfter) != 0 {
		t.Fatalf("expected logs cascade, got %d entries", len(logsAfter))
	}

	existed, err = store.DeleteSession(ctx, created.ID)
	if err != nil {
		t.Fatalf("second DeleteSession failed: %v", err)
	}
	if existed {
		t.Fatal("expected second delete to report no row")
	}
}

func TestListSessionsFilterAndPaging(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		created, err := store.CreateSession(ctx, newSession(fmt.Sprintf("Lot %d", i), base.Add(time.Duration(i)*time.Hour)))
		if err != nil {
			t.Fatalf("CreateSession %d failed: %v", i, err)
		}
		if i%2 == 1 {
			created.Status = sessions.StatusComplete
			if err := store.UpdateSession(ctx, created); err != nil {
				t.Fatalf("UpdateSession %d failed: %v", i, err)
			}
		}
	}

	all, total, err := store.ListSessions(ctx, sessions.ListFilter{})
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if total != 5 || len(all) != 5 {
		t.Fatalf("expected 5 sessions, got total=%d len=%d", total, len(all))
	}
	if !all[0].ScheduledStart.After(all[4].ScheduledStart) {
		t.Fatal("expected newest scheduled start first")
	}

	completed, total, err := store.ListSessions(ctx, sessions.ListFilter{Status: sessions.StatusComplete})
	if err != nil {
		t.Fatalf("filtered ListSessions failed: %v", err)
	}
	if total != 2 || len(completed) != 2 {
		t.Fatalf("expected 2 completed sessions, got total=%d len=%d", total, len(completed))
	}

	paged, total, err := store.ListSessions(ctx, sessions.ListFilter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("paged ListSessions failed: %v", err)
	}
	if total != 5 || len(paged) != 2 {
		t.Fatalf("expected page of 2 with total 5, got total=%d len=%d", total, len(paged))
	}
}

func TestDueSessionsOrdersOldestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	now := time.Now().UTC()
	past1, err := store.CreateSession(ctx, newSession("Past One", now.Add(-2*time.Hour)))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	past2, err := store.CreateSession(ctx, newSession("Past Two", now.Add(-time.Hour)))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := store.CreateSession(ctx, newSession("Future", now.Add(time.Hour))); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	due, err := store.DueSessions(ctx, now)
	if err != nil {
		t.Fatalf("DueSessions failed: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("expected 2 due sessions, got %d", len(due))
	}
	if due[0].ID != past1.ID || due[1].ID != past2.ID {
		t.Fatalf("expected oldest first, got %d then %d", due[0].ID, due[1].ID)
	}
}

func TestExpiredSessionsOnlyTerminalPastCutoff(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	now := time.Now().UTC()
	old := now.Add(-48 * time.Hour)

	terminalOld, err := store.CreateSession(ctx, newSession("Terminal Old", old))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	terminalOld.Status = sessions.StatusComplete
	terminalOld.EndTime = &old
	if err := store.UpdateSession(ctx, terminalOld); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}

	activeOld, err := store.CreateSession(ctx, newSession("Active Old", old))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	activeOld.Status = sessions.StatusRecording
	activeOld.ActualStart = &old
	if err := store.UpdateSession(ctx, activeOld); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}

	terminalRecent, err := store.CreateSession(ctx, newSession("Terminal Recent", now))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	terminalRecent.Status = sessions.StatusStopped
	terminalRecent.EndTime = &now
	if err := store.UpdateSession(ctx, terminalRecent); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}

	expired, err := store.ExpiredSessions(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("ExpiredSessions failed: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != terminalOld.ID {
		t.Fatalf("expected only the old terminal session, got %#v", expired)
	}
}

func TestCountByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		created, err := store.CreateSession(ctx, newSession(fmt.Sprintf("Count %d", i), time.Now().UTC()))
		if err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		if i == 0 {
			created.Status = sessions.StatusError
			if err := store.UpdateSession(ctx, created); err != nil {
				t.Fatalf("UpdateSession failed: %v", err)
			}
		}
	}

	counts, err := store.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus failed: %v", err)
	}
	if counts[sessions.StatusScheduled] != 2 || counts[sessions.StatusError] != 1 {
		t.Fatalf("unexpected counts: %#v", counts)
	}
}

func TestLogsBySessionNewestFirstWithLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	created, err := store.CreateSession(ctx, newSession("Logged", time.Now().UTC()))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	for i := 0; i < 4; i++ {
		if err := store.AppendLog(ctx, created.ID, "info", "tick", fmt.Sprintf("event %d", i)); err != nil {
			t.Fatalf("AppendLog %d failed: %v", i, err)
		}
	}

	entries, err := store.LogsBySession(ctx, created.ID, 2)
	if err != nil {
		t.Fatalf("LogsBySession failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Message != "event 3" {
		t.Fatalf("expected newest entry first, got %q", entries[0].Message)
	}
}
