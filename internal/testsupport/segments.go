package testsupport

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"cardgraph/internal/sessions"
)

// SegmentSeed describes a worker-written segment row for tests. The
// orchestrator itself never inserts segments, so tests emulate the worker
// through a direct database write.
type SegmentSeed struct {
	SessionID           int64
	Number              int
	RecordingStatus     string
	TranscriptionStatus string
	DurationSec         int64
	SizeBytes           int64
	StartedAt           *time.Time
	CompletedAt         *time.Time
}

// SeedSegment inserts a segment row the way the external worker would.
func SeedSegment(t testing.TB, store *sessions.Store, seed SegmentSeed) {
	t.Helper()

	db, err := sql.Open("sqlite", store.Path())
	if err != nil {
		t.Fatalf("open db for segment seed: %v", err)
	}
	defer db.Close()

	if seed.RecordingStatus == "" {
		seed.RecordingStatus = sessions.SegRecordingPending
	}
	if seed.TranscriptionStatus == "" {
		seed.TranscriptionStatus = sessions.SegTranscriptionPending
	}

	_, err = db.Exec(
		`INSERT INTO segments (
            session_id, segment_number, recording_status, transcription_status,
            duration_seconds, file_size_bytes, started_at, completed_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		seed.SessionID,
		seed.Number,
		seed.RecordingStatus,
		seed.TranscriptionStatus,
		seed.DurationSec,
		seed.SizeBytes,
		formatTime(seed.StartedAt),
		formatTime(seed.CompletedAt),
	)
	if err != nil {
		t.Fatalf("seed segment: %v", err)
	}
}

func formatTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}
