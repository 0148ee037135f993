package sessions

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a recording session.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusRecording  Status = "recording"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusStopped    Status = "stopped"
	StatusError      Status = "error"
)

var allStatuses = []Status{
	StatusScheduled,
	StatusRecording,
	StatusProcessing,
	StatusComplete,
	StatusStopped,
	StatusError,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether the status is a resting state the retention
// reaper may purge from.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusComplete, StatusStopped, StatusError:
		return true
	default:
		return false
	}
}

// IsActive reports whether a worker may currently be running for the
// session.
func (s Status) IsActive() bool {
	return s == StatusRecording || s == StatusProcessing
}

// Editable reports whether a full parameter edit is permitted. Active
// sessions must be signaled before they can be touched.
func (s Status) Editable() bool {
	return s == StatusScheduled || s.IsTerminal()
}

// AcquisitionMode selects how audio is captured for a session.
type AcquisitionMode string

const (
	// ModeDirectStream pulls the stream URL straight into ffmpeg; the
	// unprivileged daemon can launch it.
	ModeDirectStream AcquisitionMode = "direct_stream"
	// ModeBrowserAutomation drives a containerized browser and needs the
	// privileged cron wrapper to launch it.
	ModeBrowserAutomation AcquisitionMode = "browser_automation"
)

// ParseAcquisitionMode validates a mode string; empty means inherit.
func ParseAcquisitionMode(value string) (AcquisitionMode, bool) {
	normalized := AcquisitionMode(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case "", ModeDirectStream, ModeBrowserAutomation:
		return normalized, true
	default:
		return "", false
	}
}

// Session is one scheduled or executed recording-and-transcription job.
// Override fields are nil/empty when the session inherits the global
// settings value.
type Session struct {
	ID             int64     `json:"session_id"`
	AuctionName    string    `json:"auction_name"`
	AuctionURL     string    `json:"auction_url"`
	ScheduledStart time.Time `json:"scheduled_start"`

	OverrideSegmentLength   *int            `json:"override_segment_length,omitempty"`
	OverrideSilenceTimeout  *int            `json:"override_silence_timeout,omitempty"`
	OverrideMaxDuration     *int            `json:"override_max_duration,omitempty"`
	OverrideCPULimit        *int            `json:"override_cpu_limit,omitempty"`
	OverrideAcquisitionMode AcquisitionMode `json:"override_acquisition_mode,omitempty"`

	Status      Status     `json:"status"`
	StopReason  string     `json:"stop_reason,omitempty"`
	ActualStart *time.Time `json:"actual_start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	SessionDir  string     `json:"session_dir,omitempty"`

	TotalSegments    int   `json:"total_segments"`
	TotalDurationSec int64 `json:"total_duration_sec"`

	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Segment recording/transcription sub-states, owned by the worker.
const (
	SegRecordingPending  = "pending"
	SegRecordingActive   = "recording"
	SegRecordingComplete = "complete"

	SegTranscriptionPending  = "pending"
	SegTranscriptionActive   = "transcribing"
	SegTranscriptionComplete = "complete"
)

// Segment is one captured audio chunk plus its transcription sub-state.
// Rows are written by the external worker; the orchestrator only reads.
type Segment struct {
	ID                  int64      `json:"segment_id"`
	SessionID           int64      `json:"session_id"`
	Number              int        `json:"segment_number"`
	AudioFile           string     `json:"filename_audio,omitempty"`
	TranscriptFile      string     `json:"filename_transcript,omitempty"`
	RecordingStatus     string     `json:"recording_status"`
	TranscriptionStatus string     `json:"transcription_status"`
	DurationSec         int64      `json:"duration_seconds"`
	SizeBytes           int64      `json:"file_size_bytes"`
	StartedAt           *time.Time `json:"started_at,omitempty"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
}

// LogEntry is an append-only event record scoped to a session, written by
// both the orchestrator and the worker.
type LogEntry struct {
	ID        int64     `json:"log_id"`
	SessionID int64     `json:"session_id"`
	Level     string    `json:"log_level"`
	EventType string    `json:"event_type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// SegmentSummary aggregates segment state for status polling.
type SegmentSummary struct {
	Total                 int   `json:"total"`
	RecordingComplete     int   `json:"recording_complete"`
	RecordingActive       int   `json:"recording_active"`
	TranscriptionComplete int   `json:"transcription_complete"`
	TranscriptionActive   int   `json:"transcription_active"`
	TranscriptionPending  int   `json:"transcription_pending"`
	TotalDurationSec      int64 `json:"total_duration_sec"`
	TotalSizeBytes        int64 `json:"total_size_bytes"`
}
