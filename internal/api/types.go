package api

import (
	"cardgraph/internal/envcheck"
	"cardgraph/internal/scheduler"
	"cardgraph/internal/sessions"
	"cardgraph/internal/status"
)

// SessionRequest is the create/update payload for a session. Zero-valued
// override fields inherit the global settings.
type SessionRequest struct {
	AuctionName    string `json:"auction_name"`
	AuctionURL     string `json:"auction_url"`
	ScheduledStart string `json:"scheduled_start"`

	OverrideSegmentLength  *int   `json:"override_segment_length,omitempty"`
	OverrideSilenceTimeout *int   `json:"override_silence_timeout,omitempty"`
	OverrideMaxDuration    *int   `json:"override_max_duration,omitempty"`
	OverrideCPULimit       *int   `json:"override_cpu_limit,omitempty"`
	OverrideAcquisition    string `json:"override_acquisition_mode,omitempty"`

	CreatedBy string `json:"created_by,omitempty"`
}

// SessionResponse wraps a single session.
type SessionResponse struct {
	Session *sessions.Session `json:"session"`
}

// SessionListResponse wraps a session page plus the total matching count.
type SessionListResponse struct {
	Sessions []*sessions.Session `json:"sessions"`
	Total    int                 `json:"total"`
}

// DeleteResponse reports what a session delete removed.
type DeleteResponse struct {
	FilesRemoved int `json:"files_removed"`
}

// LogsResponse wraps a session's event log tail.
type LogsResponse struct {
	Logs []*sessions.LogEntry `json:"logs"`
}

// SettingsResponse wraps the global settings row.
type SettingsResponse struct {
	Settings *sessions.Settings `json:"settings"`
}

// StatusResponse wraps a session progress snapshot.
type StatusResponse struct {
	Status *status.Snapshot `json:"status"`
}

// OverviewResponse is the dashboard landing payload.
type OverviewResponse struct {
	Overview *status.Overview `json:"overview"`
	PID      int              `json:"pid"`
	DBPath   string           `json:"db_path"`
}

// EnvCheckResponse wraps the environment report.
type EnvCheckResponse struct {
	Report  *envcheck.Report `json:"report"`
	Healthy bool             `json:"healthy"`
}

// TickRequest carries the shared scheduler secret.
type TickRequest struct {
	Key string `json:"key"`
}

// TickResponse wraps one scheduler pass.
type TickResponse struct {
	Result *scheduler.TickResult `json:"result"`
}

// ReapResponse wraps one retention sweep.
type ReapResponse struct {
	Result *scheduler.ReapResult `json:"result"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
