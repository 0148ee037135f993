package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Settings is the single global recording configuration row. Sessions may
// override a subset of these values individually.
type Settings struct {
	SegmentLengthMinutes  int             `json:"segment_length_minutes"`
	SampleRate            string          `json:"sample_rate"`
	AudioChannels         string          `json:"audio_channels"`
	AudioFormat           string          `json:"audio_format"`
	SilenceThresholdDBFS  int             `json:"silence_threshold_dbfs"`
	SilenceTimeoutMinutes int             `json:"silence_timeout_minutes"`
	MaxSessionHours       int             `json:"max_session_hours"`
	MaxCPUCores           int             `json:"max_cpu_cores"`
	WhisperModel          string          `json:"whisper_model"`
	PriorityMode          string          `json:"priority_mode"`
	BaseArchiveDir        string          `json:"base_archive_dir"`
	FolderStructure       string          `json:"folder_structure"`
	MinFreeDiskGB         int             `json:"min_free_disk_gb"`
	AcquisitionMode       AcquisitionMode `json:"acquisition_mode"`
	AudioRetentionDays    int             `json:"audio_retention_days"`
	UpdatedBy             string          `json:"updated_by,omitempty"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

type intRange struct {
	field string
	value int
	min   int
	max   int
}

var settingsEnums = map[string][]string{
	"sample_rate":      {"8000", "16000", "22050"},
	"audio_channels":   {"mono", "stereo"},
	"audio_format":     {"wav", "flac"},
	"whisper_model":    {"tiny", "base", "small", "medium", "large"},
	"priority_mode":    {"low", "normal"},
	"folder_structure": {"year-based", "flat"},
	"acquisition_mode": {string(ModeDirectStream), string(ModeBrowserAutomation)},
}

// Validate checks every field against its permitted range or enum. The
// returned error names the first offending field.
func (s *Settings) Validate() error {
	ranges := []intRange{
		{"segment_length_minutes", s.SegmentLengthMinutes, 5, 60},
		{"silence_threshold_dbfs", s.SilenceThresholdDBFS, -60, -30},
		{"silence_timeout_minutes", s.SilenceTimeoutMinutes, 1, 30},
		{"max_session_hours", s.MaxSessionHours, 1, 24},
		{"max_cpu_cores", s.MaxCPUCores, 1, 3},
		{"min_free_disk_gb", s.MinFreeDiskGB, 1, 50},
		{"audio_retention_days", s.AudioRetentionDays, 7, 365},
	}
	for _, r := range ranges {
		if r.value < r.min || r.value > r.max {
			return Wrap(ErrValidation, "settings",
				fmt.Sprintf("%s must be between %d and %d, got %d", r.field, r.min, r.max, r.value), nil)
		}
	}

	enums := []struct {
		field string
		value string
	}{
		{"sample_rate", s.SampleRate},
		{"audio_channels", s.AudioChannels},
		{"audio_format", s.AudioFormat},
		{"whisper_model", s.WhisperModel},
		{"priority_mode", s.PriorityMode},
		{"folder_structure", s.FolderStructure},
		{"acquisition_mode", string(s.AcquisitionMode)},
	}
	for _, check := range enums {
		field, value := check.field, check.value
		allowed := settingsEnums[field]
		found := false
		for _, candidate := range allowed {
			if value == candidate {
				found = true
				break
			}
		}
		if !found {
			return Wrap(ErrValidation, "settings",
				fmt.Sprintf("%s must be one of %s, got %q", field, strings.Join(allowed, ", "), value), nil)
		}
	}

	if strings.TrimSpace(s.BaseArchiveDir) == "" {
		return Wrap(ErrValidation, "settings", "base_archive_dir must not be empty", nil)
	}
	return nil
}

// RetentionEnabled reports whether automatic purging applies. A retention
// window under one day disables the reaper entirely.
func (s *Settings) RetentionEnabled() bool {
	return s.AudioRetentionDays >= 1
}

const settingsColumns = "segment_length_minutes, sample_rate, audio_channels, " +
	"audio_format, silence_threshold_dbfs, silence_timeout_minutes, " +
	"max_session_hours, max_cpu_cores, whisper_model, priority_mode, " +
	"base_archive_dir, folder_structure, min_free_disk_gb, acquisition_mode, " +
	"audio_retention_days, updated_by, updated_at"

// GetSettings loads the global settings row.
func (s *Store) GetSettings(ctx context.Context) (*Settings, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+settingsColumns+` FROM settings WHERE setting_id = 1`)

	var (
		settings   Settings
		mode       string
		updatedBy  sql.NullString
		updatedRaw string
	)
	if err := row.Scan(
		&settings.SegmentLengthMinutes,
		&settings.SampleRate,
		&settings.AudioChannels,
		&settings.AudioFormat,
		&settings.SilenceThresholdDBFS,
		&settings.SilenceTimeoutMinutes,
		&settings.MaxSessionHours,
		&settings.MaxCPUCores,
		&settings.WhisperModel,
		&settings.PriorityMode,
		&settings.BaseArchiveDir,
		&settings.FolderStructure,
		&settings.MinFreeDiskGB,
		&mode,
		&settings.AudioRetentionDays,
		&updatedBy,
		&updatedRaw,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, Wrap(ErrNotFound, "settings", "settings row missing", nil)
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}
	settings.AcquisitionMode = AcquisitionMode(mode)
	settings.UpdatedBy = updatedBy.String
	if updated, err := parseTimeString(updatedRaw); err == nil {
		settings.UpdatedAt = updated
	}
	return &settings, nil
}

// ReplaceSettings validates and writes the full settings row atomically.
func (s *Store) ReplaceSettings(ctx context.Context, settings *Settings) error {
	if settings == nil {
		return Wrap(ErrValidation, "settings", "settings payload is nil", nil)
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	settings.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE settings
         SET segment_length_minutes = ?, sample_rate = ?, audio_channels = ?,
             audio_format = ?, silence_threshold_dbfs = ?, silence_timeout_minutes = ?,
             max_session_hours = ?, max_cpu_cores = ?, whisper_model = ?,
             priority_mode = ?, base_archive_dir = ?, folder_structure = ?,
             min_free_disk_gb = ?, acquisition_mode = ?, audio_retention_days = ?,
             updated_by = ?, updated_at = ?
         WHERE setting_id = 1`,
		settings.SegmentLengthMinutes,
		settings.SampleRate,
		settings.AudioChannels,
		settings.AudioFormat,
		settings.SilenceThresholdDBFS,
		settings.SilenceTimeoutMinutes,
		settings.MaxSessionHours,
		settings.MaxCPUCores,
		settings.WhisperModel,
		settings.PriorityMode,
		settings.BaseArchiveDir,
		settings.FolderStructure,
		settings.MinFreeDiskGB,
		string(settings.AcquisitionMode),
		settings.AudioRetentionDays,
		nullableString(settings.UpdatedBy),
		settings.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

// EffectiveSegmentLength resolves the segment length for a session,
// preferring its override.
func (s *Settings) EffectiveSegmentLength(session *Session) int {
	if session != nil && session.OverrideSegmentLength != nil {
		return *session.OverrideSegmentLength
	}
	return s.SegmentLengthMinutes
}

// EffectiveMaxDuration resolves the maximum session duration in hours.
func (s *Settings) EffectiveMaxDuration(session *Session) int {
	if session != nil && session.OverrideMaxDuration != nil {
		return *session.OverrideMaxDuration
	}
	return s.MaxSessionHours
}

// EffectiveAcquisitionMode resolves the capture mode for a session.
func (s *Settings) EffectiveAcquisitionMode(session *Session) AcquisitionMode {
	if session != nil && session.OverrideAcquisitionMode != "" {
		return session.OverrideAcquisitionMode
	}
	return s.AcquisitionMode
}
