package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SegmentsBySession returns all segments for a session in segment order.
// The worker owns segment rows; the orchestrator only reads them.
func (s *Store) SegmentsBySession(ctx context.Context, sessionID int64) ([]*Segment, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT segment_id, session_id, segment_number, filename_audio,
                filename_transcript, recording_status, transcription_status,
                duration_seconds, file_size_bytes, started_at, completed_at
         FROM segments WHERE session_id = ? ORDER BY segment_number ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	var out []*Segment
	for rows.Next() {
		var (
			segment      Segment
			audio        sql.NullString
			transcript   sql.NullString
			startedRaw   sql.NullString
			completedRaw sql.NullString
		)
		if err := rows.Scan(
			&segment.ID,
			&segment.SessionID,
			&segment.Number,
			&audio,
			&transcript,
			&segment.RecordingStatus,
			&segment.TranscriptionStatus,
			&segment.DurationSec,
			&segment.SizeBytes,
			&startedRaw,
			&completedRaw,
		); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		segment.AudioFile = audio.String
		segment.TranscriptFile = transcript.String
		if startedRaw.Valid {
			if started, err := parseTimeString(startedRaw.String); err == nil {
				segment.StartedAt = &started
			}
		}
		if completedRaw.Valid {
			if completed, err := parseTimeString(completedRaw.String); err == nil {
				segment.CompletedAt = &completed
			}
		}
		out = append(out, &segment)
	}
	return out, rows.Err()
}

// SummarizeSegments aggregates segment progress counters for a session.
func (s *Store) SummarizeSegments(ctx context.Context, sessionID int64) (*SegmentSummary, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1),
                COALESCE(SUM(recording_status = ?), 0),
                COALESCE(SUM(recording_status = ?), 0),
                COALESCE(SUM(transcription_status = ?), 0),
                COALESCE(SUM(transcription_status = ?), 0),
                COALESCE(SUM(transcription_status = ?), 0),
                COALESCE(SUM(duration_seconds), 0),
                COALESCE(SUM(file_size_bytes), 0)
         FROM segments WHERE session_id = ?`,
		SegRecordingComplete,
		SegRecordingActive,
		SegTranscriptionComplete,
		SegTranscriptionActive,
		SegTranscriptionPending,
		sessionID,
	)

	var summary SegmentSummary
	if err := row.Scan(
		&summary.Total,
		&summary.RecordingComplete,
		&summary.RecordingActive,
		&summary.TranscriptionComplete,
		&summary.TranscriptionActive,
		&summary.TranscriptionPending,
		&summary.TotalDurationSec,
		&summary.TotalSizeBytes,
	); err != nil {
		return nil, fmt.Errorf("summarize segments: %w", err)
	}
	return &summary, nil
}

// ActiveSegmentStart returns the start time of the segment currently
// recording, or nil when no segment is active.
func (s *Store) ActiveSegmentStart(ctx context.Context, sessionID int64) (*time.Time, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT started_at FROM segments
         WHERE session_id = ? AND recording_status = ?
         ORDER BY segment_number DESC LIMIT 1`,
		sessionID,
		SegRecordingActive,
	)

	var raw sql.NullString
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("active segment start: %w", err)
	}
	if !raw.Valid {
		return nil, nil
	}
	started, err := parseTimeString(raw.String)
	if err != nil {
		return nil, nil
	}
	return &started, nil
}

// AppendLog records an event against a session.
func (s *Store) AppendLog(ctx context.Context, sessionID int64, level, eventType, message string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO logs (session_id, log_level, event_type, message, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		sessionID,
		level,
		eventType,
		message,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}

// LogsBySession returns the most recent log entries for a session, newest
// first, bounded by limit when positive.
func (s *Store) LogsBySession(ctx context.Context, sessionID int64, limit int) ([]*LogEntry, error) {
	query := `SELECT log_id, session_id, log_level, event_type, message, created_at
              FROM logs WHERE session_id = ? ORDER BY created_at DESC, log_id DESC`
	args := []any{sessionID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	var out []*LogEntry
	for rows.Next() {
		var (
			entry      LogEntry
			createdRaw string
		)
		if err := rows.Scan(&entry.ID, &entry.SessionID, &entry.Level, &entry.EventType, &entry.Message, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		if created, err := parseTimeString(createdRaw); err == nil {
			entry.CreatedAt = created
		}
		out = append(out, &entry)
	}
	return out, rows.Err()
}

// CountByStatus returns session counts keyed by status for dashboard
// summaries.
func (s *Store) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM sessions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int, len(allStatuses))
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[Status(status)] = count
	}
	return counts, rows.Err()
}
