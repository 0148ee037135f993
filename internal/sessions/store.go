package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"cardgraph/internal/config"
)

// Store manages session persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the session database and verifies the
// schema version.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "cardgraph.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// CreateSession inserts a new session in scheduled status and returns the
// stored row.
func (s *Store) CreateSession(ctx context.Context, session *Session) (*Session, error) {
	if session == nil {
		return nil, errors.New("session is nil")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sessions (
            auction_name, auction_url, scheduled_start,
            override_segment_length, override_silence_timeout,
            override_max_duration, override_cpu_limit, override_acquisition_mode,
            status, created_by, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.AuctionName,
		session.AuctionURL,
		session.ScheduledStart.UTC().Format(time.RFC3339Nano),
		nullableInt(session.OverrideSegmentLength),
		nullableInt(session.OverrideSilenceTimeout),
		nullableInt(session.OverrideMaxDuration),
		nullableInt(session.OverrideCPULimit),
		nullableString(string(session.OverrideAcquisitionMode)),
		StatusScheduled,
		nullableString(session.CreatedBy),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetSession(ctx, id)
}

// GetSession fetches a session by identifier; nil when absent.
func (s *Store) GetSession(ctx context.Context, id int64) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE session_id = ?`, id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// UpdateSession persists changes to an existing session.
func (s *Store) UpdateSession(ctx context.Context, session *Session) error {
	if session == nil {
		return errors.New("session is nil")
	}
	session.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE sessions
         SET auction_name = ?, auction_url = ?, scheduled_start = ?,
             override_segment_length = ?, override_silence_timeout = ?,
             override_max_duration = ?, override_cpu_limit = ?,
             override_acquisition_mode = ?, status = ?, stop_reason = ?,
             actual_start_time = ?, end_time = ?, session_dir = ?,
             total_segments = ?, total_duration_sec = ?, updated_at = ?
         WHERE session_id = ?`,
		session.AuctionName,
		session.AuctionURL,
		session.ScheduledStart.UTC().Format(time.RFC3339Nano),
		nullableInt(session.OverrideSegmentLength),
		nullableInt(session.OverrideSilenceTimeout),
		nullableInt(session.OverrideMaxDuration),
		nullableInt(session.OverrideCPULimit),
		nullableString(string(session.OverrideAcquisitionMode)),
		session.Status,
		nullableString(session.StopReason),
		nullableTime(session.ActualStart),
		nullableTime(session.EndTime),
		nullableString(session.SessionDir),
		session.TotalSegments,
		session.TotalDurationSec,
		session.UpdatedAt.Format(time.RFC3339Nano),
		session.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// DeleteSession removes a session together with its segments and logs in a
// single transaction. It reports whether a session row existed.
func (s *Store) DeleteSession(ctx context.Context, id int64) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM segments WHERE session_id = ?`, id); err != nil {
		return false, fmt.Errorf("delete segments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM logs WHERE session_id = ?`, id); err != nil {
		return false, fmt.Errorf("delete logs: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete: %w", err)
	}
	return affected > 0, nil
}

// ListFilter narrows and pages ListSessions results.
type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}

// ListSessions returns sessions newest scheduled start first, plus the
// total count matching the filter.
func (s *Store) ListSessions(ctx context.Context, filter ListFilter) ([]*Session, int, error) {
	where := ""
	args := []any{}
	if filter.Status != "" {
		where = ` WHERE status = ?`
		args = append(args, filter.Status)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM sessions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions` + where + ` ORDER BY scheduled_start DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, session)
	}
	return out, total, rows.Err()
}

// DueSessions returns scheduled sessions whose start time has passed,
// oldest scheduled start first.
func (s *Store) DueSessions(ctx context.Context, now time.Time) ([]*Session, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+sessionColumns+` FROM sessions
         WHERE status = ? AND scheduled_start <= ?
         ORDER BY scheduled_start ASC`,
		StatusScheduled,
		now.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("query due sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

// ExpiredSessions returns terminal sessions whose end time predates the
// cutoff; candidates for retention purging.
func (s *Store) ExpiredSessions(ctx context.Context, cutoff time.Time) ([]*Session, error) {
	terminal := []Status{StatusComplete, StatusStopped, StatusError}
	args := make([]any, 0, len(terminal)+1)
	for _, status := range terminal {
		args = append(args, status)
	}
	args = append(args, cutoff.UTC().Format(time.RFC3339Nano))

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+sessionColumns+` FROM sessions
         WHERE status IN (`+placeholderList(len(terminal))+`) AND end_time IS NOT NULL AND end_time < ?
         ORDER BY end_time ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query expired sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

const sessionColumns = "session_id, auction_name, auction_url, scheduled_start, " +
	"override_segment_length, override_silence_timeout, override_max_duration, " +
	"override_cpu_limit, override_acquisition_mode, status, stop_reason, " +
	"actual_start_time, end_time, session_dir, total_segments, total_duration_sec, " +
	"created_by, created_at, updated_at"

func scanSession(scanner interface{ Scan(dest ...any) error }) (*Session, error) {
	var (
		id             int64
		auctionName    string
		auctionURL     string
		scheduledRaw   string
		segLen         sql.NullInt64
		silenceTimeout sql.NullInt64
		maxDuration    sql.NullInt64
		cpuLimit       sql.NullInt64
		acqMode        sql.NullString
		statusStr      string
		stopReason     sql.NullString
		actualStartRaw sql.NullString
		endTimeRaw     sql.NullString
		sessionDir     sql.NullString
		totalSegments  int
		totalDuration  int64
		createdBy      sql.NullString
		createdRaw     string
		updatedRaw     string
	)

	if err := scanner.Scan(
		&id,
		&auctionName,
		&auctionURL,
		&scheduledRaw,
		&segLen,
		&silenceTimeout,
		&maxDuration,
		&cpuLimit,
		&acqMode,
		&statusStr,
		&stopReason,
		&actualStartRaw,
		&endTimeRaw,
		&sessionDir,
		&totalSegments,
		&totalDuration,
		&createdBy,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	session := &Session{
		ID:                      id,
		AuctionName:             auctionName,
		AuctionURL:              auctionURL,
		OverrideSegmentLength:   intPtr(segLen),
		OverrideSilenceTimeout:  intPtr(silenceTimeout),
		OverrideMaxDuration:     intPtr(maxDuration),
		OverrideCPULimit:        intPtr(cpuLimit),
		OverrideAcquisitionMode: AcquisitionMode(acqMode.String),
		Status:                  Status(statusStr),
		StopReason:              stopReason.String,
		SessionDir:              sessionDir.String,
		TotalSegments:           totalSegments,
		TotalDurationSec:        totalDuration,
		CreatedBy:               createdBy.String,
	}

	if scheduled, err := parseTimeString(scheduledRaw); err == nil {
		session.ScheduledStart = scheduled
	}
	if actualStartRaw.Valid {
		if start, err := parseTimeString(actualStartRaw.String); err == nil {
			session.ActualStart = &start
		}
	}
	if endTimeRaw.Valid {
		if end, err := parseTimeString(endTimeRaw.String); err == nil {
			session.EndTime = &end
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		session.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		session.UpdatedAt = updated
	}
	return session, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func intPtr(value sql.NullInt64) *int {
	if !value.Valid {
		return nil
	}
	v := int(value.Int64)
	return &v
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func placeholderList(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}
