// Package sessions persists recording sessions, their segments and event
// logs, and the single-row global settings record in SQLite.
//
// The store is the single source of truth for session status. The external
// capture/transcription workers write segment rows and operational log
// entries into the same database; status transitions themselves belong to
// the lifecycle controller. The package also defines the error taxonomy the
// rest of the orchestrator classifies failures with.
package sessions
