// Package lifecycle drives recording sessions through their state machine.
// It owns every transition the orchestrator initiates; the external worker
// owns the recording → processing → terminal transitions and reports them
// through the shared database.
package lifecycle
