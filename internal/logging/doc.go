// Package logging builds the slog loggers used across cardgraph.
//
// It offers a human-oriented console handler and a JSON handler, selected by
// configuration, plus typed attribute helpers so call sites stay terse.
// Per-session lifecycle events are not handled here: those go to the SQLite
// logs table, which is the contract shared with the external workers.
package logging
