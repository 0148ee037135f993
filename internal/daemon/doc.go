// Package daemon hosts the long-running orchestrator process: the HTTP API
// the dashboard and cron wrapper call, the in-process scheduler jobs, and
// the single-instance lock.
package daemon
