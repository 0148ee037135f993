// Package main hosts the cardgraph CLI entrypoint and command graph.
//
// The Cobra-based command tree covers session scheduling and lifecycle
// control, settings management, environment probes, scheduler passes, and
// configuration scaffolding, plus the serve command that runs the daemon.
// Commands operate directly on the shared session database and signal
// directory, so they work the same whether or not the daemon is up.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
