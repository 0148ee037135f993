// Package config loads, normalizes, and validates cardgraph configuration
// data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CARDGRAPH_API_TOKEN. The Config type centralizes every knob the daemon and
// CLI need: database and signal directories, worker script locations, API
// bind/token, and the scheduler shared secret.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
