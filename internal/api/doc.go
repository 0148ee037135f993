// Package api defines the wire payloads shared by the HTTP server and the
// CLI, plus the conversions between payloads and domain types.
package api
