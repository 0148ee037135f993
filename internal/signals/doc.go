// Package signals implements the marker-file protocol shared with the
// privileged worker wrapper. Lock files gate one worker per session, signal
// files request stop or cancel, and request files ask the privileged side
// to launch a browser-automation capture. All markers live in a single
// directory both sides can reach.
package signals
