// Package logging provides structured file-based logging with rotation.
//
// Logs are written as JSON lines to ~/.crosseverything/logs/core.log and
// rotated by size. The package wraps log/slog; callers use the standard
// slog API after Setup.
package logging
