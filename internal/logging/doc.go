// Package logging builds the slog loggers used across the daemon and CLI,
// including the console and JSON handlers and the shared structured field
// conventions.
package logging
