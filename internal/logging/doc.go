// Package logging builds the slog loggers used across the daemon and CLI
// and defines the shared attribute vocabulary for job workflow events.
package logging
