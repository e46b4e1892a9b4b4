// Package logging assembles structured slog loggers and formatting helpers used
// across plexctl.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so transcode code can tag log lines with
// session identifiers and request routes. The package also provides a no-op
// logger for tests and library callers that do not supply one.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// the same field names as the rest of the system.
package logging
