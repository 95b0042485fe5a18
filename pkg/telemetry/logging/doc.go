// Package logging provides structured slog-based logging for batch runs.
// Each batch tees its log stream to a timestamped file under the configured
// log directory, so every run leaves a standalone log artifact next to its
// audit record.
package logging
