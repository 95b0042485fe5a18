// Package cli provides shared helpers for the medscrub command line: typed
// command errors, signal-aware contexts, record progress reporting and
// output formatting.
package cli
