package batch

import (
	"meridian-hq/medscrub/pkg/anonymize/rewriter"
	"meridian-hq/medscrub/pkg/audit"
)

// State is the orchestrator's batch lifecycle state.
type State string

const (
	// StateInit is the state before input enumeration.
	StateInit State = "INIT"
	// StateProcessing is the per-record processing phase.
	StateProcessing State = "PROCESSING"
	// StateValidating is the batch-level validation phase.
	StateValidating State = "VALIDATING"
	// StateSealed means the audit record has been persisted.
	StateSealed State = "SEALED"
	// StatePartialFailure means no record succeeded.
	StatePartialFailure State = "PARTIAL_FAILURE"
)

// recordOutcome is one worker's report for one record. Workers fill these in
// independently; only the orchestrator reads them, in lexical record order,
// after all workers finish.
type recordOutcome struct {
	name    string
	ok      bool
	skipped bool // not attempted (batch canceled first)

	err     error
	reason  string // "read", "commit", "validate"
	summary rewriter.Summary

	quarantinePath string
	quarantineErr  error
}

// Result is the outcome of one batch run. Callers must inspect the trail's
// Errors and Warnings even when Success is true.
type Result struct {
	Success   bool
	State     State
	Trail     *audit.Trail
	AuditPath string
}
