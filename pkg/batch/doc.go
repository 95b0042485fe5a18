// Package batch drives the anonymization pipeline over an input directory:
// rewrite, durable commit and per-file validation for every record, followed
// by batch-level validation and audit finalization. The orchestrator is the
// only component that mutates the audit trail; workers report per-record
// outcomes and never share state.
//
// The audit record is finalized on every path out of a batch, including
// cancellation and fatal setup failures. Losing the audit trail is treated as
// worse than losing the batch.
package batch
