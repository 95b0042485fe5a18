package audit

import "fmt"

// FinalizeError represents a failure to seal and persist an audit trail.
type FinalizeError struct {
	BatchID string // batch whose trail could not be persisted
	Cause   error  // underlying error
}

// Error implements the error interface.
func (e *FinalizeError) Error() string {
	if e.BatchID != "" {
		return fmt.Sprintf("audit finalize failed [batch_id=%s]: %v", e.BatchID, e.Cause)
	}
	return fmt.Sprintf("audit finalize failed: %v", e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *FinalizeError) Unwrap() error {
	return e.Cause
}

// NewFinalizeError creates a new FinalizeError.
func NewFinalizeError(batchID string, cause error) *FinalizeError {
	return &FinalizeError{BatchID: batchID, Cause: cause}
}

// IndexError represents an error from the audit index backend.
type IndexError struct {
	Operation string // operation that failed ("open", "insert", "list", etc.)
	Cause     error  // underlying error
}

// Error implements the error interface.
func (e *IndexError) Error() string {
	return fmt.Sprintf("audit index error [operation=%s]: %v", e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *IndexError) Unwrap() error {
	return e.Cause
}

// NewIndexError creates a new IndexError.
func NewIndexError(operation string, cause error) *IndexError {
	return &IndexError{Operation: operation, Cause: cause}
}

// RetentionError represents an error during retention enforcement.
type RetentionError struct {
	RetentionDays int   // configured retention period
	Cause         error // underlying error
}

// Error implements the error interface.
func (e *RetentionError) Error() string {
	return fmt.Sprintf("retention error [retention_days=%d]: %v", e.RetentionDays, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RetentionError) Unwrap() error {
	return e.Cause
}

// NewRetentionError creates a new RetentionError.
func NewRetentionError(retentionDays int, cause error) *RetentionError {
	return &RetentionError{RetentionDays: retentionDays, Cause: cause}
}
