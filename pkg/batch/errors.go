package batch

import "fmt"

// RecordReadError represents a source record that could not be decoded. The
// record is quarantined and the batch continues.
type RecordReadError struct {
	Path  string // source record path
	Cause error  // underlying error
}

// Error implements the error interface.
func (e *RecordReadError) Error() string {
	return fmt.Sprintf("record read failed [path=%s]: %v", e.Path, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RecordReadError) Unwrap() error {
	return e.Cause
}

// ValidationViolation represents a committed output file that failed its
// post-write policy check.
type ValidationViolation struct {
	Path string // output file that failed validation
}

// Error implements the error interface.
func (e *ValidationViolation) Error() string {
	return fmt.Sprintf("validation violation [path=%s]: protected field check failed after commit", e.Path)
}
