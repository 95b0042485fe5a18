// Medscrub removes protected health information from clinical imaging
// records and produces an encrypted, tamper-evident audit trail.
//
// It processes a directory of records in the DICOM JSON Model container
// format, providing:
//   - Policy-driven rewriting of protected fields
//   - Crash-safe durable writes verified by two independent decoders
//   - Quarantine of unprocessable records (sources are never deleted)
//   - Per-file and batch-level compliance validation
//   - Encrypted per-batch audit records with a queryable index
//
// Usage:
//
//	# Process the configured input directory once
//	medscrub run
//
//	# Process continuously as records arrive
//	medscrub run --watch
//
//	# Re-validate an output directory
//	medscrub validate
//
//	# Inspect a sealed audit record
//	medscrub audit show audit_logs/audit_20260825_120000_ab12cd34.json --decrypt
package main

func main() {
	Execute()
}
