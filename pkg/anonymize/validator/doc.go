// Package validator independently re-reads de-identified output and checks
// it against the field policy. It runs at two granularities: a per-file check
// used immediately after each commit, and a batch check composed of three
// independent passes over the whole output directory (strict PHI presence on
// the critical subset, per-file integrity, and directory-wide compliance).
//
// The per-file and compliance passes accept any value that starts with the
// policy's replacement prefix, and accept empty values outright. This matches
// the historical behavior exactly; the prefix rule is weaker than exact match
// and the test suite flags it as a known gap.
package validator
