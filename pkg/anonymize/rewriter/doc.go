// Package rewriter applies the field policy to a single record, producing a
// de-identified copy. Rewriting is pure: no I/O, no mutation of the input,
// and deterministic output for a given record, name, and policy.
package rewriter
