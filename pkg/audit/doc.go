// Package audit builds and persists the per-batch audit trail. A Trail
// accumulates counters, errors, warnings and the pre-anonymization PHI
// summaries while a batch runs; the Recorder seals it exactly once into an
// append-only JSON file whose PHI portion is encrypted by the vault.
//
// The sealed file is the canonical record. The sqlite Index is derived state
// that exists only to make sealed records queryable; rebuilding it from the
// audit directory loses nothing.
package audit
