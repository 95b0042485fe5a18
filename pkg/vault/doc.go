// Package vault manages the batch encryption key and sealing of PHI audit
// payloads. The key is a 32-byte secret generated once and loaded from disk
// on every subsequent run; it is the confidentiality boundary for PHI
// summaries in audit records, not for operational data. Losing the key makes
// prior audit payloads permanently unreadable.
package vault
