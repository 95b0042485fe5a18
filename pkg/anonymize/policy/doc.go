// Package policy defines the declarative field policy for de-identification:
// the canonical set of protected tags, the typed replacement written for each,
// and the critical subset that batch validation holds to exact-match scrutiny.
//
// The policy is total and fixed: every tag in the canonical protected list
// resolves to exactly one entry. Configuration may override replacement
// values but can neither remove entries nor add new ones, so a record is
// never left with only part of its protected fields cleared.
package policy
