package policy

import (
	"fmt"

	"meridian-hq/medscrub/pkg/dataset"
)

// Entry describes how one protected field is rewritten.
type Entry struct {
	// Tag is the data element this entry governs.
	Tag dataset.Tag

	// Name is the DICOM attribute name, used in logs and validation reports.
	Name string

	// VR is the value representation written for the replacement, so a date
	// field receives an empty date rather than an arbitrary string.
	VR string

	// Replacement is the literal value written in place of the original.
	// Empty means the field is cleared.
	Replacement string

	// PerRecord marks Replacement as a prefix completed with the record
	// stem, producing a stable per-record pseudonym (e.g. "ANON_scan_001").
	PerRecord bool
}

// Critical marks the subset of entries that batch validation checks with an
// exact match (or exact prefix for per-record pseudonyms) rather than the
// looser per-file rule.
type Critical struct {
	Entry
}

// Override adjusts the replacement value of an existing policy entry.
// Overrides come from configuration; they cannot introduce new entries.
type Override struct {
	Tag         string `yaml:"tag"`
	Replacement string `yaml:"replacement"`
}

// Policy is the fixed mapping from protected tag to replacement rule.
type Policy struct {
	entries map[dataset.Tag]Entry
	order   []dataset.Tag
	removed []dataset.Tag
}

// Default returns the canonical de-identification policy.
func Default() *Policy {
	entries := []Entry{
		{Tag: dataset.TagPatientName, Name: "PatientName", VR: "PN", Replacement: "ANONYMOUS"},
		{Tag: dataset.TagPatientID, Name: "PatientID", VR: "LO", Replacement: "ANON_", PerRecord: true},
		{Tag: dataset.TagPatientBirthDate, Name: "PatientBirthDate", VR: "DA", Replacement: ""},
		{Tag: dataset.TagPatientSex, Name: "PatientSex", VR: "CS", Replacement: ""},
		{Tag: dataset.TagOtherPatientIDs, Name: "OtherPatientIDs", VR: "LO", Replacement: ""},
		{Tag: dataset.TagOtherPatientNames, Name: "OtherPatientNames", VR: "PN", Replacement: ""},
		{Tag: dataset.TagInstitutionName, Name: "InstitutionName", VR: "LO", Replacement: "ANONYMOUS_INSTITUTION"},
		{Tag: dataset.TagInstitutionAddress, Name: "InstitutionAddress", VR: "ST", Replacement: ""},
		{Tag: dataset.TagReferringPhysicianName, Name: "ReferringPhysicianName", VR: "PN", Replacement: "ANONYMOUS_PHYSICIAN"},
		{Tag: dataset.TagReferringPhysicianAddr, Name: "ReferringPhysicianAddress", VR: "ST", Replacement: ""},
		{Tag: dataset.TagReferringPhysicianPhone, Name: "ReferringPhysicianPhone", VR: "SH", Replacement: ""},
	}

	p := &Policy{
		entries: make(map[dataset.Tag]Entry, len(entries)),
		order:   make([]dataset.Tag, 0, len(entries)),
		// Group 0000 command elements carry non-portable type information
		// and are removed outright rather than replaced.
		removed: []dataset.Tag{dataset.TagCommandLengthToEnd},
	}
	for _, e := range entries {
		p.entries[e.Tag] = e
		p.order = append(p.order, e.Tag)
	}
	return p
}

// WithOverrides returns a copy of the policy with replacement values
// adjusted. An override naming a tag outside the canonical list is a
// configuration error.
func (p *Policy) WithOverrides(overrides []Override) (*Policy, error) {
	out := &Policy{
		entries: make(map[dataset.Tag]Entry, len(p.entries)),
		order:   append([]dataset.Tag(nil), p.order...),
		removed: append([]dataset.Tag(nil), p.removed...),
	}
	for tag, entry := range p.entries {
		out.entries[tag] = entry
	}

	for _, ov := range overrides {
		tag, err := dataset.ParseTag(ov.Tag)
		if err != nil {
			return nil, fmt.Errorf("policy override: %w", err)
		}
		entry, ok := out.entries[tag]
		if !ok {
			return nil, fmt.Errorf("policy override: tag %s is not in the protected field list", tag)
		}
		entry.Replacement = ov.Replacement
		out.entries[tag] = entry
	}
	return out, nil
}

// Lookup reports whether the tag is protected and, if so, its entry.
func (p *Policy) Lookup(tag dataset.Tag) (Entry, bool) {
	e, ok := p.entries[tag]
	return e, ok
}

// Entries returns all entries in canonical order.
func (p *Policy) Entries() []Entry {
	out := make([]Entry, 0, len(p.order))
	for _, tag := range p.order {
		out = append(out, p.entries[tag])
	}
	return out
}

// RemovedTags returns tags that are deleted outright rather than replaced.
func (p *Policy) RemovedTags() []dataset.Tag {
	return append([]dataset.Tag(nil), p.removed...)
}

// CriticalEntries returns the fixed critical subset (patient name, patient
// ID, institution name) whose replacements must match exactly at batch
// validation time.
func (p *Policy) CriticalEntries() []Critical {
	critical := make([]Critical, 0, 3)
	for _, tag := range []dataset.Tag{
		dataset.TagPatientName,
		dataset.TagPatientID,
		dataset.TagInstitutionName,
	} {
		critical = append(critical, Critical{Entry: p.entries[tag]})
	}
	return critical
}

// ReplacementFor resolves the concrete replacement value for a record.
// stem is the record's file stem, used for per-record pseudonyms.
func ReplacementFor(e Entry, stem string) string {
	if e.PerRecord {
		return e.Replacement + stem
	}
	return e.Replacement
}
