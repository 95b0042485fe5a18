package rewriter

import (
	"meridian-hq/medscrub/pkg/anonymize/policy"
	"meridian-hq/medscrub/pkg/dataset"
)

// Rewrite returns a de-identified copy of rec. Every protected field present
// in the record is replaced with the policy's typed replacement; structural
// tags on the policy's removal list are deleted outright; all other fields
// pass through unchanged. stem seeds per-record pseudonyms.
//
// Replacements are applied on a clone as a complete set, so no caller can
// observe a record with only some protected fields cleared.
func Rewrite(rec *dataset.Record, stem string, pol *policy.Policy) *dataset.Record {
	out := rec.Clone()

	for _, tag := range pol.RemovedTags() {
		out.Delete(tag)
	}

	for _, entry := range pol.Entries() {
		if !out.Has(entry.Tag) {
			continue
		}
		out.Set(entry.Tag, dataset.NewStringElement(entry.VR, policy.ReplacementFor(entry, stem)))
	}

	return out
}

// Summary captures the original values of the critical fields before
// rewriting, for the encrypted audit trail.
type Summary struct {
	PatientName     string `json:"PatientName"`
	PatientID       string `json:"PatientID"`
	InstitutionName string `json:"InstitutionName"`
}

// Summarize extracts the pre-anonymization critical field values from rec.
func Summarize(rec *dataset.Record) Summary {
	return Summary{
		PatientName:     rec.StringValue(dataset.TagPatientName),
		PatientID:       rec.StringValue(dataset.TagPatientID),
		InstitutionName: rec.StringValue(dataset.TagInstitutionName),
	}
}
