package validator

import (
	"log/slog"
	"path/filepath"
	"strings"

	"meridian-hq/medscrub/pkg/anonymize/policy"
	"meridian-hq/medscrub/pkg/dataset"
)

// Validator checks de-identified output against a field policy.
type Validator struct {
	policy *policy.Policy
	logger *slog.Logger
}

// New creates a validator for the given policy.
func New(pol *policy.Policy, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		policy: pol,
		logger: logger.With("component", "anonymize.validator"),
	}
}

// ValidateFile re-reads one output file and checks every protected field it
// carries. Empty values always pass; a non-empty value passes when it starts
// with the policy's replacement prefix. Unreadable files fail.
func (v *Validator) ValidateFile(path string) bool {
	rec, err := dataset.ReadFile(path)
	if err != nil {
		v.logger.Error("validation failed: unreadable file", "path", path, "error", err)
		return false
	}
	return v.checkRecord(rec, path)
}

// ValidateBatch runs the three independent batch checks over every output
// file in dir and returns their logical AND. Any unreadable file fails the
// whole batch.
func (v *Validator) ValidateBatch(dir string) bool {
	phiOK := v.checkRemainingPHI(dir)
	fileOK := v.checkFileIntegrity(dir)
	complianceOK := v.checkCompliance(dir)

	v.logger.Info("batch validation results",
		"directory", dir,
		"phi_check", phiOK,
		"file_check", fileOK,
		"compliance_check", complianceOK,
	)
	return phiOK && fileOK && complianceOK
}

// checkRecord applies the per-file rule to an already-decoded record.
func (v *Validator) checkRecord(rec *dataset.Record, path string) bool {
	for _, entry := range v.policy.Entries() {
		if !rec.Has(entry.Tag) {
			continue
		}
		value := rec.StringValue(entry.Tag)
		if value == "" {
			continue
		}
		// Entries that clear a field have no expected prefix; any leftover
		// value passes here and is only caught by the critical-subset check.
		if entry.Replacement == "" {
			continue
		}
		if !strings.HasPrefix(value, entry.Replacement) {
			v.logger.Error("validation failed: remaining PHI",
				"path", path,
				"field", entry.Name,
			)
			return false
		}
	}
	return true
}

// checkRemainingPHI is the strict pass: the critical subset must match the
// anonymized placeholder exactly (or carry the exact pseudonym prefix).
// Unlike the per-file rule, empty values do not pass.
func (v *Validator) checkRemainingPHI(dir string) bool {
	names, err := dataset.List(dir)
	if err != nil {
		v.logger.Error("phi check failed: cannot enumerate output", "directory", dir, "error", err)
		return false
	}
	critical := v.policy.CriticalEntries()

	for _, name := range names {
		path := filepath.Join(dir, name)
		rec, err := dataset.ReadFile(path)
		if err != nil {
			v.logger.Error("phi check failed: unreadable file", "path", path, "error", err)
			return false
		}
		for _, c := range critical {
			if !rec.Has(c.Tag) {
				continue
			}
			value := rec.StringValue(c.Tag)
			ok := value == c.Replacement
			if c.PerRecord {
				ok = strings.HasPrefix(value, c.Replacement)
			}
			if !ok {
				v.logger.Error("phi check failed: remaining PHI",
					"path", path,
					"field", c.Name,
				)
				return false
			}
		}
	}
	return true
}

// checkFileIntegrity applies the per-file check to every output file.
func (v *Validator) checkFileIntegrity(dir string) bool {
	names, err := dataset.List(dir)
	if err != nil {
		v.logger.Error("integrity check failed: cannot enumerate output", "directory", dir, "error", err)
		return false
	}
	for _, name := range names {
		if !v.ValidateFile(filepath.Join(dir, name)) {
			return false
		}
	}
	return true
}

// checkCompliance evaluates the per-file rule across the whole directory as
// an independent pass with its own reads.
func (v *Validator) checkCompliance(dir string) bool {
	names, err := dataset.List(dir)
	if err != nil {
		v.logger.Error("compliance check failed: cannot enumerate output", "directory", dir, "error", err)
		return false
	}
	for _, name := range names {
		path := filepath.Join(dir, name)
		rec, err := dataset.ReadFile(path)
		if err != nil {
			v.logger.Error("compliance check failed: unreadable file", "path", path, "error", err)
			return false
		}
		if !v.checkRecord(rec, path) {
			return false
		}
	}
	return true
}
