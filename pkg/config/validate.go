package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"meridian-hq/medscrub/pkg/dataset"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field
	// (e.g., "directories.quarantine").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate checks the entire configuration. All validation errors are
// collected and returned together as a ValidationError.
func Validate(cfg *Config) error {
	var errs []FieldError

	if cfg.Directories.Quarantine == "" {
		errs = append(errs, FieldError{
			Field:   "directories.quarantine",
			Message: "required: failed records must have a quarantine destination",
		})
	}
	if cfg.Directories.Input == "" {
		errs = append(errs, FieldError{Field: "directories.input", Message: "must not be empty"})
	}
	if cfg.Directories.Output == "" {
		errs = append(errs, FieldError{Field: "directories.output", Message: "must not be empty"})
	}
	if cfg.Directories.Input != "" && cfg.Directories.Input == cfg.Directories.Output {
		errs = append(errs, FieldError{
			Field:   "directories.output",
			Message: "must differ from directories.input",
		})
	}

	if cfg.Anonymize.Workers < 1 {
		errs = append(errs, FieldError{Field: "anonymize.workers", Message: "must be at least 1"})
	}
	for i, o := range cfg.Anonymize.Overrides {
		if _, err := dataset.ParseTag(o.Tag); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("anonymize.overrides[%d].tag", i),
				Message: err.Error(),
			})
		}
	}

	if cfg.Retention.Days != nil && *cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{Field: "retention.days", Message: "must not be negative"})
	}
	if cfg.Retention.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "retention.schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("unknown level %q", cfg.Telemetry.Logging.Level),
		})
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("unknown format %q", cfg.Telemetry.Logging.Format),
		})
	}
	if cfg.Telemetry.Metrics.Enabled && cfg.Telemetry.Metrics.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.listen_address",
			Message: "required when metrics are enabled",
		})
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}
