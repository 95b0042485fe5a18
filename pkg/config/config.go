package config

import (
	"meridian-hq/medscrub/pkg/anonymize/policy"
)

// Config is the root configuration structure.
type Config struct {
	Directories DirectoriesConfig `yaml:"directories"`
	Vault       VaultConfig       `yaml:"vault"`
	Anonymize   AnonymizeConfig   `yaml:"anonymize"`
	Audit       AuditConfig       `yaml:"audit"`
	Retention   RetentionConfig   `yaml:"retention"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

// DirectoriesConfig names the directories a run operates on. Quarantine has
// no default: a deployment must decide where unprocessable PHI-bearing
// records end up.
type DirectoriesConfig struct {
	// Input is the directory of source records.
	Input string `yaml:"input"`

	// Output is the destination for anonymized records.
	Output string `yaml:"output"`

	// Quarantine receives unmodified copies of failed records. Required.
	Quarantine string `yaml:"quarantine"`

	// Audit is the directory of sealed audit records.
	Audit string `yaml:"audit"`

	// Logs is the directory of per-run log files.
	Logs string `yaml:"logs"`
}

// VaultConfig configures the audit encryption key.
type VaultConfig struct {
	// KeyPath is the location of the raw key file. Generated on first use.
	KeyPath string `yaml:"key_path"`
}

// AnonymizeConfig configures the rewrite pipeline.
type AnonymizeConfig struct {
	// Workers is the number of concurrent record workers.
	Workers int `yaml:"workers"`

	// Overrides adjust replacement values of existing policy entries.
	Overrides []policy.Override `yaml:"overrides"`
}

// AuditConfig configures the derived audit index.
type AuditConfig struct {
	// IndexPath is the sqlite database path for the audit index.
	IndexPath string `yaml:"index_path"`
}

// RetentionConfig configures expiry of audit and log files.
type RetentionConfig struct {
	// Days is the retention period; 0 keeps files forever. Unset defaults
	// to 365.
	Days *int `yaml:"days"`

	// Schedule is the cron expression for automatic pruning in watch mode.
	Schedule string `yaml:"schedule"`
}

// TelemetryConfig groups logging and metrics settings.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the output format ("json", "text").
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled turns on metric collection and, in watch mode, the HTTP
	// exposition endpoint.
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the exposition endpoint address (watch mode only).
	ListenAddress string `yaml:"listen_address"`
}
