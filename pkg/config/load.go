package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path. It
// applies default values and validates the result. Environment variables are
// not consulted; use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow the naming convention
// MEDSCRUB_SECTION_FIELD (e.g. MEDSCRUB_DIRECTORIES_QUARANTINE) and always
// take precedence over file-based configuration.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies MEDSCRUB_SECTION_FIELD environment variables.
// Malformed numeric or boolean values are an error, same as in the file.
func applyEnvOverrides(cfg *Config) error {
	if val := os.Getenv("MEDSCRUB_DIRECTORIES_INPUT"); val != "" {
		cfg.Directories.Input = val
	}
	if val := os.Getenv("MEDSCRUB_DIRECTORIES_OUTPUT"); val != "" {
		cfg.Directories.Output = val
	}
	if val := os.Getenv("MEDSCRUB_DIRECTORIES_QUARANTINE"); val != "" {
		cfg.Directories.Quarantine = val
	}
	if val := os.Getenv("MEDSCRUB_DIRECTORIES_AUDIT"); val != "" {
		cfg.Directories.Audit = val
	}
	if val := os.Getenv("MEDSCRUB_DIRECTORIES_LOGS"); val != "" {
		cfg.Directories.Logs = val
	}

	if val := os.Getenv("MEDSCRUB_VAULT_KEY_PATH"); val != "" {
		cfg.Vault.KeyPath = val
	}

	if val := os.Getenv("MEDSCRUB_ANONYMIZE_WORKERS"); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid MEDSCRUB_ANONYMIZE_WORKERS %q: %w", val, err)
		}
		cfg.Anonymize.Workers = i
	}

	if val := os.Getenv("MEDSCRUB_AUDIT_INDEX_PATH"); val != "" {
		cfg.Audit.IndexPath = val
	}

	if val := os.Getenv("MEDSCRUB_RETENTION_DAYS"); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid MEDSCRUB_RETENTION_DAYS %q: %w", val, err)
		}
		cfg.Retention.Days = &i
	}
	if val := os.Getenv("MEDSCRUB_RETENTION_SCHEDULE"); val != "" {
		cfg.Retention.Schedule = val
	}

	if val := os.Getenv("MEDSCRUB_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("MEDSCRUB_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("MEDSCRUB_TELEMETRY_METRICS_ENABLED"); val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid MEDSCRUB_TELEMETRY_METRICS_ENABLED %q: %w", val, err)
		}
		cfg.Telemetry.Metrics.Enabled = b
	}
	if val := os.Getenv("MEDSCRUB_TELEMETRY_METRICS_LISTEN_ADDRESS"); val != "" {
		cfg.Telemetry.Metrics.ListenAddress = val
	}
	return nil
}
