package config

// ApplyDefaults fills in default values for unset fields. Quarantine is
// deliberately left empty; Validate rejects a configuration without it.
func ApplyDefaults(cfg *Config) {
	if cfg.Directories.Input == "" {
		cfg.Directories.Input = "data/input"
	}
	if cfg.Directories.Output == "" {
		cfg.Directories.Output = "data/output"
	}
	if cfg.Directories.Audit == "" {
		cfg.Directories.Audit = "audit_logs"
	}
	if cfg.Directories.Logs == "" {
		cfg.Directories.Logs = "logs"
	}

	if cfg.Vault.KeyPath == "" {
		cfg.Vault.KeyPath = "config/audit.key"
	}

	if cfg.Anonymize.Workers == 0 {
		cfg.Anonymize.Workers = 4
	}

	if cfg.Audit.IndexPath == "" {
		cfg.Audit.IndexPath = "data/audit-index.db"
	}

	if cfg.Retention.Days == nil {
		days := 365
		cfg.Retention.Days = &days
	}
	if cfg.Retention.Schedule == "" {
		cfg.Retention.Schedule = "0 3 * * *"
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = ":9464"
	}
}
