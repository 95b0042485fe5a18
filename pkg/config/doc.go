// Package config loads the YAML configuration file, applies defaults and
// environment variable overrides, and validates the result. Loading fails
// fast: a run never touches a record under a configuration that did not
// fully validate.
package config
