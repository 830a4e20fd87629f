// Package config loads and validates the TOML configuration for the dubbing
// pipeline. Loading runs in three phases: decode over Default() values,
// normalize (path expansion, env-var fallbacks), then Validate.
package config
