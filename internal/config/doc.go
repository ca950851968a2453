// Package config loads, normalizes, and validates projtrace configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PROJTRACE_WORKERS and PROJTRACE_LOG_LEVEL. The Config type centralizes the
// fitting constants, batch sizing and output locations the CLI needs.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
