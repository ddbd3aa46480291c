// Package config loads, normalizes, and validates respira configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// RESPIRA_INFERENCE_SCRIPT. The Config type centralizes every knob the daemon
// and CLI need: where uploads are staged, how the inference process is
// invoked, how its output is read, and where history and logs live.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enum values, and clear validation errors.
package config
