// Package config loads, normalizes, and validates Lectern configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// LECTERN_PLATFORM_COOKIE and LECTERN_AGENT_TOKEN. The Config type centralizes
// every knob the daemon and CLI need: storage backend, page-agent bridge,
// platform API access, and the recorder's error budget and timers.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical formats, and clear validation errors.
package config
