// Package config loads, normalizes, and validates sightline configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and centralizes every knob the CLI and
// capture engine need: capture/progress/report directories, camera and
// recording parameters, scanner polling, snapshot retention, and the
// workflow editor password.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
