// Package logging assembles the structured slog loggers used across sightline
// components.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes attribute helpers so capture, validator, and
// persistence code emit log lines with the same shape. The package also
// provides a no-op logger for tests and wiring code that cannot fail, plus
// age-based pruning of old log files.
package logging
