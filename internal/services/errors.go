package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExternalTool marks failures reported by an external binary
	// (ffmpeg, zbarimg, ...).
	ErrExternalTool = errors.New("external tool error")
	// ErrValidation marks malformed or rejected input.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks unusable configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks a missing resource (workflow, snapshot, device).
	ErrNotFound = errors.New("not found")
	// ErrUnavailable marks a resource that exists but cannot currently be
	// used, such as an encoder that refuses to start or a lost frame source.
	ErrUnavailable = errors.New("unavailable")
	// ErrCorrupt marks durable state that failed integrity checks on load.
	ErrCorrupt = errors.New("corrupt")
)

// Wrap builds an error that carries component context while tagging it with
// the provided marker. The marker should be one of the exported sentinel
// errors above; a nil marker defaults to ErrUnavailable.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrUnavailable
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
