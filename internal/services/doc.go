// Package services defines the shared error taxonomy for sightline components
// and hosts wrappers around the external command-line tools the engine shells
// out to.
//
// Errors produced inside the core are tagged with one of the exported sentinel
// markers so callers can classify failures with errors.Is without inspecting
// message text. Wrap is the single construction point; it prefixes component
// and operation context onto the underlying error.
package services
