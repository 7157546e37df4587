// Package workflow models named inspection procedures.
//
// A Definition is an immutable, validated sequence of steps, each carrying
// operator instructions, an optional reference image with inspection
// checkboxes, and a requirement set that gates step advancement. Definitions
// are authored externally as JSON; this package only reads them. Treat a
// loaded Definition as read-only for the duration of a session.
package workflow
