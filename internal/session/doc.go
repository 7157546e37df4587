// Package session holds the live record of an in-progress inspection run.
//
// State is plain serializable data; Owner is the only writer. Every
// mutation (capture, annotation edit, checkbox toggle, scan, advancement)
// goes through Owner methods, which serialize access internally, so the
// producer tasks in the capture package never share mutable state directly.
//
// Barcode scans are scoped two ways: the active per-step list clears when
// the step advances, while every scan is also retained inside the captured
// medium it was attached to, which is what reports consume.
package session
