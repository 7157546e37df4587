// Package overlay is the single source of truth for where annotation markers
// draw.
//
// Markers carry frame-relative coordinates so a marker placed on a preview
// renders at the same spot on a full-resolution capture and on every encoded
// video frame. Project converts a marker into absolute pixel geometry for a
// target frame size; it is pure and deterministic, so still-image and
// per-frame video rendering produce bit-identical placement.
//
// MarkerList owns label assignment: labels are a dense, ordered alphabet
// prefix (A, B, C, ... then AA, AB, ...) and are re-sequenced on deletion so
// there are never gaps or duplicates.
package overlay
