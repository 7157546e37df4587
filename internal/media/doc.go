// Package media models captured evidence files and their on-disk layout.
//
// Captured stills and videos live under
// captured/{serial_or_unknown}/{serial_or_unknown}_{yyyyMMdd_HHmmss}.{ext}
// with a sidecar *_metadata.json per medium carrying camera, notes, markers,
// and barcode scans. The sidecar keeps annotation data recoverable even when
// a session snapshot is lost, and report generation reads it back.
package media
