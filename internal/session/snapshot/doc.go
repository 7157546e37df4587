// Package snapshot persists session state to disk and brings it back.
//
// Every save is atomic: the new document is written beside the target and
// renamed into place, so a crash mid-write leaves the previous snapshot
// intact. An advisory file lock marks the session a running process owns,
// which the retention sweep honors when deleting stale progress files.
package snapshot
