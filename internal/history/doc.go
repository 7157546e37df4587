// Package history archives finished and discarded runs in SQLite.
//
// The live snapshot directory only holds resumable work; once a run
// completes or the operator discards it, a summary row plus the full state
// document land here so past inspections stay queryable after the
// snapshot sweep removes their progress files.
package history
