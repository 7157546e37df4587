// Package capture runs a live session: one frame acquisition loop, one
// barcode scan task, and one encode drain feed a single session owner.
//
// The tasks never share mutable structures; the latest frame crosses a
// mutex, composited frames cross a channel, and every state change goes
// through the owner. Encoding applies drop-oldest backpressure so a slow
// encoder thins the recording instead of stalling acquisition. Closing the
// runner stops all three tasks and the video writer before Close returns.
package capture
