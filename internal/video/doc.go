// Package video wraps an ffmpeg subprocess as a frame-at-a-time recording
// pipeline.
//
// The Writer runs a small state machine (Idle -> Recording -> Idle). Frames
// arrive pre-composited; the writer is overlay-agnostic and only moves raw
// RGBA bytes into the encoder's stdin. Stop is idempotent and must run on
// every exit path: an encoder left open produces a truncated, unplayable
// container, which is the most serious correctness hazard in this package.
//
// Elapsed time is derived from the pushed frame count at the target rate, a
// monotonic counter that stays correct under frame-rate jitter.
package video
