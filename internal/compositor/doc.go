// Package compositor burns annotation overlays into frame buffers.
//
// It renders marker arrows (shaft, head, circular label badge) and
// inspection checkbox squares at positions computed by the overlay package,
// always onto a copy of the input frame so the raw capture stays available
// for deferred, on-demand compositing. The same entry point serves still
// images and per-frame video rendering.
package compositor
