// Package framesource abstracts where live frames come from.
//
// A Source hands out RGBA frames at the device's native rate until it is
// closed or the underlying device disappears, which surfaces as
// ErrSourceLost rather than a hang. The ffmpeg-backed camera source covers
// real V4L2 hardware; the synthetic source exists for tests and headless
// development. A udev netlink watcher reports camera hotplug so the
// session layer can prompt instead of spinning on a dead device.
package framesource
