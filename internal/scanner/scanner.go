// Package scanner runs the barcode polling task. It samples the latest
// acquired frame on a fixed interval, debounces repeat reads of the same
// payload, and reports whether a code is currently in view so the UI can
// enable scan-gated actions.
package scanner

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"time"

	"sightline/internal/logging"
	"sightline/internal/media"
)

// DefaultInterval is the poll period when the config does not override it.
const DefaultInterval = 100 * time.Millisecond

// Detector decodes one frame. ok is false when no code is present.
type Detector interface {
	Detect(ctx context.Context, frame image.Image) (media.BarcodeScan, bool, error)
}

// FrameProvider returns the most recently acquired frame, or nil when no
// frame is available yet.
type FrameProvider func() *image.RGBA

// Task polls the detector against the latest frame. A payload is emitted
// once when it enters view; it must leave view before the same payload
// emits again.
type Task struct {
	detector Detector
	frames   FrameProvider
	interval time.Duration
	onScan   func(media.BarcodeScan)
	logger   *slog.Logger

	mu          sync.Mutex
	visible     bool
	lastPayload string
	running     bool
	quit        chan struct{}
	done        chan struct{}
}

// New builds a scan task. onScan is invoked from the task's goroutine for
// each debounced detection.
func New(detector Detector, frames FrameProvider, interval time.Duration, onScan func(media.BarcodeScan), logger *slog.Logger) *Task {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Task{
		detector: detector,
		frames:   frames,
		interval: interval,
		onScan:   onScan,
		logger:   logging.NewComponentLogger(logger, "scanner"),
	}
}

// Start launches the poll loop.
func (t *Task) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.quit = make(chan struct{})
	t.done = make(chan struct{})
	go t.loop(ctx, t.quit, t.done)
}

// Stop halts polling and waits for the loop to exit. The loop observes
// the stop request within one poll interval.
func (t *Task) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	quit, done := t.quit, t.done
	t.mu.Unlock()

	close(quit)
	<-done
}

// Visible reports whether a barcode is currently in view.
func (t *Task) Visible() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.visible
}

func (t *Task) loop(ctx context.Context, quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-quit:
			return
		case <-ticker.C:
			t.poll(ctx)
		}
	}
}

func (t *Task) poll(ctx context.Context) {
	frame := t.frames()
	if frame == nil {
		t.setMiss()
		return
	}
	scan, ok, err := t.detector.Detect(ctx, frame)
	if err != nil {
		t.logger.Warn("barcode detection failed", logging.Error(err))
		t.setMiss()
		return
	}
	if !ok {
		t.setMiss()
		return
	}

	t.mu.Lock()
	repeat := t.visible && scan.Payload == t.lastPayload
	t.visible = true
	t.lastPayload = scan.Payload
	t.mu.Unlock()

	if repeat || t.onScan == nil {
		return
	}
	t.onScan(scan)
}

// setMiss records a poll without a detection. The payload leaves view, so
// the next sighting of the same payload emits again.
func (t *Task) setMiss() {
	t.mu.Lock()
	t.visible = false
	t.lastPayload = ""
	t.mu.Unlock()
}
