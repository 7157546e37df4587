package scanner

import (
	"context"
	"image"
	"sync"
	"testing"
	"time"

	"sightline/internal/media"
)

// scriptedDetector replays a fixed sequence of poll results.
type scriptedDetector struct {
	mu      sync.Mutex
	results []detection
	polls   int
}

type detection struct {
	payload string
	ok      bool
}

func (d *scriptedDetector) Detect(ctx context.Context, frame image.Image) (media.BarcodeScan, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx := d.polls
	d.polls++
	if idx >= len(d.results) {
		return media.BarcodeScan{}, false, nil
	}
	r := d.results[idx]
	if !r.ok {
		return media.BarcodeScan{}, false, nil
	}
	return media.BarcodeScan{Symbology: "CODE128", Payload: r.payload, Timestamp: time.Now()}, true, nil
}

func (d *scriptedDetector) pollCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.polls
}

func frameProvider() FrameProvider {
	frame := image.NewRGBA(image.Rect(0, 0, 4, 4))
	return func() *image.RGBA { return frame }
}

func collectScans(t *testing.T, det *scriptedDetector, polls int) []media.BarcodeScan {
	t.Helper()
	var (
		mu    sync.Mutex
		scans []media.BarcodeScan
	)
	task := New(det, frameProvider(), 5*time.Millisecond, func(s media.BarcodeScan) {
		mu.Lock()
		scans = append(scans, s)
		mu.Unlock()
	}, nil)
	task.Start(context.Background())
	deadline := time.Now().Add(2 * time.Second)
	for det.pollCount() < polls && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	task.Stop()
	mu.Lock()
	defer mu.Unlock()
	return append([]media.BarcodeScan(nil), scans...)
}

func TestRepeatPayloadEmitsOnce(t *testing.T) {
	det := &scriptedDetector{results: []detection{
		{"LOT-7", true}, {"LOT-7", true}, {"LOT-7", true},
	}}
	scans := collectScans(t, det, 3)
	if len(scans) != 1 || scans[0].Payload != "LOT-7" {
		t.Fatalf("scans = %+v", scans)
	}
}

func TestPayloadReEmitsAfterLeavingView(t *testing.T) {
	det := &scriptedDetector{results: []detection{
		{"LOT-7", true}, {"", false}, {"LOT-7", true},
	}}
	scans := collectScans(t, det, 3)
	if len(scans) != 2 {
		t.Fatalf("scans = %+v", scans)
	}
}

func TestDistinctPayloadsBothEmit(t *testing.T) {
	det := &scriptedDetector{results: []detection{
		{"LOT-7", true}, {"LOT-8", true},
	}}
	scans := collectScans(t, det, 2)
	if len(scans) != 2 || scans[0].Payload != "LOT-7" || scans[1].Payload != "LOT-8" {
		t.Fatalf("scans = %+v", scans)
	}
}

func TestVisibleTracksDetection(t *testing.T) {
	det := &scriptedDetector{results: []detection{
		{"LOT-7", true}, {"", false},
	}}
	task := New(det, frameProvider(), 5*time.Millisecond, nil, nil)
	task.Start(context.Background())
	defer task.Stop()

	deadline := time.Now().Add(time.Second)
	sawVisible := false
	for time.Now().Before(deadline) {
		if task.Visible() {
			sawVisible = true
			break
		}
		time.Sleep(time.Millisecond)
	}
	if !sawVisible {
		t.Fatal("visible never became true")
	}
	deadline = time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if !task.Visible() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("visible never cleared after the payload left view")
}

func TestStopReturnsWithinOneInterval(t *testing.T) {
	det := &scriptedDetector{}
	task := New(det, frameProvider(), 20*time.Millisecond, nil, nil)
	task.Start(context.Background())

	start := time.Now()
	task.Stop()
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("stop took %v", elapsed)
	}
	// Stop again is a no-op.
	task.Stop()
}

func TestNilFrameCountsAsMiss(t *testing.T) {
	det := &scriptedDetector{results: []detection{{"LOT-7", true}}}
	task := New(det, func() *image.RGBA { return nil }, 5*time.Millisecond, func(media.BarcodeScan) {
		t.Error("scan emitted without a frame")
	}, nil)
	task.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	task.Stop()
	if task.Visible() {
		t.Fatal("visible without frames")
	}
}
