package capture

import (
	"context"
	"image"
	"os"
	"testing"
	"time"

	"sightline/internal/framesource"
	"sightline/internal/media"
	"sightline/internal/overlay"
	"sightline/internal/session"
	"sightline/internal/session/snapshot"
	"sightline/internal/testsupport"
	"sightline/internal/workflow"
)

func testDef() *workflow.Definition {
	return &workflow.Definition{
		Name:  "bench-check",
		Steps: []workflow.Step{{Title: "Inspect", RequirePhoto: true}},
	}
}

func newRunner(t *testing.T, store *snapshot.Store) *Runner {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	owner, err := session.Start(session.ModeQC, "SN-3", "", testDef(), nil)
	if err != nil {
		t.Fatal(err)
	}
	runner, err := NewRunner(Options{
		Owner:  owner,
		Source: framesource.NewSynthetic(32, 24, 120),
		Store:  store,
		Config: cfg,
	})
	if err != nil {
		t.Fatal(err)
	}
	return runner
}

func waitForFrame(t *testing.T, r *Runner) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r.LatestFrame() != nil {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("no frame acquired")
}

func TestCapturePhotoRecordsMedium(t *testing.T) {
	runner := newRunner(t, nil)
	if err := runner.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer runner.Close()
	waitForFrame(t, runner)

	runner.EditMarkers(func(list *overlay.MarkerList) {
		list.Add(0.5, 0.5, 0)
	})
	medium, err := runner.CapturePhoto()
	if err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(medium.Path); err != nil {
		t.Fatalf("photo not on disk: %v", err)
	}
	if _, err := os.Stat(media.SidecarPath(medium.Path)); err != nil {
		t.Fatalf("sidecar not on disk: %v", err)
	}
	if len(medium.Markers) != 1 || medium.Markers[0].Label != "A" {
		t.Fatalf("markers = %+v", medium.Markers)
	}
	if medium.StepIndex == nil || *medium.StepIndex != 0 {
		t.Fatal("medium not stamped with the active step")
	}
	if got := runner.LiveMarkers(); len(got) != 0 {
		t.Fatalf("live markers not cleared after capture: %+v", got)
	}

	state := runner.Owner().Snapshot()
	if len(state.Media) != 1 {
		t.Fatalf("session media = %d", len(state.Media))
	}
}

func TestRecordingLifecycle(t *testing.T) {
	// The writer resolves ffmpeg from PATH; swallow stdin like a real
	// encoder would.
	testsupport.StubBinary(t, "ffmpeg", "cat > /dev/null\nexit 0\n")

	runner := newRunner(t, nil)
	if err := runner.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer runner.Close()
	waitForFrame(t, runner)

	if err := runner.StartRecording(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !runner.Recording() {
		t.Fatal("writer not recording")
	}

	deadline := time.Now().Add(2 * time.Second)
	for runner.RecordingElapsed() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if runner.RecordingElapsed() == 0 {
		t.Fatal("no frames reached the encoder")
	}

	medium, err := runner.StopRecording()
	if err != nil {
		t.Fatal(err)
	}
	if medium.Kind != media.KindVideo {
		t.Fatalf("kind = %q", medium.Kind)
	}
	if runner.Recording() {
		t.Fatal("writer still recording after stop")
	}
	if _, err := runner.StopRecording(); err == nil {
		t.Fatal("second stop must report not recording")
	}
}

func TestCloseFlushesSnapshot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := snapshot.NewStore(cfg.Paths.ProgressDir, nil)
	if err != nil {
		t.Fatal(err)
	}
	owner, err := session.Start(session.ModeQC, "SN-3", "", testDef(), nil)
	if err != nil {
		t.Fatal(err)
	}
	runner, err := NewRunner(Options{
		Owner:  owner,
		Source: framesource.NewSynthetic(16, 16, 120),
		Store:  store,
		Config: cfg,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := runner.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitForFrame(t, runner)
	if _, err := runner.CapturePhoto(); err != nil {
		t.Fatal(err)
	}
	if err := runner.Close(); err != nil {
		t.Fatal(err)
	}
	// Close is idempotent.
	if err := runner.Close(); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load(owner.Snapshot().ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Media) != 1 {
		t.Fatalf("persisted media = %d", len(loaded.Media))
	}
}

func TestSourceLostEmitsEvent(t *testing.T) {
	src := framesource.NewSynthetic(16, 16, 120)
	cfg := testsupport.NewConfig(t)
	owner, err := session.Start(session.ModeCapture, "", "", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	runner, err := NewRunner(Options{Owner: owner, Source: src, Config: cfg})
	if err != nil {
		t.Fatal(err)
	}
	if err := runner.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer runner.Close()

	src.Close()

	select {
	case ev := <-runner.Events():
		if ev.Type != EventSourceLost {
			t.Fatalf("event = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no source-lost event")
	}
}

func TestEnqueueFrameDropsOldest(t *testing.T) {
	runner := newRunner(t, nil)
	frames := make([]*image.RGBA, encodeQueueDepth+3)
	for i := range frames {
		frames[i] = image.NewRGBA(image.Rect(0, 0, 1, 1))
		runner.enqueueFrame(frames[i])
	}
	if got := len(runner.encodeCh); got != encodeQueueDepth {
		t.Fatalf("queued = %d", got)
	}
	// The newest frame survived; the oldest were dropped.
	var last *image.RGBA
	for len(runner.encodeCh) > 0 {
		last = <-runner.encodeCh
	}
	if last != frames[len(frames)-1] {
		t.Fatal("newest frame was dropped")
	}
}
