package capture

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"sightline/internal/compositor"
	"sightline/internal/config"
	"sightline/internal/framesource"
	"sightline/internal/logging"
	"sightline/internal/media"
	"sightline/internal/overlay"
	"sightline/internal/scanner"
	"sightline/internal/services"
	"sightline/internal/session"
	"sightline/internal/session/snapshot"
	"sightline/internal/video"
)

// encodeQueueDepth bounds frames waiting for the encoder. When full, the
// oldest queued frame is dropped so acquisition never blocks.
const encodeQueueDepth = 8

// EventType classifies asynchronous runner events.
type EventType string

const (
	// EventSourceLost reports that the frame source died. The session
	// survives; the operator decides whether to reopen a camera.
	EventSourceLost EventType = "source_lost"
)

// Event is delivered on the runner's event channel.
type Event struct {
	Type   EventType
	Device string
	Err    error
}

// Runner drives one live session.
type Runner struct {
	owner  *session.Owner
	source framesource.Source
	scan   *scanner.Task
	writer *video.Writer
	saver  *snapshot.Saver
	cfg    *config.Config
	logger *slog.Logger

	mu          sync.Mutex
	latest      *image.RGBA
	liveMarkers overlay.MarkerList
	started     bool
	closed      bool

	encodeCh chan *image.RGBA
	events   chan Event

	cancel    context.CancelFunc
	saveStop  context.CancelFunc
	acqDone   chan struct{}
	encDone   chan struct{}
}

// Options collects the runner's collaborators.
type Options struct {
	Owner    *session.Owner
	Source   framesource.Source
	Detector scanner.Detector
	Store    *snapshot.Store
	Config   *config.Config
	Logger   *slog.Logger
}

// NewRunner wires the producer tasks around one session owner.
func NewRunner(opts Options) (*Runner, error) {
	if opts.Owner == nil || opts.Source == nil || opts.Config == nil {
		return nil, services.Wrap(services.ErrValidation, "capture", "new", "missing owner, source, or config", nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Runner{
		owner:    opts.Owner,
		source:   opts.Source,
		cfg:      opts.Config,
		logger:   logging.NewComponentLogger(logger, "capture"),
		writer:   video.NewWriter(opts.Config.FFmpegBinary(), logger),
		encodeCh: make(chan *image.RGBA, encodeQueueDepth),
		events:   make(chan Event, 4),
		acqDone:  make(chan struct{}),
		encDone:  make(chan struct{}),
	}
	if opts.Store != nil {
		r.saver = snapshot.NewSaver(opts.Store, logger)
		r.owner.OnChange(r.saver.Submit)
	}
	if opts.Detector != nil && opts.Config.Scanner.Enabled {
		interval := time.Duration(opts.Config.Scanner.PollIntervalMS) * time.Millisecond
		r.scan = scanner.New(opts.Detector, r.LatestFrame, interval, r.owner.RecordScan, logger)
	}
	return r, nil
}

// Events delivers asynchronous failures such as a lost frame source.
func (r *Runner) Events() <-chan Event {
	return r.events
}

// Owner exposes the session owner for advancement and annotation calls.
func (r *Runner) Owner() *session.Owner {
	return r.owner
}

// Start launches the producer tasks.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}
	r.started = true

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	if r.saver != nil {
		saveCtx, saveStop := context.WithCancel(context.Background())
		r.saveStop = saveStop
		r.saver.Start(saveCtx)
	}
	go r.acquisitionLoop(runCtx)
	go r.encodeLoop()
	if r.scan != nil {
		r.scan.Start(runCtx)
	}
	r.logger.Info("session runner started",
		logging.String(logging.FieldDevice, r.source.Descriptor().Device))
	return nil
}

// Close stops every task, flushes the writer, and persists the final
// state. All three producers have exited before Close returns.
func (r *Runner) Close() error {
	r.mu.Lock()
	if !r.started || r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	cancel := r.cancel
	r.mu.Unlock()

	cancel()
	if r.scan != nil {
		r.scan.Stop()
	}
	_ = r.source.Close()
	<-r.acqDone
	close(r.encodeCh)
	<-r.encDone
	if err := r.writer.Stop(); err != nil {
		r.logger.Warn("stopping encoder on close", logging.Error(err))
	}
	if r.saver != nil {
		r.saver.Submit(r.owner.Snapshot())
		r.saveStop()
		r.saver.Wait()
	}
	r.logger.Info("session runner closed")
	return nil
}

// LatestFrame returns the most recent raw frame, nil before the first
// frame arrives.
func (r *Runner) LatestFrame() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest
}

// EditMarkers runs fn against the live marker list under the runner's
// lock, so preview edits never race the acquisition loop.
func (r *Runner) EditMarkers(fn func(*overlay.MarkerList)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.liveMarkers)
}

// LiveMarkers returns a copy of the markers currently drawn on preview.
func (r *Runner) LiveMarkers() []overlay.Marker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.liveMarkers.Markers()
}

// ScanVisible reports whether a barcode is currently in view.
func (r *Runner) ScanVisible() bool {
	if r.scan == nil {
		return false
	}
	return r.scan.Visible()
}

func (r *Runner) acquisitionLoop(ctx context.Context) {
	defer close(r.acqDone)
	for {
		frame, err := r.source.NextFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, framesource.ErrSourceLost) {
				r.logger.Warn("frame source lost",
					logging.String(logging.FieldDevice, r.source.Descriptor().Device),
					logging.Error(err))
				select {
				case r.events <- Event{Type: EventSourceLost, Device: r.source.Descriptor().Device, Err: err}:
				default:
				}
				return
			}
			r.logger.Warn("frame acquisition error", logging.Error(err))
			continue
		}

		r.mu.Lock()
		r.latest = frame
		recording := r.writer.Recording()
		markers := r.liveMarkers.Markers()
		r.mu.Unlock()

		if !recording {
			continue
		}
		composited, err := compositor.Composite(frame, markers)
		if err != nil {
			r.logger.Warn("compositing recording frame", logging.Error(err))
			continue
		}
		r.enqueueFrame(composited)
	}
}

// enqueueFrame applies drop-oldest backpressure.
func (r *Runner) enqueueFrame(frame *image.RGBA) {
	select {
	case r.encodeCh <- frame:
		return
	default:
	}
	select {
	case <-r.encodeCh:
	default:
	}
	select {
	case r.encodeCh <- frame:
	default:
	}
}

func (r *Runner) encodeLoop() {
	defer close(r.encDone)
	for frame := range r.encodeCh {
		if !r.writer.Recording() {
			continue
		}
		if err := r.writer.PushFrame(frame); err != nil {
			r.logger.Warn("pushing frame to encoder", logging.Error(err))
		}
	}
}

// CapturePhoto composites the latest frame with the live markers, writes
// it plus its sidecar under the capture root, and records it in the
// session.
func (r *Runner) CapturePhoto() (media.CapturedMedium, error) {
	r.mu.Lock()
	frame := r.latest
	markers := r.liveMarkers.Markers()
	r.mu.Unlock()
	if frame == nil {
		return media.CapturedMedium{}, services.Wrap(services.ErrUnavailable, "capture", "photo", "no frame available", nil)
	}

	serial := r.owner.Snapshot().SerialNumber
	path, err := media.CapturePath(r.cfg.Paths.CaptureDir, serial, media.KindImage, "png", time.Now())
	if err != nil {
		return media.CapturedMedium{}, err
	}
	// The still is stored raw; its markers live in the sidecar and the
	// manifest so renderers composite them on demand.
	if err := media.SaveImage(path, frame); err != nil {
		return media.CapturedMedium{}, err
	}

	medium := media.CapturedMedium{
		Path:       path,
		Kind:       media.KindImage,
		CameraID:   r.source.Descriptor().Device,
		Markers:    markers,
		CapturedAt: time.Now().UTC(),
	}
	r.owner.AddMedium(medium)
	stored := r.lastMedium()
	if err := media.WriteSidecar(stored); err != nil {
		r.logger.Warn("writing photo sidecar",
			logging.String(logging.FieldPath, path),
			logging.Error(err))
	}
	r.mu.Lock()
	r.liveMarkers.Clear()
	r.mu.Unlock()
	return stored, nil
}

// StartRecording opens the encoder against the source geometry. The
// writer stays idle when the encoder cannot start.
func (r *Runner) StartRecording(ctx context.Context) error {
	frame := r.LatestFrame()
	if frame == nil {
		return services.Wrap(services.ErrUnavailable, "capture", "record", "no frame available", nil)
	}
	serial := r.owner.Snapshot().SerialNumber
	path, err := media.CapturePath(r.cfg.Paths.CaptureDir, serial, media.KindVideo, r.cfg.Recording.Container, time.Now())
	if err != nil {
		return err
	}
	bounds := frame.Bounds()
	return r.writer.Start(ctx, path, bounds.Dx(), bounds.Dy(), r.cfg.Recording.FPS)
}

// StopRecording flushes the encoder and records the finished clip.
func (r *Runner) StopRecording() (media.CapturedMedium, error) {
	if !r.writer.Recording() {
		return media.CapturedMedium{}, services.Wrap(services.ErrValidation, "capture", "record", "not recording", nil)
	}
	path := r.writer.Path()
	if err := r.writer.Stop(); err != nil {
		return media.CapturedMedium{}, err
	}
	r.mu.Lock()
	markers := r.liveMarkers.Markers()
	r.mu.Unlock()

	medium := media.CapturedMedium{
		Path:       path,
		Kind:       media.KindVideo,
		CameraID:   r.source.Descriptor().Device,
		Markers:    markers,
		CapturedAt: time.Now().UTC(),
	}
	r.owner.AddMedium(medium)
	stored := r.lastMedium()
	if err := media.WriteSidecar(stored); err != nil {
		r.logger.Warn("writing recording sidecar",
			logging.String(logging.FieldPath, filepath.Clean(path)),
			logging.Error(err))
	}
	r.mu.Lock()
	r.liveMarkers.Clear()
	r.mu.Unlock()
	return stored, nil
}

// Recording reports whether the encoder is currently active.
func (r *Runner) Recording() bool {
	return r.writer.Recording()
}

// RecordingElapsed reports recorded time for the active clip.
func (r *Runner) RecordingElapsed() time.Duration {
	return r.writer.Elapsed()
}

// lastMedium returns the owner's view of the most recent capture, which
// includes the step stamp and attached scans.
func (r *Runner) lastMedium() media.CapturedMedium {
	state := r.owner.Snapshot()
	return state.Media[len(state.Media)-1]
}
