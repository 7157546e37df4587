package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"sightline/internal/logging"
	"sightline/internal/services"
)

// ErrEncoderUnavailable reports that the encoder process could not be
// started. The writer stays Idle; the operator may retry or pick another
// container.
var ErrEncoderUnavailable = errors.New("video: encoder unavailable")

// ErrNotRecording reports a frame push outside the Recording state.
var ErrNotRecording = errors.New("video: not recording")

var commandContext = exec.CommandContext

type state int

const (
	stateIdle state = iota
	stateRecording
)

// Writer encodes a sequence of composited frames to a container on disk.
type Writer struct {
	binary string
	logger *slog.Logger

	mu       sync.Mutex
	state    state
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	waitErr  chan error
	path     string
	width    int
	height   int
	fps      int
	frames   int64
}

// NewWriter constructs a writer that launches the given ffmpeg binary.
func NewWriter(binary string, logger *slog.Logger) *Writer {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Writer{
		binary: binary,
		logger: logging.NewComponentLogger(logger, "video-writer"),
	}
}

// Start opens the encoder sink for the given geometry and target rate. On
// failure the writer remains Idle and ErrEncoderUnavailable is returned.
func (w *Writer) Start(ctx context.Context, path string, width, height, fps int) error {
	if width <= 0 || height <= 0 {
		return services.Wrap(services.ErrValidation, "video", "start", fmt.Sprintf("invalid frame size %dx%d", width, height), nil)
	}
	if fps <= 0 {
		fps = 20
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == stateRecording {
		return services.Wrap(services.ErrValidation, "video", "start", "already recording", nil)
	}

	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", width, height),
		"-framerate", strconv.Itoa(fps),
		"-i", "-",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		path,
	}
	cmd := commandContext(ctx, w.binary, args...) //nolint:gosec
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: stdin pipe: %w", ErrEncoderUnavailable, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start %s: %w", ErrEncoderUnavailable, w.binary, err)
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	w.cmd = cmd
	w.stdin = stdin
	w.waitErr = waitErr
	w.path = path
	w.width = width
	w.height = height
	w.fps = fps
	w.frames = 0
	w.state = stateRecording

	w.logger.Info("recording started",
		logging.String(logging.FieldPath, path),
		logging.Int("width", width),
		logging.Int("height", height),
		logging.Int("fps", fps),
	)
	return nil
}

// PushFrame hands one pre-composited frame to the encoder. Frames must match
// the size the writer was started with.
func (w *Writer) PushFrame(frame *image.RGBA) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != stateRecording {
		return ErrNotRecording
	}
	bounds := frame.Bounds()
	if bounds.Dx() != w.width || bounds.Dy() != w.height {
		return services.Wrap(services.ErrValidation, "video", "push frame",
			fmt.Sprintf("frame %dx%d does not match writer %dx%d", bounds.Dx(), bounds.Dy(), w.width, w.height), nil)
	}
	if _, err := w.stdin.Write(frame.Pix); err != nil {
		// Encoder died mid-stream; close out so the partial container is
		// finalized as far as ffmpeg managed to get.
		w.stopLocked()
		return services.Wrap(services.ErrExternalTool, "video", "push frame", "encoder write failed", err)
	}
	w.frames++
	return nil
}

// Stop flushes and closes the encoder. It is idempotent and safe to call
// from any exit path; a no-op when the writer is already Idle.
func (w *Writer) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopLocked()
}

func (w *Writer) stopLocked() error {
	if w.state != stateRecording {
		return nil
	}
	w.state = stateIdle

	var closeErr error
	if w.stdin != nil {
		closeErr = w.stdin.Close()
		w.stdin = nil
	}

	var waitResult error
	select {
	case waitResult = <-w.waitErr:
	case <-time.After(10 * time.Second):
		if w.cmd != nil && w.cmd.Process != nil {
			_ = w.cmd.Process.Kill()
		}
		waitResult = <-w.waitErr
	}
	w.cmd = nil
	w.waitErr = nil

	w.logger.Info("recording stopped",
		logging.String(logging.FieldPath, w.path),
		logging.Int64("frames", w.frames),
		logging.Duration("elapsed", w.elapsedLocked()),
	)

	if waitResult != nil {
		return services.Wrap(services.ErrExternalTool, "video", "stop", "encoder exited with error", waitResult)
	}
	return closeErr
}

// Recording reports whether the writer currently accepts frames.
func (w *Writer) Recording() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state == stateRecording
}

// Path returns the container destination of the current or last recording.
func (w *Writer) Path() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.path
}

// FrameCount returns the number of frames pushed since Start.
func (w *Writer) FrameCount() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

// Elapsed reports recorded time derived from the pushed frame count at the
// target rate. Wall-clock sampling would drift under frame jitter; this
// counter cannot.
func (w *Writer) Elapsed() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.elapsedLocked()
}

func (w *Writer) elapsedLocked() time.Duration {
	if w.fps <= 0 {
		return 0
	}
	return time.Duration(w.frames) * time.Second / time.Duration(w.fps)
}
