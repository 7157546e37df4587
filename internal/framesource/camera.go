package framesource

import (
	"context"
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

// commandContext is swapped out by tests to stub the capture binary.
var commandContext = exec.CommandContext

// CameraConfig describes how to open one V4L2 device.
type CameraConfig struct {
	Binary string
	Device string
	Width  int
	Height int
	FPS    int
}

// CameraSource streams raw RGBA frames from a V4L2 device through an
// ffmpeg subprocess.
type CameraSource struct {
	cfg    CameraConfig
	desc   Descriptor
	logger *slog.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdout io.ReadCloser
	cancel context.CancelFunc
	closed bool
}

// OpenCamera starts the capture subprocess. The returned source must be
// closed to reap the process.
func OpenCamera(ctx context.Context, cfg CameraConfig, logger *slog.Logger) (*CameraSource, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.FPS <= 0 {
		return nil, services.Wrap(services.ErrValidation, "framesource", "open",
			fmt.Sprintf("invalid geometry %dx%d@%d", cfg.Width, cfg.Height, cfg.FPS), nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	runCtx, cancel := context.WithCancel(ctx)
	cmd := commandContext(runCtx, cfg.Binary,
		"-hide_banner", "-loglevel", "error",
		"-f", "v4l2",
		"-video_size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-framerate", strconv.Itoa(cfg.FPS),
		"-i", cfg.Device,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, services.Wrap(services.ErrUnavailable, "framesource", "open", "stdout pipe", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, services.Wrap(services.ErrUnavailable, "framesource", "open",
			fmt.Sprintf("start %s", cfg.Binary), err)
	}

	idx, _ := videoIndex(lastPathComponent(cfg.Device))
	src := &CameraSource{
		cfg:    cfg,
		desc:   Descriptor{Device: cfg.Device, Index: idx},
		logger: logging.NewComponentLogger(logger, "framesource"),
		cmd:    cmd,
		stdout: stdout,
		cancel: cancel,
	}
	src.logger.Info("camera source opened",
		logging.String(logging.FieldDevice, cfg.Device),
		logging.Int("width", cfg.Width),
		logging.Int("height", cfg.Height),
		logging.Int("fps", cfg.FPS))
	return src, nil
}

// Descriptor identifies the device this source reads.
func (s *CameraSource) Descriptor() Descriptor {
	return s.desc
}

// NextFrame blocks until the subprocess delivers a full frame. A short
// read means the device vanished or the process died; both report
// ErrSourceLost.
func (s *CameraSource) NextFrame(ctx context.Context) (*image.RGBA, error) {
	s.mu.Lock()
	stdout := s.stdout
	closed := s.closed
	s.mu.Unlock()
	if closed || stdout == nil {
		return nil, ErrSourceLost
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frame := image.NewRGBA(image.Rect(0, 0, s.cfg.Width, s.cfg.Height))
	if _, err := io.ReadFull(stdout, frame.Pix); err != nil {
		s.logger.Warn("camera stream ended",
			logging.String(logging.FieldDevice, s.cfg.Device),
			logging.Error(err))
		return nil, services.Wrap(ErrSourceLost, "framesource", "next-frame", s.cfg.Device, err)
	}
	return frame, nil
}

// Close stops the subprocess and waits for it. Safe to call more than
// once.
func (s *CameraSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cmd := s.cmd
	cancel := s.cancel
	stdout := s.stdout
	s.mu.Unlock()

	if stdout != nil {
		_ = stdout.Close()
	}
	cancel()
	if cmd != nil {
		done := make(chan struct{})
		go func() {
			_ = cmd.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			if cmd.Process != nil {
				_ = cmd.Process.Kill()
			}
			<-done
		}
	}
	s.logger.Info("camera source closed", logging.String(logging.FieldDevice, s.cfg.Device))
	return nil
}

func lastPathComponent(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
