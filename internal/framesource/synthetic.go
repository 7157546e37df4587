package framesource

import (
	"context"
	"image"
	"image/color"
	"sync"
	"time"
)

// SyntheticSource generates deterministic gradient frames at a fixed
// rate. It stands in for a camera in tests and on machines without video
// hardware.
type SyntheticSource struct {
	width  int
	height int
	fps    int

	mu     sync.Mutex
	frame  int
	closed bool
}

// NewSynthetic builds a synthetic source with the given geometry.
func NewSynthetic(width, height, fps int) *SyntheticSource {
	if fps <= 0 {
		fps = 30
	}
	return &SyntheticSource{width: width, height: height, fps: fps}
}

// Descriptor identifies the synthetic device.
func (s *SyntheticSource) Descriptor() Descriptor {
	return Descriptor{Device: "synthetic", Index: -1, Label: "synthetic pattern"}
}

// NextFrame paces itself to the configured rate and returns the next
// pattern frame. The pattern shifts each frame so motion is visible.
func (s *SyntheticSource) NextFrame(ctx context.Context) (*image.RGBA, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSourceLost
	}
	n := s.frame
	s.frame++
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Second / time.Duration(s.fps)):
	}

	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8((x + n) % 256),
				G: uint8((y + n) % 256),
				B: uint8((x + y) % 256),
				A: 255,
			})
		}
	}
	return img, nil
}

// Close stops the source; subsequent NextFrame calls report ErrSourceLost.
func (s *SyntheticSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
