package overlay

import (
	"math"
	"testing"
)

func TestProjectTailIsExact(t *testing.T) {
	cases := []struct {
		name   string
		marker Marker
		w, h   int
		wantX  float64
		wantY  float64
	}{
		{"center small frame", Marker{X: 0.5, Y: 0.5, Length: 50}, 640, 480, 320, 240},
		{"center large frame", Marker{X: 0.5, Y: 0.5, Length: 50}, 1920, 1080, 960, 540},
		{"origin", Marker{X: 0, Y: 0, Length: 50}, 800, 600, 0, 0},
		{"far corner", Marker{X: 1, Y: 1, Length: 50}, 800, 600, 800, 600},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Project(tc.marker, tc.w, tc.h)
			if err != nil {
				t.Fatalf("Project: %v", err)
			}
			if p.Tail.X != tc.wantX || p.Tail.Y != tc.wantY {
				t.Fatalf("tail = (%v,%v), want (%v,%v)", p.Tail.X, p.Tail.Y, tc.wantX, tc.wantY)
			}
		})
	}
}

func TestProjectResolutionIndependence(t *testing.T) {
	m := Marker{X: 0.25, Y: 0.75, Angle: 135, Length: 120}
	small, err := Project(m, 640, 480)
	if err != nil {
		t.Fatalf("Project small: %v", err)
	}
	large, err := Project(m, 1920, 1080)
	if err != nil {
		t.Fatalf("Project large: %v", err)
	}
	if small.Tail.X/640 != large.Tail.X/1920 {
		t.Error("relative tail X differs between frame sizes")
	}
	if small.Tail.Y/480 != large.Tail.Y/1080 {
		t.Error("relative tail Y differs between frame sizes")
	}
	// Arrow length is absolute pixels on both.
	dSmall := math.Hypot(small.Tip.X-small.Tail.X, small.Tip.Y-small.Tail.Y)
	dLarge := math.Hypot(large.Tip.X-large.Tail.X, large.Tip.Y-large.Tail.Y)
	if math.Abs(dSmall-120) > 1e-9 || math.Abs(dLarge-120) > 1e-9 {
		t.Fatalf("arrow lengths %v, %v; want 120", dSmall, dLarge)
	}
}

func TestProjectIsDeterministic(t *testing.T) {
	m := Marker{X: 0.3, Y: 0.6, Angle: 47.5, Length: 200}
	a, _ := Project(m, 1280, 720)
	b, _ := Project(m, 1280, 720)
	if a != b {
		t.Fatalf("repeated projection differs: %+v vs %+v", a, b)
	}
}

func TestProjectAngleZeroPointsRight(t *testing.T) {
	p, err := Project(Marker{X: 0.5, Y: 0.5, Angle: 0, Length: 100}, 1000, 1000)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if math.Abs(p.Tip.X-p.Tail.X-100) > 1e-9 || math.Abs(p.Tip.Y-p.Tail.Y) > 1e-9 {
		t.Fatalf("tip offset (%v,%v), want (100,0)", p.Tip.X-p.Tail.X, p.Tip.Y-p.Tail.Y)
	}
}

func TestProjectAngleNinetyPointsDown(t *testing.T) {
	// Angles grow clockwise in screen coordinates, so 90 points down.
	p, err := Project(Marker{X: 0.5, Y: 0.5, Angle: 90, Length: 100}, 1000, 1000)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if math.Abs(p.Tip.Y-p.Tail.Y-100) > 1e-9 {
		t.Fatalf("tip Y offset %v, want 100", p.Tip.Y-p.Tail.Y)
	}
}

func TestProjectNormalizesAngle(t *testing.T) {
	a, _ := Project(Marker{X: 0.5, Y: 0.5, Angle: 45, Length: 100}, 640, 480)
	b, _ := Project(Marker{X: 0.5, Y: 0.5, Angle: 405, Length: 100}, 640, 480)
	c, _ := Project(Marker{X: 0.5, Y: 0.5, Angle: -315, Length: 100}, 640, 480)
	if a != b || a != c {
		t.Fatal("equivalent angles project differently")
	}
}

func TestProjectClampsLengthAndCoordinates(t *testing.T) {
	p, err := Project(Marker{X: 1.2, Y: -0.1, Angle: 0, Length: 9999}, 100, 100)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if p.Tail.X != 100 || p.Tail.Y != 0 {
		t.Fatalf("tail = %+v, want clamped to (100,0)", p.Tail)
	}
	if got := p.Tip.X - p.Tail.X; got != MaxLength {
		t.Fatalf("length %v, want clamped to %d", got, MaxLength)
	}
}

func TestProjectRejectsZeroAreaFrame(t *testing.T) {
	for _, dims := range [][2]int{{0, 480}, {640, 0}, {0, 0}, {-1, 480}} {
		if _, err := Project(Marker{X: 0.5, Y: 0.5}, dims[0], dims[1]); err != ErrInvalidFrame {
			t.Fatalf("frame %v: got %v, want ErrInvalidFrame", dims, err)
		}
	}
}
