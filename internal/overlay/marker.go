package overlay

import (
	"errors"
	"math"
)

// Arrow length bounds in pixels. Interactive adjustment moves in steps of
// LengthStep per scroll tick.
const (
	MinLength  = 50
	MaxLength  = 300
	LengthStep = 10

	// labelOffset is the perpendicular distance from the tail to the label
	// badge center.
	labelOffset = 18.0
)

// ErrInvalidFrame reports a zero-area target frame.
var ErrInvalidFrame = errors.New("overlay: invalid frame size")

// Marker is an operator-placed annotation: an arrow anchored at a
// frame-relative coordinate with a sequential letter label.
type Marker struct {
	Label  string  `json:"label"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Angle  float64 `json:"angle"`
	Length int     `json:"length_px"`
}

// Point is an absolute pixel position on a concrete frame.
type Point struct {
	X float64
	Y float64
}

// Projection is the absolute draw geometry of one marker on one frame size.
type Projection struct {
	Tail        Point
	Tip         Point
	LabelCenter Point
}

// Project converts a marker into absolute pixel geometry for the given frame
// size. The tail lands exactly at (X*width, Y*height); the tip extends
// Length pixels along Angle, where 0 degrees points right and angles grow
// clockwise. The label center sits perpendicular to the arrow on the tail
// side so it does not cover what the arrow points at.
func Project(m Marker, width, height int) (Projection, error) {
	if width <= 0 || height <= 0 {
		return Projection{}, ErrInvalidFrame
	}

	angle := NormalizeAngle(m.Angle)
	length := ClampLength(m.Length)
	x := clampUnit(m.X)
	y := clampUnit(m.Y)

	rad := angle * math.Pi / 180
	sin, cos := math.Sincos(rad)

	tail := Point{X: x * float64(width), Y: y * float64(height)}
	tip := Point{X: tail.X + float64(length)*cos, Y: tail.Y + float64(length)*sin}
	label := Point{X: tail.X - labelOffset*sin, Y: tail.Y + labelOffset*cos}

	return Projection{Tail: tail, Tip: tip, LabelCenter: label}, nil
}

// NormalizeAngle folds an angle in degrees into [0,360).
func NormalizeAngle(angle float64) float64 {
	angle = math.Mod(angle, 360)
	if angle < 0 {
		angle += 360
	}
	return angle
}

// ClampLength bounds an arrow length to [MinLength,MaxLength]. A zero value
// (unset) becomes MinLength.
func ClampLength(length int) int {
	if length < MinLength {
		return MinLength
	}
	if length > MaxLength {
		return MaxLength
	}
	return length
}

// clampUnit bounds a relative coordinate to [0,1]. Interactive dragging can
// transiently push coordinates slightly out of bounds; those are tolerated
// by clamping, never rejected.
func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
