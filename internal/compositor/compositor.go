package compositor

import (
	"image"
	"image/draw"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"sightline/internal/overlay"
)

// Drawing parameters. Sizes are absolute pixels so annotations keep a
// constant on-screen weight regardless of frame resolution, matching the
// arrow length contract in the overlay package.
const (
	shaftWidth   = 3.0
	headLength   = 12.0
	headSpread   = math.Pi / 7
	badgeRadius  = 13.0
	badgeStroke  = 2.0
	checkboxSize = 22.0
)

// CheckboxMark positions one inspection checkbox on a frame, with its
// per-session checked state.
type CheckboxMark struct {
	ID      string
	X       float64
	Y       float64
	Checked bool
}

// Composite draws the given markers onto a copy of frame and returns the
// annotated buffer. The input frame is never mutated. Marker coordinates
// outside [0,1] are clamped by projection, never rejected.
func Composite(frame image.Image, markers []overlay.Marker) (*image.RGBA, error) {
	return CompositeWithCheckboxes(frame, markers, nil)
}

// CompositeWithCheckboxes additionally renders inspection checkbox squares,
// used when annotating a step's reference image for display or reporting.
func CompositeWithCheckboxes(frame image.Image, markers []overlay.Marker, boxes []CheckboxMark) (*image.RGBA, error) {
	bounds := frame.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, overlay.ErrInvalidFrame
	}

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(out, out.Bounds(), frame, bounds.Min, draw.Src)

	dc := gg.NewContextForRGBA(out)
	dc.SetFontFace(basicfont.Face7x13)

	for _, box := range boxes {
		drawCheckbox(dc, box, width, height)
	}
	for _, m := range markers {
		projection, err := overlay.Project(m, width, height)
		if err != nil {
			return nil, err
		}
		drawMarker(dc, m.Label, projection)
	}
	return out, nil
}

func drawMarker(dc *gg.Context, label string, p overlay.Projection) {
	// Shaft.
	dc.SetRGB(1, 0, 0)
	dc.SetLineWidth(shaftWidth)
	dc.DrawLine(p.Tail.X, p.Tail.Y, p.Tip.X, p.Tip.Y)
	dc.Stroke()

	// Head: two strokes swept back from the tip.
	angle := math.Atan2(p.Tip.Y-p.Tail.Y, p.Tip.X-p.Tail.X)
	for _, side := range []float64{-1, 1} {
		theta := angle + math.Pi + side*headSpread
		dc.DrawLine(p.Tip.X, p.Tip.Y, p.Tip.X+headLength*math.Cos(theta), p.Tip.Y+headLength*math.Sin(theta))
	}
	dc.Stroke()

	// Label badge: filled white circle with red ring, label centered.
	dc.SetRGB(1, 1, 1)
	dc.DrawCircle(p.LabelCenter.X, p.LabelCenter.Y, badgeRadius)
	dc.Fill()
	dc.SetRGB(1, 0, 0)
	dc.SetLineWidth(badgeStroke)
	dc.DrawCircle(p.LabelCenter.X, p.LabelCenter.Y, badgeRadius)
	dc.Stroke()
	dc.DrawStringAnchored(label, p.LabelCenter.X, p.LabelCenter.Y, 0.5, 0.5)
}

func drawCheckbox(dc *gg.Context, box CheckboxMark, width, height int) {
	x := clampUnit(box.X)*float64(width) - checkboxSize/2
	y := clampUnit(box.Y)*float64(height) - checkboxSize/2

	if box.Checked {
		dc.SetRGB(0, 0.76, 0.25)
		dc.DrawRectangle(x, y, checkboxSize, checkboxSize)
		dc.Fill()
		// Check stroke.
		dc.SetRGB(1, 1, 1)
		dc.SetLineWidth(3)
		dc.DrawLine(x+checkboxSize*0.2, y+checkboxSize*0.55, x+checkboxSize*0.4, y+checkboxSize*0.78)
		dc.DrawLine(x+checkboxSize*0.4, y+checkboxSize*0.78, x+checkboxSize*0.82, y+checkboxSize*0.22)
		dc.Stroke()
	} else {
		dc.SetRGB(1, 0.42, 0)
		dc.SetLineWidth(3)
		dc.DrawRectangle(x, y, checkboxSize, checkboxSize)
		dc.Stroke()
	}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
