package media

import (
	"time"

	"sightline/internal/overlay"
)

// Kind distinguishes still captures from recordings.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// BarcodeScan is one decoded symbol. Scans are appended to the active step's
// scan list and additionally retained inside whichever captured medium they
// were attached to, so reports can show every scan ever produced.
type BarcodeScan struct {
	Symbology string    `json:"symbology"`
	Payload   string    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
	StepIndex *int      `json:"step_index,omitempty"`
}

// CapturedMedium is one evidence file in a session's manifest. Once written
// it is immutable except for Notes; the raw frame is stored without
// annotation burn-in and markers are composited on demand.
type CapturedMedium struct {
	Path         string           `json:"path"`
	Kind         Kind             `json:"kind"`
	CameraID     string           `json:"camera_id"`
	Notes        string           `json:"notes"`
	Markers      []overlay.Marker `json:"markers,omitempty"`
	BarcodeScans []BarcodeScan    `json:"barcode_scans,omitempty"`
	StepIndex    *int             `json:"step_index,omitempty"`
	CapturedAt   time.Time        `json:"captured_at"`
}

// Annotated reports whether the medium carries at least one marker.
func (m CapturedMedium) Annotated() bool {
	return len(m.Markers) > 0
}

// ForStep reports whether the medium belongs to the given workflow step.
func (m CapturedMedium) ForStep(step int) bool {
	return m.StepIndex != nil && *m.StepIndex == step
}
