package session

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"sightline/internal/media"
	"sightline/internal/overlay"
	"sightline/internal/stepcheck"
)

// Mode selects which capabilities a run exposes. Capture is a free-form
// photo/video workspace with no workflow attached; the guided modes walk a
// workflow definition step by step.
type Mode string

const (
	ModeCapture     Mode = "capture"
	ModeQC          Mode = "qc"
	ModeMaintenance Mode = "maintenance"
)

// Guided reports whether the mode walks a workflow definition.
func (m Mode) Guided() bool {
	return m == ModeQC || m == ModeMaintenance
}

// StepResult records the validator outcome for a completed step.
type StepResult struct {
	Status      stepcheck.Status `json:"status"`
	CompletedAt time.Time        `json:"completed_at"`
}

// State is the full serializable record of a run. It is written only by
// Owner; everything else works with copies.
type State struct {
	ID           string `json:"id"`
	SerialNumber string `json:"serial_number,omitempty"`
	Description  string `json:"description,omitempty"`
	Mode         Mode   `json:"mode"`
	WorkflowName string `json:"workflow_name,omitempty"`

	CurrentStep int  `json:"current_step"`
	Completed   bool `json:"completed"`

	Media []media.CapturedMedium `json:"media"`

	// CheckboxStates holds the current step's checkbox values keyed by
	// checkbox id. Earlier steps' values are folded into StepResults and
	// the map is reset whenever a step is entered.
	CheckboxStates map[string]bool `json:"checkbox_states,omitempty"`

	// PassFail is the operator's explicit mark for the current step, if
	// any. Cleared on every step transition.
	PassFail *bool `json:"pass_fail,omitempty"`

	// ActiveScans are the barcode payloads seen since the current step
	// began. Cleared on advancement; scans captured alongside a medium
	// are retained inside that medium regardless.
	ActiveScans []media.BarcodeScan `json:"active_scans,omitempty"`

	StepResults map[int]StepResult `json:"step_results,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewState builds a fresh run. workflowName is empty for capture mode.
func NewState(mode Mode, serial, description, workflowName string) *State {
	now := time.Now().UTC()
	return &State{
		ID:             uuid.NewString(),
		SerialNumber:   strings.TrimSpace(serial),
		Description:    strings.TrimSpace(description),
		Mode:           mode,
		WorkflowName:   workflowName,
		CheckboxStates: map[string]bool{},
		StepResults:    map[int]StepResult{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Clone returns a deep copy safe to hand to persistence or the UI while
// the owner keeps mutating the original.
func (s *State) Clone() *State {
	dup := *s
	dup.Media = make([]media.CapturedMedium, len(s.Media))
	for i, m := range s.Media {
		dup.Media[i] = cloneMedium(m)
	}
	if s.CheckboxStates != nil {
		dup.CheckboxStates = make(map[string]bool, len(s.CheckboxStates))
		for k, v := range s.CheckboxStates {
			dup.CheckboxStates[k] = v
		}
	}
	if s.PassFail != nil {
		v := *s.PassFail
		dup.PassFail = &v
	}
	if s.ActiveScans != nil {
		dup.ActiveScans = append([]media.BarcodeScan(nil), s.ActiveScans...)
	}
	if s.StepResults != nil {
		dup.StepResults = make(map[int]StepResult, len(s.StepResults))
		for k, v := range s.StepResults {
			dup.StepResults[k] = v
		}
	}
	return &dup
}

func cloneMedium(m media.CapturedMedium) media.CapturedMedium {
	dup := m
	dup.Markers = append([]overlay.Marker(nil), m.Markers...)
	dup.BarcodeScans = append([]media.BarcodeScan(nil), m.BarcodeScans...)
	if m.StepIndex != nil {
		idx := *m.StepIndex
		dup.StepIndex = &idx
	}
	return dup
}
