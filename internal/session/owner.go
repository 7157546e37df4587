package session

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"sightline/internal/logging"
	"sightline/internal/media"
	"sightline/internal/overlay"
	"sightline/internal/services"
	"sightline/internal/stepcheck"
	"sightline/internal/workflow"
)

// Owner serializes all mutation of one run's State. Producer tasks call
// into it concurrently; everything else sees snapshots via Snapshot.
type Owner struct {
	mu     sync.Mutex
	state  *State
	def    *workflow.Definition
	logger *slog.Logger

	// onChange, when set, receives a snapshot after every mutation. The
	// snapshot package uses it to schedule background saves.
	onChange func(*State)
}

// NewOwner wraps an existing state, typically one loaded from a snapshot.
// def is nil for capture mode.
func NewOwner(state *State, def *workflow.Definition, logger *slog.Logger) (*Owner, error) {
	if state == nil {
		return nil, services.Wrap(services.ErrValidation, "session", "new", "nil state", nil)
	}
	if state.Mode.Guided() && def == nil {
		return nil, services.Wrap(services.ErrValidation, "session", "new",
			fmt.Sprintf("mode %s requires a workflow definition", state.Mode), nil)
	}
	if def != nil && (state.CurrentStep < 0 || state.CurrentStep >= len(def.Steps)) {
		return nil, services.Wrap(services.ErrCorrupt, "session", "new",
			fmt.Sprintf("current step %d outside workflow %q", state.CurrentStep, def.Name), nil)
	}
	if state.CheckboxStates == nil {
		state.CheckboxStates = map[string]bool{}
	}
	if state.StepResults == nil {
		state.StepResults = map[int]StepResult{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Owner{state: state, def: def, logger: logger}, nil
}

// Start builds a fresh run and its owner in one call.
func Start(mode Mode, serial, description string, def *workflow.Definition, logger *slog.Logger) (*Owner, error) {
	name := ""
	if def != nil {
		name = def.Name
	}
	return NewOwner(NewState(mode, serial, description, name), def, logger)
}

// OnChange registers the post-mutation callback. Must be called before the
// owner is shared with producer tasks.
func (o *Owner) OnChange(fn func(*State)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onChange = fn
}

// Snapshot returns a deep copy of the current state.
func (o *Owner) Snapshot() *State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Clone()
}

// Definition returns the attached workflow, nil in capture mode.
func (o *Owner) Definition() *workflow.Definition {
	return o.def
}

// CurrentStep returns the active step and its index. ok is false in
// capture mode.
func (o *Owner) CurrentStep() (workflow.Step, int, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.def == nil {
		return workflow.Step{}, 0, false
	}
	return o.def.Steps[o.state.CurrentStep], o.state.CurrentStep, true
}

func (o *Owner) touch() {
	o.state.UpdatedAt = time.Now().UTC()
	if o.onChange != nil {
		o.onChange(o.state.Clone())
	}
}

// AddMedium appends a captured photo or recording to the manifest. In
// guided modes the medium is stamped with the current step and carries a
// copy of the scans seen so far on that step.
func (o *Owner) AddMedium(m media.CapturedMedium) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.def != nil {
		idx := o.state.CurrentStep
		m.StepIndex = &idx
	}
	if len(o.state.ActiveScans) > 0 {
		m.BarcodeScans = append(m.BarcodeScans, o.state.ActiveScans...)
	}
	o.state.Media = append(o.state.Media, m)
	o.logger.Info("medium captured",
		logging.String(logging.FieldPath, m.Path),
		logging.String("kind", string(m.Kind)))
	o.touch()
}

// SetNotes updates the notes on an existing medium. Media are otherwise
// immutable once captured.
func (o *Owner) SetNotes(path, notes string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.state.Media {
		if o.state.Media[i].Path == path {
			o.state.Media[i].Notes = notes
			o.touch()
			return nil
		}
	}
	return services.Wrap(services.ErrNotFound, "session", "set-notes", path, nil)
}

// SetMarkers replaces the annotation overlay on an existing medium.
func (o *Owner) SetMarkers(path string, markers []overlay.Marker) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.state.Media {
		if o.state.Media[i].Path == path {
			o.state.Media[i].Markers = append([]overlay.Marker(nil), markers...)
			o.touch()
			return nil
		}
	}
	return services.Wrap(services.ErrNotFound, "session", "set-markers", path, nil)
}

// ToggleCheckbox flips one checkbox on the current step.
func (o *Owner) ToggleCheckbox(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	step, err := o.activeStep()
	if err != nil {
		return err
	}
	for _, known := range step.CheckboxIDs() {
		if known == id {
			o.state.CheckboxStates[id] = !o.state.CheckboxStates[id]
			o.touch()
			return nil
		}
	}
	return services.Wrap(services.ErrNotFound, "session", "toggle-checkbox", id, nil)
}

// SetPassFail records or clears the operator's explicit mark for the
// current step. Pass nil to clear.
func (o *Owner) SetPassFail(mark *bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, err := o.activeStep(); err != nil {
		return err
	}
	if mark == nil {
		o.state.PassFail = nil
	} else {
		v := *mark
		o.state.PassFail = &v
	}
	o.touch()
	return nil
}

// RecordScan appends a barcode hit to the current step's active list. In
// capture mode a QR payload also extends the serial number, matching how
// units without printed serials are labelled in the field.
func (o *Owner) RecordScan(scan media.BarcodeScan) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.def != nil {
		idx := o.state.CurrentStep
		scan.StepIndex = &idx
	}
	o.state.ActiveScans = append(o.state.ActiveScans, scan)
	if o.state.Mode == ModeCapture && scan.Symbology == "QRCODE" {
		o.appendSerial(scan.Payload)
	}
	o.logger.Info("barcode recorded",
		logging.String("symbology", scan.Symbology),
		logging.String(logging.FieldSessionID, o.state.ID))
	o.touch()
}

func (o *Owner) appendSerial(payload string) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return
	}
	if o.state.SerialNumber == "" {
		o.state.SerialNumber = payload
		return
	}
	o.state.SerialNumber = o.state.SerialNumber + "_" + payload
}

// Evaluate runs the validator against the current step without mutating
// anything, so the UI can show live gate status.
func (o *Owner) Evaluate() (stepcheck.Decision, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	step, err := o.activeStep()
	if err != nil {
		return stepcheck.Decision{}, err
	}
	return stepcheck.Evaluate(step, o.evidence()), nil
}

// Advance submits the current step. When the validator allows it, the
// outcome is recorded, per-step scratch state is cleared, and the run
// moves to the next step or completes. A blocked decision is returned
// with a nil error; callers distinguish the two by Decision.Allowed.
func (o *Owner) Advance() (stepcheck.Decision, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	step, err := o.activeStep()
	if err != nil {
		return stepcheck.Decision{}, err
	}
	if o.state.Completed {
		return stepcheck.Decision{}, services.Wrap(services.ErrValidation, "session", "advance", "run already completed", nil)
	}
	decision := stepcheck.Evaluate(step, o.evidence())
	if !decision.Allowed {
		o.logger.Info("advancement blocked",
			logging.Int(logging.FieldStepIndex, o.state.CurrentStep),
			logging.Any("reasons", decision.Reasons))
		return decision, nil
	}
	o.state.StepResults[o.state.CurrentStep] = StepResult{
		Status:      decision.Status,
		CompletedAt: time.Now().UTC(),
	}
	o.enterStep(o.state.CurrentStep + 1)
	o.touch()
	return decision, nil
}

// Back returns to the previous step. The revisited step starts fresh:
// its recorded result, checkbox values, and active scans are discarded,
// while its captured media stay in the manifest.
func (o *Owner) Back() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, err := o.activeStep(); err != nil {
		return err
	}
	if o.state.CurrentStep == 0 && !o.state.Completed {
		return services.Wrap(services.ErrValidation, "session", "back", "already at first step", nil)
	}
	target := o.state.CurrentStep - 1
	if o.state.Completed {
		target = o.state.CurrentStep
		o.state.Completed = false
	}
	o.enterStep(target)
	for idx := range o.state.StepResults {
		if idx >= o.state.CurrentStep {
			delete(o.state.StepResults, idx)
		}
	}
	o.touch()
	return nil
}

// enterStep resets per-step scratch state and positions the run. Stepping
// past the last step completes the run instead of moving the index.
func (o *Owner) enterStep(idx int) {
	if idx >= len(o.def.Steps) {
		o.state.Completed = true
		o.logger.Info("run completed", logging.String(logging.FieldSessionID, o.state.ID))
	} else {
		o.state.CurrentStep = idx
	}
	o.state.CheckboxStates = map[string]bool{}
	o.state.PassFail = nil
	o.state.ActiveScans = nil
}

func (o *Owner) activeStep() (workflow.Step, error) {
	if o.def == nil {
		return workflow.Step{}, services.Wrap(services.ErrValidation, "session", "step", "capture mode has no workflow steps", nil)
	}
	return o.def.Steps[o.state.CurrentStep], nil
}

func (o *Owner) evidence() stepcheck.Evidence {
	return stepcheck.Evidence{
		StepIndex:  o.state.CurrentStep,
		Media:      o.state.Media,
		ScanCount:  len(o.state.ActiveScans),
		PassFail:   o.state.PassFail,
		Checkboxes: o.state.CheckboxStates,
	}
}
