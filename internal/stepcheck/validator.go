package stepcheck

import (
	"sightline/internal/media"
	"sightline/internal/workflow"
)

// Status is the recorded outcome of a step.
type Status string

const (
	// StatusComplete records a finished step with no pass/fail criteria.
	StatusComplete Status = "Complete"
	// StatusPass records an explicit pass or a fully checked inspection list.
	StatusPass Status = "Pass"
	// StatusFail records an explicit fail or an incomplete inspection list.
	StatusFail Status = "Fail"
)

// Reason identifies one unmet advancement requirement.
type Reason string

const (
	MissingPhoto      Reason = "MissingPhoto"
	MissingAnnotation Reason = "MissingAnnotation"
	MissingScan       Reason = "MissingScan"
	MissingPassFail   Reason = "MissingPassFail"
)

// Evidence is everything captured for the step under evaluation.
type Evidence struct {
	// StepIndex selects which media manifest entries count for this step.
	StepIndex int
	// Media is the session manifest; entries are filtered by StepIndex.
	Media []media.CapturedMedium
	// ScanCount is the number of barcode scans recorded while this step was
	// active (the per-step list, not the session-wide retention).
	ScanCount int
	// PassFail is the operator's explicit mark; nil when unset.
	PassFail *bool
	// Checkboxes maps checkbox id to checked state. Missing ids count as
	// unchecked.
	Checkboxes map[string]bool
}

// Decision is the validator's verdict.
type Decision struct {
	// Allowed reports whether advancement is permitted.
	Allowed bool
	// Status is the outcome to record; meaningful only when Allowed.
	Status Status
	// Reasons lists every unmet requirement; empty when Allowed.
	Reasons []Reason
}

// Evaluate applies the step's requirement gates and checkbox rule to the
// evidence. It is pure: calling it repeatedly without new evidence yields
// the same verdict.
func Evaluate(step workflow.Step, ev Evidence) Decision {
	var reasons []Reason

	if step.RequirePhoto && !hasStepImage(ev) {
		reasons = append(reasons, MissingPhoto)
	}
	if step.RequireAnnotations && !hasAnnotatedStepImage(ev) {
		reasons = append(reasons, MissingAnnotation)
	}
	if step.RequireBarcodeScan && ev.ScanCount == 0 {
		reasons = append(reasons, MissingScan)
	}
	if step.RequirePassFail && ev.PassFail == nil {
		reasons = append(reasons, MissingPassFail)
	}

	if len(reasons) > 0 {
		return Decision{Allowed: false, Reasons: reasons}
	}

	return Decision{Allowed: true, Status: outcome(step, ev)}
}

func outcome(step workflow.Step, ev Evidence) Status {
	hasCheckboxes := len(step.Checkboxes) > 0
	if hasCheckboxes && !allChecked(step, ev.Checkboxes) {
		// Incomplete checklist forces Fail. Advancement stays permitted;
		// the checklist gates status, not progress.
		return StatusFail
	}
	if ev.PassFail != nil {
		if *ev.PassFail {
			return StatusPass
		}
		return StatusFail
	}
	if hasCheckboxes {
		return StatusPass
	}
	return StatusComplete
}

func allChecked(step workflow.Step, states map[string]bool) bool {
	for _, box := range step.Checkboxes {
		if !states[box.ID] {
			return false
		}
	}
	return true
}

func hasStepImage(ev Evidence) bool {
	for _, m := range ev.Media {
		if m.Kind == media.KindImage && m.ForStep(ev.StepIndex) {
			return true
		}
	}
	return false
}

func hasAnnotatedStepImage(ev Evidence) bool {
	for _, m := range ev.Media {
		if m.Kind == media.KindImage && m.ForStep(ev.StepIndex) && m.Annotated() {
			return true
		}
	}
	return false
}
