package workflow

// Checkbox is an inspection point anchored on a step's reference image at a
// frame-relative coordinate. All of a step's checkboxes must be checked for
// an automatic Pass.
type Checkbox struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Step is one unit of a procedure.
type Step struct {
	Title              string     `json:"title"`
	Instructions       string     `json:"instructions"`
	ReferenceImage     string     `json:"reference_image,omitempty"`
	Checkboxes         []Checkbox `json:"checkboxes,omitempty"`
	RequirePhoto       bool       `json:"require_photo"`
	RequireAnnotations bool       `json:"require_annotations"`
	RequirePassFail    bool       `json:"require_pass_fail"`
	RequireBarcodeScan bool       `json:"require_barcode_scan"`
}

// Definition is a named, ordered procedure. Immutable during execution.
type Definition struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Steps       []Step `json:"steps"`
}

// HasRequirements reports whether any advancement gate is set on the step.
func (s Step) HasRequirements() bool {
	return s.RequirePhoto || s.RequireAnnotations || s.RequirePassFail || s.RequireBarcodeScan
}

// CheckboxIDs returns the step's checkbox identifiers in definition order.
func (s Step) CheckboxIDs() []string {
	if len(s.Checkboxes) == 0 {
		return nil
	}
	ids := make([]string, len(s.Checkboxes))
	for i, box := range s.Checkboxes {
		ids[i] = box.ID
	}
	return ids
}
