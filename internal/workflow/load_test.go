package workflow_test

import (
	"errors"
	"path/filepath"
	"testing"

	"sightline/internal/services"
	"sightline/internal/testsupport"
	"sightline/internal/workflow"
)

const sampleWorkflow = `{
  "name": "Pump QC",
  "description": "Quarterly pump inspection",
  "steps": [
    {
      "title": "Inspect housing",
      "instructions": "Check for cracks and corrosion.",
      "reference_image": "housing.png",
      "checkboxes": [
        {"id": "seal", "x": 0.2, "y": 0.3},
        {"id": "bolts", "x": 0.7, "y": 0.6}
      ],
      "require_photo": true,
      "require_annotations": true,
      "require_pass_fail": false,
      "require_barcode_scan": false
    },
    {
      "title": "Scan asset tag",
      "instructions": "Scan the barcode on the nameplate.",
      "require_photo": false,
      "require_annotations": false,
      "require_pass_fail": true,
      "require_barcode_scan": true
    }
  ]
}`

func TestLoadParsesDefinition(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pump-qc.json")
	testsupport.WriteFile(t, path, []byte(sampleWorkflow))

	def, err := workflow.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if def.Name != "Pump QC" || len(def.Steps) != 2 {
		t.Fatalf("unexpected definition: %+v", def)
	}
	if !def.Steps[0].RequirePhoto || !def.Steps[0].RequireAnnotations {
		t.Fatal("step 1 requirement flags lost")
	}
	if got := def.Steps[0].CheckboxIDs(); len(got) != 2 || got[0] != "seal" || got[1] != "bolts" {
		t.Fatalf("checkbox ids %v, want [seal bolts] in definition order", got)
	}
	if !def.Steps[1].RequireBarcodeScan || !def.Steps[1].RequirePassFail {
		t.Fatal("step 2 requirement flags lost")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := workflow.Load(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestValidateRejectsCheckboxesWithoutReference(t *testing.T) {
	def := &workflow.Definition{
		Name: "Bad",
		Steps: []workflow.Step{{
			Title:      "Step",
			Checkboxes: []workflow.Checkbox{{ID: "a", X: 0.5, Y: 0.5}},
		}},
	}
	if err := workflow.Validate(def); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
}

func TestValidateRejectsDuplicateCheckboxIDs(t *testing.T) {
	def := &workflow.Definition{
		Name: "Bad",
		Steps: []workflow.Step{{
			Title:          "Step",
			ReferenceImage: "ref.png",
			Checkboxes: []workflow.Checkbox{
				{ID: "a", X: 0.1, Y: 0.1},
				{ID: "a", X: 0.9, Y: 0.9},
			},
		}},
	}
	if err := workflow.Validate(def); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
}

func TestValidateRejectsOutOfRangeCheckbox(t *testing.T) {
	def := &workflow.Definition{
		Name: "Bad",
		Steps: []workflow.Step{{
			Title:          "Step",
			ReferenceImage: "ref.png",
			Checkboxes:     []workflow.Checkbox{{ID: "a", X: 1.2, Y: 0.5}},
		}},
	}
	if err := workflow.Validate(def); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
}

func TestListSkipsUnparsableFiles(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "good.json"), []byte(sampleWorkflow))
	testsupport.WriteFile(t, filepath.Join(dir, "broken.json"), []byte("{not json"))
	testsupport.WriteFile(t, filepath.Join(dir, "notes.txt"), []byte("ignored"))

	defs, err := workflow.List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(defs) != 1 || defs[0].Name != "Pump QC" {
		t.Fatalf("got %d definitions, want the single valid one", len(defs))
	}
}

func TestLoadByName(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "pump-qc.json"), []byte(sampleWorkflow))

	def, err := workflow.LoadByName(dir, "pump-qc")
	if err != nil {
		t.Fatalf("LoadByName: %v", err)
	}
	if def.Name != "Pump QC" {
		t.Fatalf("unexpected definition %q", def.Name)
	}
}
