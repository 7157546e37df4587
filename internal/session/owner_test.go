package session

import (
	"errors"
	"testing"

	"sightline/internal/media"
	"sightline/internal/services"
	"sightline/internal/stepcheck"
	"sightline/internal/workflow"
)

func guidedDef() *workflow.Definition {
	return &workflow.Definition{
		Name: "pump-qc",
		Steps: []workflow.Step{
			{
				Title:          "Inspect housing",
				ReferenceImage: "housing.png",
				RequirePhoto:   true,
				Checkboxes: []workflow.Checkbox{
					{ID: "no-cracks", X: 0.2, Y: 0.3},
					{ID: "label-legible", X: 0.6, Y: 0.3},
				},
			},
			{Title: "Verify serial", RequireBarcodeScan: true},
			{Title: "Final check", RequirePassFail: true},
		},
	}
}

func photo(path string) media.CapturedMedium {
	return media.CapturedMedium{Path: path, Kind: media.KindImage}
}

func TestAdvanceBlockedWithoutPhoto(t *testing.T) {
	owner, err := Start(ModeQC, "SN-100", "", guidedDef(), nil)
	if err != nil {
		t.Fatal(err)
	}
	decision, err := owner.Advance()
	if err != nil {
		t.Fatal(err)
	}
	if decision.Allowed {
		t.Fatal("expected advancement to be blocked")
	}
	if len(decision.Reasons) != 1 || decision.Reasons[0] != stepcheck.MissingPhoto {
		t.Fatalf("reasons = %v", decision.Reasons)
	}
	if got := owner.Snapshot().CurrentStep; got != 0 {
		t.Fatalf("blocked advance moved the step to %d", got)
	}
}

func TestAdvanceRecordsResultAndClearsScratch(t *testing.T) {
	owner, err := Start(ModeQC, "SN-100", "", guidedDef(), nil)
	if err != nil {
		t.Fatal(err)
	}
	owner.AddMedium(photo("a.png"))
	for _, id := range []string{"no-cracks", "label-legible"} {
		if err := owner.ToggleCheckbox(id); err != nil {
			t.Fatal(err)
		}
	}
	owner.RecordScan(media.BarcodeScan{Symbology: "CODE128", Payload: "LOT-7"})

	decision, err := owner.Advance()
	if err != nil {
		t.Fatal(err)
	}
	if !decision.Allowed || decision.Status != stepcheck.StatusPass {
		t.Fatalf("decision = %+v", decision)
	}

	state := owner.Snapshot()
	if state.CurrentStep != 1 {
		t.Fatalf("current step = %d", state.CurrentStep)
	}
	if got := state.StepResults[0].Status; got != stepcheck.StatusPass {
		t.Fatalf("step 0 result = %q", got)
	}
	if len(state.ActiveScans) != 0 {
		t.Fatal("active scans survived advancement")
	}
	if len(state.CheckboxStates) != 0 {
		t.Fatal("checkbox values survived advancement")
	}
}

func TestScansAttachToCapturedMedia(t *testing.T) {
	owner, err := Start(ModeQC, "SN-100", "", guidedDef(), nil)
	if err != nil {
		t.Fatal(err)
	}
	owner.RecordScan(media.BarcodeScan{Symbology: "CODE128", Payload: "LOT-7"})
	owner.AddMedium(photo("a.png"))

	state := owner.Snapshot()
	if len(state.Media) != 1 {
		t.Fatalf("media = %d", len(state.Media))
	}
	scans := state.Media[0].BarcodeScans
	if len(scans) != 1 || scans[0].Payload != "LOT-7" {
		t.Fatalf("attached scans = %v", scans)
	}
	if state.Media[0].StepIndex == nil || *state.Media[0].StepIndex != 0 {
		t.Fatal("medium not stamped with the active step")
	}
}

func TestUncheckedBoxForcesFail(t *testing.T) {
	owner, err := Start(ModeQC, "SN-100", "", guidedDef(), nil)
	if err != nil {
		t.Fatal(err)
	}
	owner.AddMedium(photo("a.png"))
	if err := owner.ToggleCheckbox("no-cracks"); err != nil {
		t.Fatal(err)
	}
	decision, err := owner.Advance()
	if err != nil {
		t.Fatal(err)
	}
	if !decision.Allowed || decision.Status != stepcheck.StatusFail {
		t.Fatalf("decision = %+v", decision)
	}
}

func TestBackDiscardsRevisitedResult(t *testing.T) {
	owner, err := Start(ModeQC, "SN-100", "", guidedDef(), nil)
	if err != nil {
		t.Fatal(err)
	}
	owner.AddMedium(photo("a.png"))
	for _, id := range []string{"no-cracks", "label-legible"} {
		if err := owner.ToggleCheckbox(id); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := owner.Advance(); err != nil {
		t.Fatal(err)
	}
	if err := owner.Back(); err != nil {
		t.Fatal(err)
	}

	state := owner.Snapshot()
	if state.CurrentStep != 0 {
		t.Fatalf("current step = %d", state.CurrentStep)
	}
	if _, ok := state.StepResults[0]; ok {
		t.Fatal("revisited step kept its recorded result")
	}
	if len(state.Media) != 1 {
		t.Fatal("back must not touch captured media")
	}
}

func TestRunCompletesAfterLastStep(t *testing.T) {
	owner, err := Start(ModeQC, "SN-100", "", guidedDef(), nil)
	if err != nil {
		t.Fatal(err)
	}
	owner.AddMedium(photo("a.png"))
	for _, id := range []string{"no-cracks", "label-legible"} {
		if err := owner.ToggleCheckbox(id); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := owner.Advance(); err != nil {
		t.Fatal(err)
	}
	owner.RecordScan(media.BarcodeScan{Symbology: "CODE128", Payload: "SN-100"})
	if _, err := owner.Advance(); err != nil {
		t.Fatal(err)
	}
	pass := true
	if err := owner.SetPassFail(&pass); err != nil {
		t.Fatal(err)
	}
	if _, err := owner.Advance(); err != nil {
		t.Fatal(err)
	}

	state := owner.Snapshot()
	if !state.Completed {
		t.Fatal("run not completed")
	}
	if state.CurrentStep != 2 {
		t.Fatalf("completion moved the index to %d", state.CurrentStep)
	}
	if _, err := owner.Advance(); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("advance after completion = %v", err)
	}
}

func TestCaptureModeQRExtendsSerial(t *testing.T) {
	owner, err := Start(ModeCapture, "", "bench photos", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	owner.RecordScan(media.BarcodeScan{Symbology: "QRCODE", Payload: "UNIT-1"})
	owner.RecordScan(media.BarcodeScan{Symbology: "QRCODE", Payload: "REV-B"})
	owner.RecordScan(media.BarcodeScan{Symbology: "CODE128", Payload: "ignored"})

	if got := owner.Snapshot().SerialNumber; got != "UNIT-1_REV-B" {
		t.Fatalf("serial = %q", got)
	}
	if _, err := owner.Advance(); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("capture mode advance = %v", err)
	}
}

func TestToggleUnknownCheckbox(t *testing.T) {
	owner, err := Start(ModeQC, "SN-100", "", guidedDef(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := owner.ToggleCheckbox("bogus"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("toggle = %v", err)
	}
}
