package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"sightline/internal/media"
	"sightline/internal/services"
	"sightline/internal/session"
	"sightline/internal/stepcheck"
	"sightline/internal/workflow"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func finishedState(serial string) (*session.State, *workflow.Definition) {
	def := &workflow.Definition{
		Name: "pump-qc",
		Steps: []workflow.Step{
			{Title: "Inspect"},
			{Title: "Verify"},
		},
	}
	state := session.NewState(session.ModeQC, serial, "bench run", def.Name)
	state.Completed = true
	state.CurrentStep = 1
	state.StepResults[0] = session.StepResult{Status: stepcheck.StatusPass}
	state.StepResults[1] = session.StepResult{Status: stepcheck.StatusFail}
	state.Media = []media.CapturedMedium{
		{
			Path: "captured/" + serial + "/x.png",
			Kind: media.KindImage,
			BarcodeScans: []media.BarcodeScan{
				{Symbology: "CODE128", Payload: "LOT-7"},
			},
		},
	}
	return state, def
}

func TestArchiveAndGetRoundTrip(t *testing.T) {
	store := openStore(t)
	state, def := finishedState("SN-1")

	rec, err := store.Archive(context.Background(), state, def, OutcomeCompleted, "reports/r.json")
	if err != nil {
		t.Fatal(err)
	}
	if rec.StepsTotal != 2 || rec.StepsPassed != 1 || rec.StepsFailed != 1 {
		t.Fatalf("step counts = %d/%d/%d", rec.StepsTotal, rec.StepsPassed, rec.StepsFailed)
	}
	if rec.MediaCount != 1 || rec.ScanCount != 1 {
		t.Fatalf("counts = %d media, %d scans", rec.MediaCount, rec.ScanCount)
	}

	got, archived, err := store.Get(context.Background(), state.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Outcome != OutcomeCompleted || got.ReportPath != "reports/r.json" {
		t.Fatalf("record = %+v", got)
	}
	if archived.SerialNumber != "SN-1" || len(archived.Media) != 1 {
		t.Fatalf("archived state = %+v", archived)
	}
}

func TestListFiltersAndOrdersNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	first, def := finishedState("SN-1")
	if _, err := store.Archive(ctx, first, def, OutcomeCompleted, ""); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	second, def2 := finishedState("SN-2")
	if _, err := store.Archive(ctx, second, def2, OutcomeDiscarded, ""); err != nil {
		t.Fatal(err)
	}
	capture := session.NewState(session.ModeCapture, "SN-1", "", "")
	if _, err := store.Archive(ctx, capture, nil, OutcomeCompleted, ""); err != nil {
		t.Fatal(err)
	}

	all, err := store.List(ctx, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("records = %d", len(all))
	}
	if !all[0].ArchivedAt.After(all[2].ArchivedAt) && !all[0].ArchivedAt.Equal(all[2].ArchivedAt) {
		t.Fatal("records not newest first")
	}

	bySerial, err := store.List(ctx, Filter{SerialNumber: "SN-1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(bySerial) != 2 {
		t.Fatalf("SN-1 records = %d", len(bySerial))
	}

	byMode, err := store.List(ctx, Filter{Mode: session.ModeCapture})
	if err != nil {
		t.Fatal(err)
	}
	if len(byMode) != 1 || byMode[0].StepsTotal != 0 {
		t.Fatalf("capture records = %+v", byMode)
	}

	limited, err := store.List(ctx, Filter{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Fatalf("limited records = %d", len(limited))
	}
}

func TestGetMissingSession(t *testing.T) {
	store := openStore(t)
	if _, _, err := store.Get(context.Background(), "nope"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("get = %v", err)
	}
}

func TestOpenTwiceReusesSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	state, def := finishedState("SN-1")
	if _, err := store.Archive(context.Background(), state, def, OutcomeCompleted, ""); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	records, err := reopened.List(context.Background(), Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("records after reopen = %d", len(records))
	}
}
