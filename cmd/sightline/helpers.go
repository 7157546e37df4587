package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sightline/internal/history"
	"sightline/internal/media"
	"sightline/internal/report"
	"sightline/internal/session"
	"sightline/internal/session/snapshot"
	"sightline/internal/workflow"
)

// writeReport builds the report document for a run and writes it under
// the reports directory.
func writeReport(reportDir string, state *session.State, def *workflow.Definition, now time.Time) (string, error) {
	doc, err := report.Build(state, def, now)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(reportDir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	name := fmt.Sprintf("report_%s_%s.json",
		media.SerialOrUnknown(state.SerialNumber),
		now.Format("20060102_150405"))
	path := filepath.Join(reportDir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()
	if err := doc.Encode(f); err != nil {
		return "", err
	}
	return path, nil
}

// finishSession writes the final report, archives the run, and removes
// its snapshot.
func finishSession(cmdCtx *commandContext, owner *session.Owner, store *snapshot.Store, outcome history.Outcome) (string, error) {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return "", err
	}
	state := owner.Snapshot()
	def := owner.Definition()

	path, err := writeReport(cfg.Paths.ReportDir, state, def, time.Now())
	if err != nil {
		return "", err
	}

	hist, err := cmdCtx.openHistory()
	if err != nil {
		return "", err
	}
	defer hist.Close()
	if _, err := hist.Archive(context.Background(), state, def, outcome, path); err != nil {
		return "", err
	}
	if err := store.Delete(state.ID); err != nil {
		return "", err
	}
	return path, nil
}

func formatAge(at time.Time) string {
	age := time.Since(at)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	}
}
