package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"sightline/internal/media"
	"sightline/internal/overlay"
	"sightline/internal/services"
	"sightline/internal/session"
	"sightline/internal/stepcheck"
	"sightline/internal/workflow"
)

var titleCaser = cases.Title(language.English)

// Document is the full report tree handed to the external renderer.
type Document struct {
	Header      Header       `json:"header"`
	SessionInfo []InfoRow    `json:"session_info"`
	Procedure   []SummaryRow `json:"procedure_summary,omitempty"`
	Steps       []StepBlock  `json:"steps,omitempty"`
	// Media holds the flat manifest for runs without a workflow; guided
	// runs list media inside their step blocks instead.
	Media []MediumBlock `json:"media,omitempty"`
	Scans []ScanRow     `json:"barcode_scans,omitempty"`
}

// Header carries the document title block.
type Header struct {
	Title        string    `json:"title"`
	SerialNumber string    `json:"serial_number"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// InfoRow is one label/value pair in the session-info table.
type InfoRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// SummaryRow is one line of the procedure summary table.
type SummaryRow struct {
	StepIndex int              `json:"step_index"`
	Title     string           `json:"title"`
	Status    stepcheck.Status `json:"status"`
}

// StepBlock groups everything recorded against one workflow step.
type StepBlock struct {
	StepIndex      int              `json:"step_index"`
	Title          string           `json:"title"`
	Instructions   string           `json:"instructions,omitempty"`
	Status         stepcheck.Status `json:"status,omitempty"`
	ReferenceImage string           `json:"reference_image,omitempty"`
	Checkboxes     []CheckboxRow    `json:"checkboxes,omitempty"`
	Media          []MediumBlock    `json:"media,omitempty"`
}

// CheckboxRow pairs a checkbox with its final recorded value. Values for
// steps other than the one the run stopped on are folded into the step
// status, so only the active step carries live values.
type CheckboxRow struct {
	ID      string  `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Checked bool    `json:"checked"`
}

// MediumBlock is one captured photo or recording with its annotations.
type MediumBlock struct {
	Path       string           `json:"path"`
	Kind       media.Kind       `json:"kind"`
	Camera     string           `json:"camera,omitempty"`
	CapturedAt time.Time        `json:"captured_at"`
	Notes      string           `json:"notes,omitempty"`
	Markers    []overlay.Marker `json:"markers,omitempty"`
	Scans      []ScanRow        `json:"scans,omitempty"`
}

// ScanRow is one barcode hit in the flat scan table.
type ScanRow struct {
	Symbology string    `json:"symbology"`
	Payload   string    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
	StepIndex *int      `json:"step_index,omitempty"`
}

// Build folds the run and its workflow into a document. def is nil for
// capture-mode runs, which produce no procedure summary or step blocks.
func Build(state *session.State, def *workflow.Definition, now time.Time) (*Document, error) {
	if state == nil {
		return nil, services.Wrap(services.ErrValidation, "report", "build", "nil session state", nil)
	}
	if state.Mode.Guided() && def == nil {
		return nil, services.Wrap(services.ErrValidation, "report", "build",
			fmt.Sprintf("mode %s requires its workflow definition", state.Mode), nil)
	}

	doc := &Document{
		Header: Header{
			Title:        documentTitle(state, def),
			SerialNumber: media.SerialOrUnknown(state.SerialNumber),
			GeneratedAt:  now.UTC(),
		},
		SessionInfo: sessionInfo(state, def),
		Scans:       scanTable(state),
	}
	if def != nil {
		doc.Procedure = procedureSummary(state, def)
		doc.Steps = stepBlocks(state, def)
	} else {
		for _, m := range state.Media {
			doc.Media = append(doc.Media, mediumBlock(m))
		}
	}
	return doc, nil
}

// Encode writes the document as indented JSON for the renderer.
func (d *Document) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return services.Wrap(services.ErrUnavailable, "report", "encode", "write document", err)
	}
	return nil
}

func documentTitle(state *session.State, def *workflow.Definition) string {
	mode := titleCaser.String(string(state.Mode))
	if def == nil {
		return mode + " Report"
	}
	return titleCaser.String(def.Name) + " " + mode + " Report"
}

func sessionInfo(state *session.State, def *workflow.Definition) []InfoRow {
	rows := []InfoRow{
		{Label: "Serial Number", Value: media.SerialOrUnknown(state.SerialNumber)},
		{Label: "Mode", Value: titleCaser.String(string(state.Mode))},
	}
	if state.Description != "" {
		rows = append(rows, InfoRow{Label: "Description", Value: state.Description})
	}
	if def != nil {
		rows = append(rows, InfoRow{Label: "Procedure", Value: def.Name})
	}
	outcome := "Abandoned"
	if state.Completed {
		outcome = "Completed"
	}
	rows = append(rows,
		InfoRow{Label: "Outcome", Value: outcome},
		InfoRow{Label: "Started", Value: state.CreatedAt.UTC().Format(time.RFC3339)},
		InfoRow{Label: "Last Activity", Value: state.UpdatedAt.UTC().Format(time.RFC3339)},
	)
	return rows
}

func procedureSummary(state *session.State, def *workflow.Definition) []SummaryRow {
	rows := make([]SummaryRow, 0, len(def.Steps))
	for i, step := range def.Steps {
		row := SummaryRow{StepIndex: i, Title: step.Title}
		if result, ok := state.StepResults[i]; ok {
			row.Status = result.Status
		}
		rows = append(rows, row)
	}
	return rows
}

func stepBlocks(state *session.State, def *workflow.Definition) []StepBlock {
	blocks := make([]StepBlock, 0, len(def.Steps))
	for i, step := range def.Steps {
		block := StepBlock{
			StepIndex:      i,
			Title:          step.Title,
			Instructions:   step.Instructions,
			ReferenceImage: step.ReferenceImage,
		}
		if result, ok := state.StepResults[i]; ok {
			block.Status = result.Status
		}
		for _, cb := range step.Checkboxes {
			checked := false
			if i == state.CurrentStep {
				checked = state.CheckboxStates[cb.ID]
			} else if result, ok := state.StepResults[i]; ok {
				// Completed steps record their aggregate outcome; a
				// passing step implies every box was checked.
				checked = result.Status == stepcheck.StatusPass || result.Status == stepcheck.StatusComplete
			}
			block.Checkboxes = append(block.Checkboxes, CheckboxRow{
				ID: cb.ID, X: cb.X, Y: cb.Y, Checked: checked,
			})
		}
		for _, m := range state.Media {
			if !m.ForStep(i) {
				continue
			}
			block.Media = append(block.Media, mediumBlock(m))
		}
		blocks = append(blocks, block)
	}
	return blocks
}

func mediumBlock(m media.CapturedMedium) MediumBlock {
	block := MediumBlock{
		Path:       m.Path,
		Kind:       m.Kind,
		Camera:     m.CameraID,
		CapturedAt: m.CapturedAt,
		Notes:      m.Notes,
		Markers:    append([]overlay.Marker(nil), m.Markers...),
	}
	for _, scan := range m.BarcodeScans {
		block.Scans = append(block.Scans, scanRow(scan))
	}
	return block
}

// scanTable flattens every scan retained in the media manifest plus the
// still-active per-step list, ordered by time then payload for stability.
func scanTable(state *session.State) []ScanRow {
	var rows []ScanRow
	for _, m := range state.Media {
		for _, scan := range m.BarcodeScans {
			rows = append(rows, scanRow(scan))
		}
	}
	for _, scan := range state.ActiveScans {
		rows = append(rows, scanRow(scan))
	}
	rows = dedupeScans(rows)
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Timestamp.Equal(rows[j].Timestamp) {
			return rows[i].Timestamp.Before(rows[j].Timestamp)
		}
		return rows[i].Payload < rows[j].Payload
	})
	return rows
}

func dedupeScans(rows []ScanRow) []ScanRow {
	seen := make(map[string]struct{}, len(rows))
	out := rows[:0]
	for _, r := range rows {
		key := fmt.Sprintf("%s|%s|%d", r.Symbology, r.Payload, r.Timestamp.UnixNano())
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

func scanRow(scan media.BarcodeScan) ScanRow {
	row := ScanRow{
		Symbology: scan.Symbology,
		Payload:   scan.Payload,
		Timestamp: scan.Timestamp,
	}
	if scan.StepIndex != nil {
		idx := *scan.StepIndex
		row.StepIndex = &idx
	}
	return row
}

