package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"sightline/internal/services"
	"sightline/internal/session"
	"sightline/internal/stepcheck"
	"sightline/internal/workflow"
)

// Outcome records how a run left the active set.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeDiscarded Outcome = "discarded"
)

// Store manages the archive database.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the archive database and applies
// migrations.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "history", "open", "create database directory", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "history", "open", "open sqlite db", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, services.Wrap(services.ErrUnavailable, "history", "open",
				fmt.Sprintf("apply pragma %q", pragma), execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, services.Wrap(services.ErrUnavailable, "history", "open", "apply migrations", err)
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record is one archived run.
type Record struct {
	SessionID    string
	SerialNumber string
	Description  string
	Mode         session.Mode
	WorkflowName string
	Outcome      Outcome
	StepsTotal   int
	StepsPassed  int
	StepsFailed  int
	MediaCount   int
	ScanCount    int
	ReportPath   string
	CreatedAt    time.Time
	ArchivedAt   time.Time
}

// Archive inserts one finished or discarded run. def is nil for capture
// mode. The full state document rides along so a record can be inspected
// after its snapshot is gone.
func (s *Store) Archive(ctx context.Context, state *session.State, def *workflow.Definition, outcome Outcome, reportPath string) (*Record, error) {
	if state == nil || state.ID == "" {
		return nil, services.Wrap(services.ErrValidation, "history", "archive", "state missing id", nil)
	}
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "history", "archive", "encode state", err)
	}

	rec := &Record{
		SessionID:    state.ID,
		SerialNumber: state.SerialNumber,
		Description:  state.Description,
		Mode:         state.Mode,
		WorkflowName: state.WorkflowName,
		Outcome:      outcome,
		MediaCount:   len(state.Media),
		ReportPath:   reportPath,
		CreatedAt:    state.CreatedAt,
		ArchivedAt:   time.Now().UTC(),
	}
	if def != nil {
		rec.StepsTotal = len(def.Steps)
	}
	for _, result := range state.StepResults {
		switch result.Status {
		case stepcheck.StatusPass, stepcheck.StatusComplete:
			rec.StepsPassed++
		case stepcheck.StatusFail:
			rec.StepsFailed++
		}
	}
	for _, m := range state.Media {
		rec.ScanCount += len(m.BarcodeScans)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO sessions (
            id, serial_number, description, mode, workflow_name, outcome,
            steps_total, steps_passed, steps_failed, media_count, scan_count,
            report_path, state_json, created_at, archived_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID,
		rec.SerialNumber,
		rec.Description,
		string(rec.Mode),
		rec.WorkflowName,
		string(rec.Outcome),
		rec.StepsTotal,
		rec.StepsPassed,
		rec.StepsFailed,
		rec.MediaCount,
		rec.ScanCount,
		rec.ReportPath,
		string(stateJSON),
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		rec.ArchivedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "history", "archive", "insert session", err)
	}
	return rec, nil
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	SerialNumber string
	Mode         session.Mode
	WorkflowName string
	Limit        int
}

// List returns archived runs newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]Record, error) {
	query := `SELECT id, serial_number, description, mode, workflow_name, outcome,
        steps_total, steps_passed, steps_failed, media_count, scan_count,
        report_path, created_at, archived_at FROM sessions`
	var (
		clauses []string
		args    []any
	)
	if filter.SerialNumber != "" {
		clauses = append(clauses, "serial_number = ?")
		args = append(args, filter.SerialNumber)
	}
	if filter.Mode != "" {
		clauses = append(clauses, "mode = ?")
		args = append(args, string(filter.Mode))
	}
	if filter.WorkflowName != "" {
		clauses = append(clauses, "workflow_name = ?")
		args = append(args, filter.WorkflowName)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY archived_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "history", "list", "query sessions", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "history", "list", "iterate sessions", err)
	}
	return records, nil
}

// Get returns one archived run together with its preserved state.
func (s *Store) Get(ctx context.Context, sessionID string) (*Record, *session.State, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, serial_number, description, mode, workflow_name, outcome,
            steps_total, steps_passed, steps_failed, media_count, scan_count,
            report_path, created_at, archived_at, state_json
        FROM sessions WHERE id = ?`, sessionID)

	var (
		rec               Record
		mode, outcome     string
		created, archived string
		stateJSON         string
	)
	err := row.Scan(&rec.SessionID, &rec.SerialNumber, &rec.Description, &mode,
		&rec.WorkflowName, &outcome, &rec.StepsTotal, &rec.StepsPassed,
		&rec.StepsFailed, &rec.MediaCount, &rec.ScanCount, &rec.ReportPath,
		&created, &archived, &stateJSON)
	if err == sql.ErrNoRows {
		return nil, nil, services.Wrap(services.ErrNotFound, "history", "get", sessionID, nil)
	}
	if err != nil {
		return nil, nil, services.Wrap(services.ErrUnavailable, "history", "get", "scan session", err)
	}
	rec.Mode = session.Mode(mode)
	rec.Outcome = Outcome(outcome)
	rec.CreatedAt = parseArchiveTime(created)
	rec.ArchivedAt = parseArchiveTime(archived)

	var state session.State
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return nil, nil, services.Wrap(services.ErrCorrupt, "history", "get",
			fmt.Sprintf("archived state for %s does not parse", sessionID), err)
	}
	return &rec, &state, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		rec               Record
		mode, outcome     string
		created, archived string
	)
	err := rows.Scan(&rec.SessionID, &rec.SerialNumber, &rec.Description, &mode,
		&rec.WorkflowName, &outcome, &rec.StepsTotal, &rec.StepsPassed,
		&rec.StepsFailed, &rec.MediaCount, &rec.ScanCount, &rec.ReportPath,
		&created, &archived)
	if err != nil {
		return Record{}, services.Wrap(services.ErrUnavailable, "history", "list", "scan session", err)
	}
	rec.Mode = session.Mode(mode)
	rec.Outcome = Outcome(outcome)
	rec.CreatedAt = parseArchiveTime(created)
	rec.ArchivedAt = parseArchiveTime(archived)
	return rec, nil
}

func parseArchiveTime(value string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}
