package snapshot

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"sightline/internal/logging"
	"sightline/internal/media"
	"sightline/internal/services"
	"sightline/internal/session"
)

const (
	snapshotExt = ".session.json"
	lockExt     = ".session.lock"
)

// Store reads and writes session snapshots under one progress directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore builds a store rooted at dir, creating it if needed.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "snapshot", "init", dir, err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Path returns where the snapshot for the given session id lives.
func (s *Store) Path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+snapshotExt)
}

// Save writes the state atomically. The document never replaces the
// previous snapshot until it is fully on disk.
func (s *Store) Save(state *session.State) error {
	if state == nil || state.ID == "" {
		return services.Wrap(services.ErrValidation, "snapshot", "save", "state missing id", nil)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrValidation, "snapshot", "save", "encode state", err)
	}
	target := s.Path(state.ID)
	tmp, err := os.CreateTemp(s.dir, state.ID+".*.tmp")
	if err != nil {
		return services.Wrap(services.ErrUnavailable, "snapshot", "save", "create temp file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return services.Wrap(services.ErrUnavailable, "snapshot", "save", "write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return services.Wrap(services.ErrUnavailable, "snapshot", "save", "sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return services.Wrap(services.ErrUnavailable, "snapshot", "save", "close temp file", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return services.Wrap(services.ErrUnavailable, "snapshot", "save", "replace snapshot", err)
	}
	return nil
}

// Load reads one snapshot back. A file that does not parse reports
// ErrCorrupt so callers can offer recovery instead of failing silently.
func (s *Store) Load(sessionID string) (*session.State, error) {
	data, err := os.ReadFile(s.Path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(services.ErrNotFound, "snapshot", "load", sessionID, err)
		}
		return nil, services.Wrap(services.ErrUnavailable, "snapshot", "load", sessionID, err)
	}
	var state session.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, services.Wrap(services.ErrCorrupt, "snapshot", "load",
			fmt.Sprintf("snapshot %s does not parse", sessionID), err)
	}
	if state.ID == "" {
		return nil, services.Wrap(services.ErrCorrupt, "snapshot", "load",
			fmt.Sprintf("snapshot %s missing session id", sessionID), nil)
	}
	return &state, nil
}

// Entry summarizes one resumable snapshot for listings.
type Entry struct {
	SessionID    string
	SerialNumber string
	Mode         session.Mode
	WorkflowName string
	CurrentStep  int
	Completed    bool
	UpdatedAt    time.Time
	Path         string
}

// List returns every readable snapshot, newest activity first. Corrupt
// files are logged and skipped so one bad snapshot cannot hide the rest.
func (s *Store) List() ([]Entry, error) {
	names, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "snapshot", "list", s.dir, err)
	}
	var entries []Entry
	for _, de := range names {
		if de.IsDir() || !strings.HasSuffix(de.Name(), snapshotExt) {
			continue
		}
		id := strings.TrimSuffix(de.Name(), snapshotExt)
		state, err := s.Load(id)
		if err != nil {
			s.logger.Warn("skipping unreadable snapshot",
				logging.String(logging.FieldPath, filepath.Join(s.dir, de.Name())),
				logging.Error(err))
			continue
		}
		entries = append(entries, Entry{
			SessionID:    state.ID,
			SerialNumber: state.SerialNumber,
			Mode:         state.Mode,
			WorkflowName: state.WorkflowName,
			CurrentStep:  state.CurrentStep,
			Completed:    state.Completed,
			UpdatedAt:    state.UpdatedAt,
			Path:         s.Path(state.ID),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
	})
	return entries, nil
}

// Delete removes one snapshot and its lock file.
func (s *Store) Delete(sessionID string) error {
	if err := os.Remove(s.Path(sessionID)); err != nil && !os.IsNotExist(err) {
		return services.Wrap(services.ErrUnavailable, "snapshot", "delete", sessionID, err)
	}
	os.Remove(filepath.Join(s.dir, sessionID+lockExt))
	return nil
}

// AcquireLock marks the session as owned by this process. It fails with
// ErrUnavailable when another process already holds it.
func (s *Store) AcquireLock(sessionID string) (*flock.Flock, error) {
	lock := flock.New(filepath.Join(s.dir, sessionID+lockExt))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "snapshot", "lock", sessionID, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrUnavailable, "snapshot", "lock",
			fmt.Sprintf("session %s is open in another process", sessionID), nil)
	}
	return lock, nil
}

// locked reports whether another process currently holds the session.
func (s *Store) locked(sessionID string) bool {
	lock := flock.New(filepath.Join(s.dir, sessionID+lockExt))
	ok, err := lock.TryLock()
	if err != nil || !ok {
		return true
	}
	_ = lock.Unlock()
	return false
}

// SweepOptions controls the staleness sweep.
type SweepOptions struct {
	RetentionDays int
	// SweepMedia also removes the media files and sidecars a swept
	// snapshot references.
	SweepMedia bool
}

// Sweep deletes snapshots whose last activity is older than the retention
// window. Sessions held open by a live process are spared regardless of
// age. It returns the ids it removed.
func (s *Store) Sweep(opts SweepOptions, now time.Time) ([]string, error) {
	if opts.RetentionDays <= 0 {
		return nil, nil
	}
	cutoff := now.AddDate(0, 0, -opts.RetentionDays)
	entries, err := s.List()
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, e := range entries {
		if !e.UpdatedAt.Before(cutoff) {
			continue
		}
		if s.locked(e.SessionID) {
			s.logger.Info("sweep sparing active session",
				logging.String(logging.FieldSessionID, e.SessionID))
			continue
		}
		if opts.SweepMedia {
			s.removeMedia(e.SessionID)
		}
		if err := s.Delete(e.SessionID); err != nil {
			s.logger.Warn("sweep failed to remove snapshot",
				logging.String(logging.FieldSessionID, e.SessionID),
				logging.Error(err))
			continue
		}
		removed = append(removed, e.SessionID)
	}
	if len(removed) > 0 {
		s.logger.Info("swept stale sessions", logging.Int("count", len(removed)))
	}
	return removed, nil
}

// removeMedia deletes the files a snapshot's manifest references. Best
// effort; a file that is already gone is not an error.
func (s *Store) removeMedia(sessionID string) {
	state, err := s.Load(sessionID)
	if err != nil {
		return
	}
	for _, m := range state.Media {
		if err := os.Remove(m.Path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("sweep failed to remove medium",
				logging.String(logging.FieldPath, m.Path),
				logging.Error(err))
		}
		sidecar := media.SidecarPath(m.Path)
		if err := os.Remove(sidecar); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("sweep failed to remove sidecar",
				logging.String(logging.FieldPath, sidecar),
				logging.Error(err))
		}
	}
}
