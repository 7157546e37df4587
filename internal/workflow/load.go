package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sightline/internal/services"
)

// Load reads and validates a workflow definition from a JSON file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(services.ErrNotFound, "workflow", "load", path, err)
		}
		return nil, fmt.Errorf("read workflow: %w", err)
	}

	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, services.Wrap(services.ErrValidation, "workflow", "load", "malformed JSON", err)
	}
	if err := Validate(&def); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadByName resolves a definition by its file stem inside dir.
func LoadByName(dir, name string) (*Definition, error) {
	name = strings.TrimSuffix(strings.TrimSpace(name), ".json")
	if name == "" {
		return nil, services.Wrap(services.ErrValidation, "workflow", "load", "empty workflow name", nil)
	}
	return Load(filepath.Join(dir, name+".json"))
}

// List returns the definitions available in dir, sorted by file name. Files
// that fail to parse are skipped; callers surface them via Validate when the
// definition is actually selected.
func List(dir string) ([]*Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read workflow dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	defs := make([]*Definition, 0, len(names))
	for _, name := range names {
		def, err := Load(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// Validate checks structural invariants of a definition.
func Validate(def *Definition) error {
	if def == nil {
		return services.Wrap(services.ErrValidation, "workflow", "validate", "nil definition", nil)
	}
	if strings.TrimSpace(def.Name) == "" {
		return services.Wrap(services.ErrValidation, "workflow", "validate", "name is required", nil)
	}
	if len(def.Steps) == 0 {
		return services.Wrap(services.ErrValidation, "workflow", "validate", "at least one step is required", nil)
	}
	for i, step := range def.Steps {
		if strings.TrimSpace(step.Title) == "" {
			return services.Wrap(services.ErrValidation, "workflow", "validate",
				fmt.Sprintf("step %d: title is required", i+1), nil)
		}
		if len(step.Checkboxes) > 0 && strings.TrimSpace(step.ReferenceImage) == "" {
			return services.Wrap(services.ErrValidation, "workflow", "validate",
				fmt.Sprintf("step %d: checkboxes require a reference image", i+1), nil)
		}
		seen := make(map[string]struct{}, len(step.Checkboxes))
		for _, box := range step.Checkboxes {
			id := strings.TrimSpace(box.ID)
			if id == "" {
				return services.Wrap(services.ErrValidation, "workflow", "validate",
					fmt.Sprintf("step %d: checkbox id is required", i+1), nil)
			}
			if _, dup := seen[id]; dup {
				return services.Wrap(services.ErrValidation, "workflow", "validate",
					fmt.Sprintf("step %d: duplicate checkbox id %q", i+1, id), nil)
			}
			seen[id] = struct{}{}
			if box.X < 0 || box.X > 1 || box.Y < 0 || box.Y > 1 {
				return services.Wrap(services.ErrValidation, "workflow", "validate",
					fmt.Sprintf("step %d: checkbox %q position (%v,%v) outside [0,1]", i+1, id, box.X, box.Y), nil)
			}
		}
	}
	return nil
}
