package media

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"sightline/internal/services"
)

// SidecarPath derives the metadata file path for a captured medium.
func SidecarPath(mediumPath string) string {
	ext := strings.LastIndex(mediumPath, ".")
	if ext <= strings.LastIndex(mediumPath, string(os.PathSeparator)) {
		return mediumPath + "_metadata.json"
	}
	return mediumPath[:ext] + "_metadata.json"
}

// WriteSidecar persists the medium's metadata next to the file it describes.
func WriteSidecar(medium CapturedMedium) error {
	data, err := json.MarshalIndent(medium, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sidecar: %w", err)
	}
	if err := os.WriteFile(SidecarPath(medium.Path), data, 0o644); err != nil {
		return fmt.Errorf("write sidecar: %w", err)
	}
	return nil
}

// ReadSidecar loads the metadata written by WriteSidecar.
func ReadSidecar(mediumPath string) (CapturedMedium, error) {
	data, err := os.ReadFile(SidecarPath(mediumPath))
	if err != nil {
		if os.IsNotExist(err) {
			return CapturedMedium{}, services.Wrap(services.ErrNotFound, "media", "read sidecar", mediumPath, err)
		}
		return CapturedMedium{}, fmt.Errorf("read sidecar: %w", err)
	}
	var medium CapturedMedium
	if err := json.Unmarshal(data, &medium); err != nil {
		return CapturedMedium{}, services.Wrap(services.ErrCorrupt, "media", "read sidecar", mediumPath, err)
	}
	return medium, nil
}
