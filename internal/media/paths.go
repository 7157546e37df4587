package media

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const timestampLayout = "20060102_150405"

// SerialOrUnknown normalizes a serial number for path use.
func SerialOrUnknown(serial string) string {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return "unknown"
	}
	return sanitizeComponent(serial)
}

// CapturePath builds the destination for a new capture. The parent directory
// is created on demand.
func CapturePath(captureDir, serial string, kind Kind, ext string, at time.Time) (string, error) {
	name := SerialOrUnknown(serial)
	dir := filepath.Join(captureDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create capture directory: %w", err)
	}
	if ext == "" {
		if kind == KindVideo {
			ext = "mp4"
		} else {
			ext = "png"
		}
	}
	file := fmt.Sprintf("%s_%s.%s", name, at.Format(timestampLayout), ext)
	return filepath.Join(dir, file), nil
}

// SaveImage writes a frame as PNG. Stills are stored without annotation
// burn-in; markers live in the sidecar and the session manifest.
func SaveImage(path string, frame image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, frame); err != nil {
		return fmt.Errorf("encode image: %w", err)
	}
	return file.Close()
}

func sanitizeComponent(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "unknown"
	}
	return out
}
