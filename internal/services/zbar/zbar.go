// Package zbar wraps the zbarimg CLI as a barcode detector. Frames are
// handed over as temporary PNG files; the core never links a decoding
// library.
package zbar

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"sightline/internal/logging"
	"sightline/internal/media"
	"sightline/internal/services"
)

// commandContext is swapped out by tests to stub zbarimg.
var commandContext = exec.CommandContext

// Detector shells out to zbarimg for each frame.
type Detector struct {
	binary string
	logger *slog.Logger
	tmpDir string
}

// NewDetector builds a detector using the given zbarimg binary.
func NewDetector(binary string, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Detector{
		binary: binary,
		logger: logging.NewComponentLogger(logger, "zbar"),
		tmpDir: os.TempDir(),
	}
}

// Detect runs one decode pass over the frame. ok is false when the frame
// holds no barcode; that is not an error. Output lines follow zbarimg's
// SYMBOLOGY:payload form; only the first symbol is reported.
func (d *Detector) Detect(ctx context.Context, frame image.Image) (media.BarcodeScan, bool, error) {
	var scan media.BarcodeScan
	if frame == nil || frame.Bounds().Empty() {
		return scan, false, services.Wrap(services.ErrValidation, "zbar", "detect", "empty frame", nil)
	}

	path := filepath.Join(d.tmpDir, "sightline-scan-"+time.Now().UTC().Format("20060102T150405.000000000")+".png")
	f, err := os.Create(path)
	if err != nil {
		return scan, false, services.Wrap(services.ErrUnavailable, "zbar", "detect", "create frame file", err)
	}
	defer os.Remove(path)
	if err := png.Encode(f, frame); err != nil {
		f.Close()
		return scan, false, services.Wrap(services.ErrUnavailable, "zbar", "detect", "encode frame", err)
	}
	if err := f.Close(); err != nil {
		return scan, false, services.Wrap(services.ErrUnavailable, "zbar", "detect", "close frame file", err)
	}

	cmd := commandContext(ctx, d.binary, "-q", path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()
	if runErr != nil {
		// zbarimg exits 4 when it scanned cleanly but found nothing.
		if exitErr, ok := runErr.(*exec.ExitError); ok && exitErr.ExitCode() == 4 {
			return scan, false, nil
		}
		return scan, false, services.Wrap(services.ErrExternalTool, "zbar", "detect",
			strings.TrimSpace(stderr.String()), runErr)
	}

	symbology, payload, ok := parseOutput(stdout.String())
	if !ok {
		return scan, false, nil
	}
	scan = media.BarcodeScan{
		Symbology: symbology,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
	return scan, true, nil
}

// parseOutput extracts the first SYMBOLOGY:payload line.
func parseOutput(out string) (string, string, bool) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		symbology, payload, found := strings.Cut(line, ":")
		if !found || symbology == "" {
			continue
		}
		return normalizeSymbology(symbology), payload, true
	}
	return "", "", false
}

// normalizeSymbology maps zbarimg names like "QR-Code" and "CODE-128"
// onto the compact forms stored in scan records.
func normalizeSymbology(name string) string {
	upper := strings.ToUpper(name)
	upper = strings.ReplaceAll(upper, "-", "")
	upper = strings.ReplaceAll(upper, " ", "")
	return upper
}
