// Package deps verifies the external tools and resources a workstation
// needs before a session starts: capture and encode binaries, the barcode
// decoder, the camera device node, and free space under the capture root.
package deps

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"sightline/internal/config"
)

// Requirement defines an external binary the application shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// For lists the requirements implied by the configuration.
func For(cfg *config.Config) []Requirement {
	reqs := []Requirement{
		{Name: "FFmpeg", Command: cfg.FFmpegBinary(), Description: "Camera capture and video encoding"},
		{Name: "FFprobe", Command: cfg.FFprobeBinary(), Description: "Media inspection"},
	}
	zbar := Requirement{Name: "zbarimg", Command: cfg.ZbarBinary(), Description: "Barcode decoding"}
	zbar.Optional = !cfg.Scanner.Enabled
	reqs = append(reqs, zbar)
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports
// availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// CheckCameraDevice reports whether the configured device node exists.
// The device is optional because the synthetic source works without one.
func CheckCameraDevice(device string) Status {
	status := Status{
		Name:        "Camera",
		Command:     device,
		Description: "V4L2 capture device",
		Optional:    true,
	}
	device = strings.TrimSpace(device)
	if device == "" {
		status.Detail = "device not configured"
		return status
	}
	info, err := os.Stat(device)
	if err != nil {
		status.Detail = fmt.Sprintf("device %q not present", device)
		return status
	}
	if info.Mode()&os.ModeDevice == 0 {
		status.Detail = fmt.Sprintf("%q is not a device node", device)
		return status
	}
	status.Available = true
	return status
}

// Check runs every preflight check for the configuration.
func Check(cfg *config.Config) []Status {
	results := CheckBinaries(For(cfg))
	results = append(results, CheckCameraDevice(cfg.Camera.Device))
	results = append(results, CheckDiskSpace(cfg.Paths.CaptureDir, minFreeBytes))
	return results
}

// Healthy reports whether every non-optional status is available.
func Healthy(statuses []Status) bool {
	for _, s := range statuses {
		if !s.Optional && !s.Available {
			return false
		}
	}
	return true
}
