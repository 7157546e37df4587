package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	CaptureDir  string `toml:"capture_dir"`
	ProgressDir string `toml:"progress_dir"`
	ReportDir   string `toml:"report_dir"`
	WorkflowDir string `toml:"workflow_dir"`
	LogDir      string `toml:"log_dir"`
}

// Camera contains frame source configuration.
type Camera struct {
	Device       string `toml:"device"`
	Width        int    `toml:"width"`
	Height       int    `toml:"height"`
	FPS          int    `toml:"fps"`
	ProbeIndices int    `toml:"probe_indices"`
}

// Recording contains video writer configuration.
type Recording struct {
	Container string `toml:"container"`
	FPS       int    `toml:"fps"`
}

// Scanner contains barcode scan task configuration.
type Scanner struct {
	Enabled        bool `toml:"enabled"`
	PollIntervalMS int  `toml:"poll_interval_ms"`
}

// Persistence contains session snapshot configuration.
type Persistence struct {
	RetentionDays int  `toml:"retention_days"`
	SweepMedia    bool `toml:"sweep_media"`
}

// Editor contains workflow authoring configuration. The password gate moved
// out of the UI into configuration; the default is documented in the sample
// config and should be changed for shared installations.
type Editor struct {
	Password string `toml:"password"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for sightline.
//
// Configuration sections by subsystem:
//   - Paths: capture, progress, report, workflow, and log directories
//   - Camera: device selection and frame geometry
//   - Recording: video container and target frame rate
//   - Scanner: barcode poll interval
//   - Persistence: snapshot retention and media sweep policy
//   - Editor: workflow authoring password
//   - Logging: log format, level, and retention
type Config struct {
	Paths       Paths       `toml:"paths"`
	Camera      Camera      `toml:"camera"`
	Recording   Recording   `toml:"recording"`
	Scanner     Scanner     `toml:"scanner"`
	Persistence Persistence `toml:"persistence"`
	Editor      Editor      `toml:"editor"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/sightline/config.toml")
}

// SampleConfig returns the embedded sample configuration text.
func SampleConfig() string {
	return sampleConfig
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("sightline.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for engine operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CaptureDir, c.Paths.ProgressDir, c.Paths.ReportDir, c.Paths.WorkflowDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for video encoding
// and camera reads.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media checks.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// ZbarBinary returns the zbarimg executable name used for barcode decoding.
func (c *Config) ZbarBinary() string {
	return "zbarimg"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
