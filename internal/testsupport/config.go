package testsupport

import (
	"path/filepath"
	"testing"

	"sightline/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.CaptureDir = filepath.Join(base, "captured")
	cfgVal.Paths.ProgressDir = filepath.Join(base, "progress")
	cfgVal.Paths.ReportDir = filepath.Join(base, "reports")
	cfgVal.Paths.WorkflowDir = filepath.Join(base, "workflows")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Camera.Device = "/dev/null"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithRetentionDays overrides the snapshot retention window.
func WithRetentionDays(days int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Persistence.RetentionDays = days
	}
}

// WithCameraDevice overrides the camera device path on the test config.
func WithCameraDevice(device string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Camera.Device = device
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.CaptureDir)
}
