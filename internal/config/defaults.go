package config

const (
	defaultCaptureDir     = "~/.local/share/sightline/captured"
	defaultProgressDir    = "~/.local/share/sightline/progress"
	defaultReportDir      = "~/.local/share/sightline/reports"
	defaultWorkflowDir    = "~/.local/share/sightline/workflows"
	defaultLogDir         = "~/.local/share/sightline/logs"
	defaultCameraDevice   = "/dev/video0"
	defaultCameraWidth    = 1280
	defaultCameraHeight   = 720
	defaultCameraFPS      = 30
	defaultProbeIndices   = 3
	defaultContainer      = "mp4"
	defaultRecordingFPS   = 20
	defaultPollIntervalMS = 100
	defaultRetentionDays  = 30
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultLogRetention   = 60

	// DefaultEditorPassword matches the historical built-in gate; change it
	// via [editor] password in the config file.
	DefaultEditorPassword = "admin"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CaptureDir:  defaultCaptureDir,
			ProgressDir: defaultProgressDir,
			ReportDir:   defaultReportDir,
			WorkflowDir: defaultWorkflowDir,
			LogDir:      defaultLogDir,
		},
		Camera: Camera{
			Device:       defaultCameraDevice,
			Width:        defaultCameraWidth,
			Height:       defaultCameraHeight,
			FPS:          defaultCameraFPS,
			ProbeIndices: defaultProbeIndices,
		},
		Recording: Recording{
			Container: defaultContainer,
			FPS:       defaultRecordingFPS,
		},
		Scanner: Scanner{
			Enabled:        true,
			PollIntervalMS: defaultPollIntervalMS,
		},
		Persistence: Persistence{
			RetentionDays: defaultRetentionDays,
			SweepMedia:    false,
		},
		Editor: Editor{
			Password: DefaultEditorPassword,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetention,
		},
	}
}
