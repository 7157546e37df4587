package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCamera()
	c.normalizeRecording()
	c.normalizeScanner()
	c.normalizePersistence()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.CaptureDir, err = expandPath(c.Paths.CaptureDir); err != nil {
		return fmt.Errorf("paths.capture_dir: %w", err)
	}
	if c.Paths.ProgressDir, err = expandPath(c.Paths.ProgressDir); err != nil {
		return fmt.Errorf("paths.progress_dir: %w", err)
	}
	if c.Paths.ReportDir, err = expandPath(c.Paths.ReportDir); err != nil {
		return fmt.Errorf("paths.report_dir: %w", err)
	}
	if c.Paths.WorkflowDir, err = expandPath(c.Paths.WorkflowDir); err != nil {
		return fmt.Errorf("paths.workflow_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCamera() {
	c.Camera.Device = strings.TrimSpace(c.Camera.Device)
	if c.Camera.Width <= 0 {
		c.Camera.Width = defaultCameraWidth
	}
	if c.Camera.Height <= 0 {
		c.Camera.Height = defaultCameraHeight
	}
	if c.Camera.FPS <= 0 {
		c.Camera.FPS = defaultCameraFPS
	}
	if c.Camera.ProbeIndices <= 0 {
		c.Camera.ProbeIndices = defaultProbeIndices
	}
}

func (c *Config) normalizeRecording() {
	c.Recording.Container = strings.ToLower(strings.TrimSpace(c.Recording.Container))
	if c.Recording.Container == "" {
		c.Recording.Container = defaultContainer
	}
	if c.Recording.FPS <= 0 {
		c.Recording.FPS = defaultRecordingFPS
	}
}

func (c *Config) normalizeScanner() {
	if c.Scanner.PollIntervalMS <= 0 {
		c.Scanner.PollIntervalMS = defaultPollIntervalMS
	}
}

func (c *Config) normalizePersistence() {
	if c.Persistence.RetentionDays < 0 {
		c.Persistence.RetentionDays = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
