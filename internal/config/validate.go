package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCamera(); err != nil {
		return err
	}
	if err := c.validateRecording(); err != nil {
		return err
	}
	if err := c.validateScanner(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.CaptureDir == "" {
		return errors.New("paths.capture_dir must be set")
	}
	if c.Paths.ProgressDir == "" {
		return errors.New("paths.progress_dir must be set")
	}
	if c.Paths.WorkflowDir == "" {
		return errors.New("paths.workflow_dir must be set")
	}
	return nil
}

func (c *Config) validateCamera() error {
	if c.Camera.Device == "" {
		return errors.New("camera.device must be set")
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("camera resolution %dx%d is invalid", c.Camera.Width, c.Camera.Height)
	}
	return nil
}

func (c *Config) validateRecording() error {
	switch c.Recording.Container {
	case "mp4", "mkv", "avi":
		return nil
	default:
		return fmt.Errorf("recording.container %q is unsupported (mp4, mkv, avi)", c.Recording.Container)
	}
}

func (c *Config) validateScanner() error {
	if c.Scanner.PollIntervalMS < 10 {
		return errors.New("scanner.poll_interval_ms must be at least 10")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q is unsupported (console, json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is unsupported", c.Logging.Level)
	}
	return nil
}
