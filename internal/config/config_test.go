package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sightline/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantCapture := filepath.Join(tempHome, ".local", "share", "sightline", "captured")
	if cfg.Paths.CaptureDir != wantCapture {
		t.Fatalf("unexpected capture dir: got %q want %q", cfg.Paths.CaptureDir, wantCapture)
	}
	if cfg.Camera.Device != "/dev/video0" {
		t.Fatalf("unexpected camera device: %q", cfg.Camera.Device)
	}
	if cfg.Scanner.PollIntervalMS != 100 {
		t.Fatalf("unexpected scanner interval: %d", cfg.Scanner.PollIntervalMS)
	}
	if cfg.Persistence.RetentionDays != 30 {
		t.Fatalf("unexpected retention: %d", cfg.Persistence.RetentionDays)
	}
	if cfg.Editor.Password != config.DefaultEditorPassword {
		t.Fatalf("unexpected editor password default: %q", cfg.Editor.Password)
	}
}

func TestLoadParsesAndValidatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[camera]",
		`device = "/dev/video2"`,
		"width = 1920",
		"height = 1080",
		"",
		"[recording]",
		`container = "mkv"`,
		"fps = 25",
		"",
		"[editor]",
		`password = "hunter2"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected file to be used, exists=%v resolved=%q", exists, resolved)
	}
	if cfg.Camera.Device != "/dev/video2" || cfg.Camera.Width != 1920 {
		t.Fatalf("camera section not applied: %+v", cfg.Camera)
	}
	if cfg.Recording.Container != "mkv" || cfg.Recording.FPS != 25 {
		t.Fatalf("recording section not applied: %+v", cfg.Recording)
	}
	if cfg.Editor.Password != "hunter2" {
		t.Fatalf("editor password not applied: %q", cfg.Editor.Password)
	}
}

func TestLoadRejectsBadContainer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[recording]\ncontainer = \"webm\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for unsupported container")
	}
}

func TestNormalizeRepairsZeroValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[camera]\nwidth = 0\nfps = -5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Camera.Width != config.Default().Camera.Width {
		t.Fatalf("expected default width, got %d", cfg.Camera.Width)
	}
	if cfg.Camera.FPS != config.Default().Camera.FPS {
		t.Fatalf("expected default fps, got %d", cfg.Camera.FPS)
	}
}
