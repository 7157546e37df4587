package deps

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	if err := os.WriteFile(present, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("present binary: %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("missing binary: %#v", results[1])
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unset binary: %#v", results[2])
	}
}

func TestCheckCameraDevice(t *testing.T) {
	if got := CheckCameraDevice(""); got.Available || got.Detail != "device not configured" {
		t.Fatalf("blank device: %#v", got)
	}
	if got := CheckCameraDevice("/definitely/not/here"); got.Available {
		t.Fatalf("missing device: %#v", got)
	}

	// A plain file is not a device node.
	file := filepath.Join(t.TempDir(), "video0")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if got := CheckCameraDevice(file); got.Available {
		t.Fatalf("regular file accepted: %#v", got)
	}

	if _, err := os.Stat("/dev/null"); err == nil {
		if got := CheckCameraDevice("/dev/null"); !got.Available {
			t.Fatalf("device node rejected: %#v", got)
		}
	}
}

func TestCheckDiskSpace(t *testing.T) {
	dir := t.TempDir()

	origin := statfs
	t.Cleanup(func() { statfs = origin })

	statfs = func(path string, st *unix.Statfs_t) error {
		st.Bavail = 1024
		st.Bsize = 4096
		return nil
	}
	if got := CheckDiskSpace(dir, 1<<20); !got.Available {
		t.Fatalf("4 MiB free vs 1 MiB min: %#v", got)
	}
	if got := CheckDiskSpace(dir, 1<<30); got.Available || got.Detail == "" {
		t.Fatalf("4 MiB free vs 1 GiB min: %#v", got)
	}
	if got := CheckDiskSpace("", 1); got.Available {
		t.Fatalf("blank dir: %#v", got)
	}
}

func TestHealthy(t *testing.T) {
	statuses := []Status{
		{Name: "a", Available: true},
		{Name: "b", Optional: true, Available: false},
	}
	if !Healthy(statuses) {
		t.Fatal("optional failures must not flip health")
	}
	statuses = append(statuses, Status{Name: "c", Available: false})
	if Healthy(statuses) {
		t.Fatal("required failure ignored")
	}
}
