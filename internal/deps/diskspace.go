package deps

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// minFreeBytes is the capture-root headroom below which preflight flags
// the workstation. Video capture fills disks quickly.
const minFreeBytes = 2 << 30

// statfs is swapped out by tests.
var statfs = unix.Statfs

// CheckDiskSpace reports whether the filesystem holding dir has at least
// min bytes free.
func CheckDiskSpace(dir string, min uint64) Status {
	status := Status{
		Name:        "Disk space",
		Command:     dir,
		Description: fmt.Sprintf("At least %d MiB free under the capture root", min>>20),
	}
	if dir == "" {
		status.Detail = "capture directory not configured"
		return status
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		status.Detail = fmt.Sprintf("cannot create %q: %v", dir, err)
		return status
	}
	var st unix.Statfs_t
	if err := statfs(dir, &st); err != nil {
		status.Detail = fmt.Sprintf("statfs %q: %v", dir, err)
		return status
	}
	free := st.Bavail * uint64(st.Bsize)
	if free < min {
		status.Detail = fmt.Sprintf("only %d MiB free", free>>20)
		return status
	}
	status.Available = true
	return status
}
