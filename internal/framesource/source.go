package framesource

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ErrSourceLost reports that the device behind a source went away. The
// source is unusable afterwards; the session survives and the operator
// decides what to do.
var ErrSourceLost = errors.New("framesource: source lost")

// Descriptor identifies one selectable frame source.
type Descriptor struct {
	Device string `json:"device"`
	Index  int    `json:"index"`
	Label  string `json:"label,omitempty"`
}

// Source produces frames until closed. NextFrame blocks for the next
// frame at device rate; when the device disappears it returns
// ErrSourceLost instead of hanging.
type Source interface {
	NextFrame(ctx context.Context) (*image.RGBA, error)
	Descriptor() Descriptor
	Close() error
}

// List enumerates video devices under devDir (normally /dev), ordered by
// device index.
func List(devDir string) ([]Descriptor, error) {
	entries, err := os.ReadDir(devDir)
	if err != nil {
		return nil, err
	}
	var found []Descriptor
	for _, entry := range entries {
		idx, ok := videoIndex(entry.Name())
		if !ok {
			continue
		}
		found = append(found, Descriptor{
			Device: filepath.Join(devDir, entry.Name()),
			Index:  idx,
			Label:  "camera " + strconv.Itoa(idx),
		})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Index < found[j].Index })
	return found, nil
}

func videoIndex(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, "video")
	if !ok || rest == "" {
		return 0, false
	}
	idx, err := strconv.Atoi(rest)
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}
