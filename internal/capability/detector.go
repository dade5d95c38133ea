// Package capability probes the runtime for the three processing tiers.
package capability

import (
	"os"
	"os/exec"
	"runtime"

	"video-variator/internal/engine"
)

// Capabilities reports which processing tiers the runtime supports.
type Capabilities struct {
	FullEngine    bool `json:"fullEngine"`
	PlatformCodec bool `json:"platformCodec"`
	Canvas        bool `json:"canvas"`
}

// Detector probes tier support. Detection never fails: probe errors simply
// report the tier as unavailable. The full-engine bit only turns true after
// that adapter's initialization has actually succeeded; failures surface when
// Initialize is invoked, not here.
type Detector struct {
	lookPath    func(string) (string, error)
	stat        func(string) (os.FileInfo, error)
	goos        string
	engineState func() engine.State
}

// NewDetector builds a detector using real OS probes, tied to the given
// full-tier engine's lifecycle.
func NewDetector(full *engine.FullEngine) *Detector {
	return &Detector{
		lookPath:    exec.LookPath,
		stat:        os.Stat,
		goos:        runtime.GOOS,
		engineState: full.State,
	}
}

// NewDetectorForTests creates a detector with injectable probes.
func NewDetectorForTests(
	lookPath func(string) (string, error),
	stat func(string) (os.FileInfo, error),
	goos string,
	engineState func() engine.State,
) *Detector {
	return &Detector{
		lookPath:    lookPath,
		stat:        stat,
		goos:        goos,
		engineState: engineState,
	}
}

// Detect returns the current capability set. Calling it twice without any
// engine-state change yields the same result.
func (d *Detector) Detect() Capabilities {
	return Capabilities{
		FullEngine:    d.engineState() == engine.StateReady,
		PlatformCodec: d.platformCodecAvailable(),
		Canvas:        true,
	}
}

// platformCodecAvailable probes for hardware media encoder primitives.
// macOS and Windows ship platform codec APIs with the OS; on Linux the DRI
// render node or an NVIDIA driver must be present.
func (d *Detector) platformCodecAvailable() bool {
	switch d.goos {
	case "darwin", "windows":
		return true
	case "linux":
		if _, err := d.stat("/dev/dri/renderD128"); err == nil {
			return true
		}
		if _, err := d.lookPath("nvidia-smi"); err == nil {
			return true
		}
		return false
	default:
		return false
	}
}
