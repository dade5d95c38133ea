package params

import "fmt"

// Range is a tunable dimension sampled once per variation. Min and Max are
// edited independently by callers, so an inverted range can reach the sampler;
// Sample normalizes it by swapping the bounds.
type Range struct {
	Enabled bool    `json:"enabled"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// Toggle is an on/off dimension with no magnitude.
type Toggle struct {
	Enabled bool `json:"enabled"`
}

// Spec holds every tunable dimension for one variation job. It is created once
// with defaults, mutated through Apply while the job is being configured, and
// treated as read-only input by the orchestrator for the duration of a run.
type Spec struct {
	// VideoQuality maps to the encoder compression level, 1 (worst) to 100 (best).
	VideoQuality int `json:"videoQuality"`

	Bitrate       Range `json:"bitrate"`       // kbps
	FrameRate     Range `json:"frameRate"`     // fps
	Saturation    Range `json:"saturation"`    // ratio
	Contrast      Range `json:"contrast"`      // ratio
	Brightness    Range `json:"brightness"`    // additive, -1..1
	Gamma         Range `json:"gamma"`         // ratio
	Noise         Range `json:"noise"`         // strength
	Rotation      Range `json:"rotation"`      // degrees
	Zoom          Range `json:"zoom"`          // magnitude above 1.0
	PixelShift    Range `json:"pixelShift"`    // pixels
	Vignette      Range `json:"vignette"`      // strength 0..1
	WaveformShift Range `json:"waveformShift"` // distortion coefficient
	Speed         Range `json:"speed"`         // playback rate ratio
	Volume        Range `json:"volume"`        // dB
	TrimStart     Range `json:"trimStart"`     // seconds

	FlipHorizontal Toggle `json:"flipHorizontally"`
	RandomAspect   Toggle `json:"randomPixelSize"`
}

// DefaultSpec returns the spec a fresh job starts from.
func DefaultSpec() *Spec {
	return &Spec{
		VideoQuality: 80,

		Bitrate:       Range{Enabled: false, Min: 1000, Max: 5000},
		FrameRate:     Range{Enabled: false, Min: 24, Max: 60},
		Saturation:    Range{Enabled: true, Min: 0.9, Max: 1.1},
		Contrast:      Range{Enabled: true, Min: 0.9, Max: 1.1},
		Brightness:    Range{Enabled: true, Min: -0.05, Max: 0.05},
		Gamma:         Range{Enabled: false, Min: 0.9, Max: 1.1},
		Noise:         Range{Enabled: false, Min: 1, Max: 10},
		Rotation:      Range{Enabled: true, Min: -2, Max: 2},
		Zoom:          Range{Enabled: true, Min: 0.01, Max: 0.05},
		PixelShift:    Range{Enabled: false, Min: 1, Max: 5},
		Vignette:      Range{Enabled: false, Min: 0.1, Max: 0.5},
		WaveformShift: Range{Enabled: false, Min: 0.01, Max: 0.05},
		Speed:         Range{Enabled: false, Min: 0.95, Max: 1.05},
		Volume:        Range{Enabled: false, Min: -3, Max: 3},
		TrimStart:     Range{Enabled: false, Min: 0, Max: 1},

		FlipHorizontal: Toggle{Enabled: false},
		RandomAspect:   Toggle{Enabled: false},
	}
}

// Validate checks the parts of the spec that have a bounded domain.
func (s *Spec) Validate() error {
	if s.VideoQuality < 1 || s.VideoQuality > 100 {
		return fmt.Errorf("videoQuality must be between 1 and 100, got %d", s.VideoQuality)
	}
	return nil
}

// Clone returns an independent copy of the spec so a running job is not
// affected by later edits.
func (s *Spec) Clone() *Spec {
	c := *s
	return &c
}

// ranges maps parameter names to their ranged dimensions for typed updates.
func (s *Spec) ranges() map[string]*Range {
	return map[string]*Range{
		"bitrate":       &s.Bitrate,
		"frameRate":     &s.FrameRate,
		"saturation":    &s.Saturation,
		"contrast":      &s.Contrast,
		"brightness":    &s.Brightness,
		"gamma":         &s.Gamma,
		"noise":         &s.Noise,
		"rotation":      &s.Rotation,
		"zoom":          &s.Zoom,
		"pixelShift":    &s.PixelShift,
		"vignette":      &s.Vignette,
		"waveformShift": &s.WaveformShift,
		"speed":         &s.Speed,
		"volume":        &s.Volume,
		"trimStart":     &s.TrimStart,
	}
}

// toggles maps parameter names to their boolean-only dimensions.
func (s *Spec) toggles() map[string]*Toggle {
	return map[string]*Toggle{
		"flipHorizontally": &s.FlipHorizontal,
		"randomPixelSize":  &s.RandomAspect,
	}
}
