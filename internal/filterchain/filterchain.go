// Package filterchain turns a parameter spec into one concrete transformation
// recipe: an ordered ffmpeg video-filter chain plus the encode-level settings
// that are passed outside the chain.
package filterchain

import (
	"math"
	"strings"
)

// Directive is one atomic transformation in the chain. Filter is the
// engine-side instruction; Audit is the matching human-readable marker. The
// two stay index-correlated so the audit list reflects exactly what ran.
type Directive struct {
	Filter string
	Audit  string
}

// Recipe is the full transformation plan for a single variation.
type Recipe struct {
	Directives []Directive
	// Applied mirrors Directives plus any encode-level settings that fired.
	Applied []string

	// Encode-level settings, combined by the engine adapter rather than the
	// filter chain.
	CRF         int
	BitrateKbps int     // 0 means unset
	FrameRate   float64 // 0 means unset
	VolumeDB    float64
	HasVolume   bool
	TrimStart   float64 // seconds
	HasTrim     bool
}

// FilterGraph renders the directive list in ffmpeg -vf syntax. Filters are
// applied left to right, so chain order is significant.
func (r Recipe) FilterGraph() string {
	if len(r.Directives) == 0 {
		return ""
	}
	parts := make([]string, 0, len(r.Directives))
	for _, d := range r.Directives {
		parts = append(parts, d.Filter)
	}
	return strings.Join(parts, ",")
}

// CompressionLevel maps the 1..100 quality scalar onto the encoder's 0..51
// compression range; lower means higher quality. Quality 100 maps to 0,
// quality 1 to 50 and quality 80 to 10.
func CompressionLevel(quality int) int {
	return 51 - int(math.Round(float64(quality)*0.51))
}
