package filterchain

import (
	"fmt"
	"math"
	"strings"

	"video-variator/internal/params"
)

// Builder samples enabled parameters and assembles recipes. The chain order is
// fixed: color work first, spatial filters before retiming, cropping before the
// final resize, so that directives do not destroy each other's output when the
// engine applies them sequentially.
type Builder struct {
	sampler *params.Sampler
}

// NewBuilder creates a builder drawing from the given sampler.
func NewBuilder(s *params.Sampler) *Builder {
	return &Builder{sampler: s}
}

// Build draws one fresh value per enabled parameter and returns the resulting
// recipe. A parameter whose sampled magnitude rounds to a no-op emits no
// directive even when enabled.
func (b *Builder) Build(spec *params.Spec) Recipe {
	r := Recipe{CRF: CompressionLevel(spec.VideoQuality)}

	b.buildColorAdjust(spec, &r)
	b.buildNoise(spec, &r)
	b.buildRotation(spec, &r)
	b.buildFlip(spec, &r)
	b.buildZoom(spec, &r)
	b.buildPixelShift(spec, &r)
	b.buildVignette(spec, &r)
	b.buildWaveformShift(spec, &r)
	b.buildRandomAspect(spec, &r)
	b.buildSpeed(spec, &r)
	b.buildFrameRate(spec, &r)
	b.buildEncodeParams(spec, &r)

	return r
}

func (r *Recipe) append(d Directive) {
	r.Directives = append(r.Directives, d)
	r.Applied = append(r.Applied, d.Audit)
}

// buildColorAdjust merges saturation, contrast, brightness and gamma into a
// single eq directive positioned first in the chain. Values are fixed to three
// decimals.
func (b *Builder) buildColorAdjust(spec *params.Spec, r *Recipe) {
	type channel struct {
		name string
		rng  params.Range
	}
	channels := []channel{
		{"saturation", spec.Saturation},
		{"contrast", spec.Contrast},
		{"brightness", spec.Brightness},
		{"gamma", spec.Gamma},
	}

	var opts []string
	var audit []string
	for _, c := range channels {
		if !c.rng.Enabled {
			continue
		}
		v := round3(b.sampler.Sample(c.rng))
		opts = append(opts, fmt.Sprintf("%s=%.3f", c.name, v))
		audit = append(audit, fmt.Sprintf("%s=%.3f", c.name, v))
	}
	if len(opts) == 0 {
		return
	}

	r.append(Directive{
		Filter: "eq=" + strings.Join(opts, ":"),
		Audit:  "color-adjust(" + strings.Join(audit, ",") + ")",
	})
}

func (b *Builder) buildNoise(spec *params.Spec, r *Recipe) {
	if !spec.Noise.Enabled {
		return
	}
	strength := int(math.Round(b.sampler.Sample(spec.Noise)))
	if strength <= 0 {
		return
	}
	r.append(Directive{
		Filter: fmt.Sprintf("noise=alls=%d:allf=t+u", strength),
		Audit:  fmt.Sprintf("noise(%d)", strength),
	})
}

// buildRotation samples degrees to two decimals, then converts to radians to
// four decimals for the rotate directive.
func (b *Builder) buildRotation(spec *params.Spec, r *Recipe) {
	if !spec.Rotation.Enabled {
		return
	}
	deg := round2(b.sampler.Sample(spec.Rotation))
	if deg == 0 {
		return
	}
	rad := round4(deg * math.Pi / 180)
	r.append(Directive{
		Filter: fmt.Sprintf("rotate=%.4f", rad),
		Audit:  fmt.Sprintf("rotate(%.2fdeg)", deg),
	})
}

func (b *Builder) buildFlip(spec *params.Spec, r *Recipe) {
	if !spec.FlipHorizontal.Enabled {
		return
	}
	r.append(Directive{Filter: "hflip", Audit: "hflip"})
}

// buildZoom scales the frame up and crops back to the source size. A sampled
// magnitude that rounds to zero is a no-op and emits nothing.
func (b *Builder) buildZoom(spec *params.Spec, r *Recipe) {
	if !spec.Zoom.Enabled {
		return
	}
	delta := round3(b.sampler.Sample(spec.Zoom))
	if delta <= 0 {
		return
	}
	z := 1 + delta
	r.append(Directive{
		Filter: fmt.Sprintf(
			"scale=trunc(iw*%.3f/2)*2:trunc(ih*%.3f/2)*2,crop=trunc(iw/%.3f/2)*2:trunc(ih/%.3f/2)*2",
			z, z, z, z,
		),
		Audit: fmt.Sprintf("zoom(%.3f)", z),
	})
}

// buildPixelShift crops the same pixel count off every edge.
func (b *Builder) buildPixelShift(spec *params.Spec, r *Recipe) {
	if !spec.PixelShift.Enabled {
		return
	}
	px := int(math.Round(b.sampler.Sample(spec.PixelShift)))
	if px <= 0 {
		return
	}
	r.append(Directive{
		Filter: fmt.Sprintf("crop=iw-%d:ih-%d", 2*px, 2*px),
		Audit:  fmt.Sprintf("pixel-shift(%dpx)", px),
	})
}

func (b *Builder) buildVignette(spec *params.Spec, r *Recipe) {
	if !spec.Vignette.Enabled {
		return
	}
	strength := round3(b.sampler.Sample(spec.Vignette))
	if strength <= 0 {
		return
	}
	angle := round4(strength * math.Pi / 2)
	r.append(Directive{
		Filter: fmt.Sprintf("vignette=a=%.4f", angle),
		Audit:  fmt.Sprintf("vignette(%.3f)", strength),
	})
}

// buildWaveformShift approximates a waveform pixel remap with a mild lens
// distortion.
func (b *Builder) buildWaveformShift(spec *params.Spec, r *Recipe) {
	if !spec.WaveformShift.Enabled {
		return
	}
	k := round3(b.sampler.Sample(spec.WaveformShift))
	if k <= 0 {
		return
	}
	r.append(Directive{
		Filter: fmt.Sprintf("lenscorrection=cx=0.5:cy=0.5:k1=%.3f:k2=0", k),
		Audit:  fmt.Sprintf("waveform-shift(%.3f)", k),
	})
}

// buildRandomAspect resizes to a 9:16 frame with a random height in
// [720, 1080], both dimensions snapped to even pixels.
func (b *Builder) buildRandomAspect(spec *params.Spec, r *Recipe) {
	if !spec.RandomAspect.Enabled {
		return
	}
	height := evenDim(int(b.sampler.Sample(params.Range{Min: 720, Max: 1080})))
	width := evenDim(height * 9 / 16)
	r.append(Directive{
		Filter: fmt.Sprintf("scale=%d:%d", width, height),
		Audit:  fmt.Sprintf("aspect(%dx%d)", width, height),
	})
}

// buildSpeed retimes presentation timestamps. The setpts factor is the inverse
// of the sampled speed, fixed to four decimals.
func (b *Builder) buildSpeed(spec *params.Spec, r *Recipe) {
	if !spec.Speed.Enabled {
		return
	}
	speed := b.sampler.Sample(spec.Speed)
	if speed <= 0 {
		return
	}
	factor := round4(1 / speed)
	if factor == 1 {
		return
	}
	r.append(Directive{
		Filter: fmt.Sprintf("setpts=%.4f*PTS", factor),
		Audit:  fmt.Sprintf("speed(%.2fx)", round2(speed)),
	})
}

func (b *Builder) buildFrameRate(spec *params.Spec, r *Recipe) {
	if !spec.FrameRate.Enabled {
		return
	}
	fps := round2(b.sampler.Sample(spec.FrameRate))
	if fps <= 0 {
		return
	}
	r.FrameRate = fps
	r.append(Directive{
		Filter: fmt.Sprintf("fps=%.2f", fps),
		Audit:  fmt.Sprintf("fps(%.2f)", fps),
	})
}

// buildEncodeParams samples the settings the engine adapter combines outside
// the filter chain.
func (b *Builder) buildEncodeParams(spec *params.Spec, r *Recipe) {
	if spec.Bitrate.Enabled {
		kbps := int(math.Round(b.sampler.Sample(spec.Bitrate)))
		if kbps > 0 {
			r.BitrateKbps = kbps
			r.Applied = append(r.Applied, fmt.Sprintf("bitrate(%dkbps)", kbps))
		}
	}
	if spec.Volume.Enabled {
		db := round2(b.sampler.Sample(spec.Volume))
		if db != 0 {
			r.VolumeDB = db
			r.HasVolume = true
			r.Applied = append(r.Applied, fmt.Sprintf("volume(%+.2fdB)", db))
		}
	}
	if spec.TrimStart.Enabled {
		start := round2(b.sampler.Sample(spec.TrimStart))
		if start > 0 {
			r.TrimStart = start
			r.HasTrim = true
			r.Applied = append(r.Applied, fmt.Sprintf("trim-start(%.2fs)", start))
		}
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }

func evenDim(v int) int { return v - (v % 2) }
