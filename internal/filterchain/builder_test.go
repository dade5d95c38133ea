package filterchain

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"video-variator/internal/params"
)

func newTestBuilder() *Builder {
	return NewBuilder(params.NewSamplerWithSource(rand.NewSource(1)))
}

// disabledSpec returns a spec with every parameter switched off.
func disabledSpec() *params.Spec {
	spec := params.DefaultSpec()
	for _, name := range spec.ParamNames() {
		if err := spec.Apply(params.SetEnabled(name, false)); err != nil {
			panic(err)
		}
	}
	return spec
}

// TestBuildAllDisabled verifies a fully disabled spec yields an empty recipe.
func TestBuildAllDisabled(t *testing.T) {
	r := newTestBuilder().Build(disabledSpec())

	if len(r.Directives) != 0 {
		t.Fatalf("directives = %v, want none", r.Directives)
	}
	if len(r.Applied) != 0 {
		t.Fatalf("applied = %v, want none", r.Applied)
	}
	if r.FilterGraph() != "" {
		t.Fatalf("filter graph = %q, want empty", r.FilterGraph())
	}
}

// TestBuildFlipOnly checks the exact audit marker for a flip-only spec.
func TestBuildFlipOnly(t *testing.T) {
	spec := disabledSpec()
	if err := spec.Apply(params.SetEnabled("flipHorizontally", true)); err != nil {
		t.Fatal(err)
	}

	r := newTestBuilder().Build(spec)

	if len(r.Directives) != 1 {
		t.Fatalf("directives = %v, want exactly one", r.Directives)
	}
	if r.Directives[0].Filter != "hflip" {
		t.Fatalf("filter = %q, want hflip", r.Directives[0].Filter)
	}
	if len(r.Applied) != 1 || r.Applied[0] != "hflip" {
		t.Fatalf("applied = %v, want [hflip]", r.Applied)
	}
}

// TestBuildZeroMagnitudeZoom checks that an enabled zoom with a zero-width
// zero range emits no scale directive.
func TestBuildZeroMagnitudeZoom(t *testing.T) {
	spec := disabledSpec()
	spec.Zoom = params.Range{Enabled: true, Min: 0, Max: 0}

	r := newTestBuilder().Build(spec)

	if len(r.Directives) != 0 {
		t.Fatalf("directives = %v, want none for zero-magnitude zoom", r.Directives)
	}
}

// TestBuildZeroPixelShift covers the matching no-op rule for pixel shifts.
func TestBuildZeroPixelShift(t *testing.T) {
	spec := disabledSpec()
	spec.PixelShift = params.Range{Enabled: true, Min: 0, Max: 0}

	r := newTestBuilder().Build(spec)

	if len(r.Directives) != 0 {
		t.Fatalf("directives = %v, want none for zero pixel shift", r.Directives)
	}
}

// TestCompressionLevel pins the quality mapping against its worked examples.
func TestCompressionLevel(t *testing.T) {
	cases := []struct {
		quality int
		want    int
	}{
		{100, 0},
		{1, 50},
		{80, 10},
		{50, 25},
	}
	for _, tc := range cases {
		if got := CompressionLevel(tc.quality); got != tc.want {
			t.Errorf("CompressionLevel(%d) = %d, want %d", tc.quality, got, tc.want)
		}
	}
}

// TestBuildOrdering enables everything and checks the fixed chain order.
func TestBuildOrdering(t *testing.T) {
	spec := params.DefaultSpec()
	for _, name := range spec.ParamNames() {
		if err := spec.Apply(params.SetEnabled(name, true)); err != nil {
			t.Fatal(err)
		}
	}
	// Make every magnitude strictly positive so nothing is suppressed.
	spec.Rotation = params.Range{Enabled: true, Min: 1, Max: 2}
	spec.Brightness = params.Range{Enabled: true, Min: 0.01, Max: 0.05}
	spec.Speed = params.Range{Enabled: true, Min: 1.02, Max: 1.05}

	r := newTestBuilder().Build(spec)

	wantPrefixes := []string{
		"eq=",
		"noise=",
		"rotate=",
		"hflip",
		"scale=trunc(iw",
		"crop=iw-",
		"vignette=",
		"lenscorrection=",
		"scale=",
		"setpts=",
		"fps=",
	}
	if len(r.Directives) != len(wantPrefixes) {
		t.Fatalf("directive count = %d, want %d: %v", len(r.Directives), len(wantPrefixes), r.Applied)
	}
	for i, prefix := range wantPrefixes {
		if !strings.HasPrefix(r.Directives[i].Filter, prefix) {
			t.Errorf("directive[%d] = %q, want prefix %q", i, r.Directives[i].Filter, prefix)
		}
	}
	if len(r.Applied) < len(r.Directives) {
		t.Fatalf("applied list shorter than directives: %v", r.Applied)
	}
}

// TestBuildColorAdjustMerged verifies the color channels collapse to one eq
// directive at the head of the chain.
func TestBuildColorAdjustMerged(t *testing.T) {
	spec := disabledSpec()
	spec.Saturation = params.Range{Enabled: true, Min: 1.1, Max: 1.2}
	spec.Gamma = params.Range{Enabled: true, Min: 0.9, Max: 0.95}
	spec.Noise = params.Range{Enabled: true, Min: 5, Max: 10}

	r := newTestBuilder().Build(spec)

	if len(r.Directives) != 2 {
		t.Fatalf("directives = %v, want eq + noise", r.Applied)
	}
	first := r.Directives[0].Filter
	if !strings.HasPrefix(first, "eq=saturation=") || !strings.Contains(first, "gamma=") {
		t.Fatalf("first directive = %q, want merged eq with saturation and gamma", first)
	}
	if strings.Contains(first, "contrast=") {
		t.Fatalf("eq directive %q includes disabled contrast channel", first)
	}
}

// TestBuildEncodeParams checks encode-level settings stay out of the chain.
func TestBuildEncodeParams(t *testing.T) {
	spec := disabledSpec()
	spec.VideoQuality = 100
	spec.Bitrate = params.Range{Enabled: true, Min: 2500, Max: 2500}
	spec.TrimStart = params.Range{Enabled: true, Min: 0.5, Max: 0.5}
	spec.Volume = params.Range{Enabled: true, Min: 2, Max: 2}

	r := newTestBuilder().Build(spec)

	if len(r.Directives) != 0 {
		t.Fatalf("directives = %v, want none", r.Directives)
	}
	if r.CRF != 0 {
		t.Fatalf("crf = %d, want 0 at quality 100", r.CRF)
	}
	if r.BitrateKbps != 2500 {
		t.Fatalf("bitrate = %d, want 2500", r.BitrateKbps)
	}
	if !r.HasTrim || r.TrimStart != 0.5 {
		t.Fatalf("trim = %v/%v, want 0.5", r.HasTrim, r.TrimStart)
	}
	if !r.HasVolume || r.VolumeDB != 2 {
		t.Fatalf("volume = %v/%v, want +2dB", r.HasVolume, r.VolumeDB)
	}
	if len(r.Applied) != 3 {
		t.Fatalf("applied = %v, want bitrate, volume and trim markers", r.Applied)
	}
}

// TestRandomAspectEvenDimensions verifies the 9:16 resize snaps to even pixels.
func TestRandomAspectEvenDimensions(t *testing.T) {
	spec := disabledSpec()
	spec.RandomAspect = params.Toggle{Enabled: true}

	b := newTestBuilder()
	for i := 0; i < 50; i++ {
		r := b.Build(spec)
		if len(r.Directives) != 1 {
			t.Fatalf("directives = %v, want one scale", r.Applied)
		}
		var w, h int
		if _, err := fmt.Sscanf(r.Directives[0].Filter, "scale=%d:%d", &w, &h); err != nil {
			t.Fatalf("unexpected scale directive %q: %v", r.Directives[0].Filter, err)
		}
		if w%2 != 0 || h%2 != 0 {
			t.Fatalf("dimensions %dx%d not even", w, h)
		}
		if h < 720 || h > 1080 {
			t.Fatalf("height %d outside [720, 1080]", h)
		}
	}
}
