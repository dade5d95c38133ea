package params

import (
	"math/rand"
	"time"
)

// Sampler draws concrete values from parameter ranges. Draws are independent
// per parameter and per variation; there is no seeding guarantee, so runs are
// not reproducible.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler returns a time-seeded sampler.
func NewSampler() *Sampler {
	return &Sampler{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSamplerWithSource returns a sampler backed by the given source.
func NewSamplerWithSource(src rand.Source) *Sampler {
	return &Sampler{rng: rand.New(src)}
}

// Sample draws uniformly from [min, max). An inverted range is normalized by
// swapping the bounds; a zero-width range returns the bound itself.
func (s *Sampler) Sample(r Range) float64 {
	lo, hi := r.Min, r.Max
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo == hi {
		return lo
	}
	return lo + s.rng.Float64()*(hi-lo)
}
