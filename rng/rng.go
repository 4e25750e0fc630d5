// Package rng derives the deterministic per-step seed the adaptive planner
// consumes for every random choice it makes, and supplies the Beta variate
// sampler Thompson sampling needs — the Go standard library has no
// betavariate equivalent, so it is built here on top of a Marsaglia–Tsang
// Gamma sampler.
//
// One PRNG per planner invocation, seeded from the step seed; this package
// never reaches for a process-global random source, so tests can substitute
// the seed and expect bit-identical output.
package rng

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
)

// DeriveStepSeed computes the deterministic 32-bit seed for one planner
// step: the first 4 bytes of SHA-256("campaignSeed:step"), big-endian. This
// is the single source of step-seed derivation in this module — the
// campaign manager records exactly this value into a DecisionSnapshot, and
// the replayer recomputes it the same way, so recording and consumption can
// never drift apart (see DESIGN.md's step-seed decision).
func DeriveStepSeed(campaignSeed string, step int) uint32 {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", campaignSeed, step)))
	return binary.BigEndian.Uint32(sum[:4])
}

// Source wraps a seeded PRNG. Construct one per planner invocation from
// DeriveStepSeed's output; never share a Source across steps or campaigns.
type Source struct {
	r *rand.Rand
}

// New constructs a Source seeded deterministically from seed.
func New(seed uint32) *Source {
	return &Source{r: rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))}
}

// Float64 returns a uniform random float64 in [0,1).
func (s *Source) Float64() float64 { return s.r.Float64() }

// Uniform returns a uniform random float64 in [lo, hi).
func (s *Source) Uniform(lo, hi float64) float64 { return lo + s.r.Float64()*(hi-lo) }

// gamma draws a Gamma(shape, 1) variate using the Marsaglia–Tsang method,
// boosted per Ahrens–Dieter for shape < 1.
func (s *Source) gamma(shape float64) float64 {
	if shape < 1 {
		u := s.r.Float64()
		return s.gamma(shape+1) * math.Pow(u, 1/shape)
	}
	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)
	for {
		var x, v float64
		for {
			x = s.r.NormFloat64()
			v = 1 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := s.r.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}

// Beta draws a sample from Beta(alpha, beta) via the Gamma-ratio
// construction X/(X+Y), X~Gamma(alpha,1), Y~Gamma(beta,1). alpha and beta
// must both be positive.
func (s *Source) Beta(alpha, beta float64) float64 {
	x := s.gamma(alpha)
	y := s.gamma(beta)
	if x+y == 0 {
		return 0.5
	}
	return x / (x + y)
}
