package rng_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sentryforge/adversarypilot/rng"
)

func TestDeriveStepSeedIsPureAndDeterministic(t *testing.T) {
	a := rng.DeriveStepSeed("campaign-1", 3)
	b := rng.DeriveStepSeed("campaign-1", 3)
	assert.Equal(t, a, b)

	c := rng.DeriveStepSeed("campaign-1", 4)
	assert.NotEqual(t, a, c)

	d := rng.DeriveStepSeed("campaign-2", 3)
	assert.NotEqual(t, a, d)
}

func TestSourceIsDeterministicForFixedSeed(t *testing.T) {
	seed := rng.DeriveStepSeed("campaign-1", 0)
	s1 := rng.New(seed)
	s2 := rng.New(seed)

	for i := 0; i < 20; i++ {
		assert.Equal(t, s1.Float64(), s2.Float64())
	}
}

func TestBetaSampleStaysInUnitInterval(t *testing.T) {
	s := rng.New(42)
	for i := 0; i < 500; i++ {
		v := s.Beta(2, 5)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestBetaSampleMeanApproximatesAlphaOverAlphaPlusBeta(t *testing.T) {
	s := rng.New(7)
	const alpha, beta = 8.0, 2.0
	sum := 0.0
	const n = 20000
	for i := 0; i < n; i++ {
		sum += s.Beta(alpha, beta)
	}
	mean := sum / n
	assert.InDelta(t, alpha/(alpha+beta), mean, 0.02)
}
