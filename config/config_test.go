package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryforge/adversarypilot/config"
)

func TestDefaultMatchesNamedConstants(t *testing.T) {
	c := config.Default()

	assert.Equal(t, 1.0, c.Weights.Compatibility)
	assert.Equal(t, 0.8, c.Weights.AccessFit)
	assert.Equal(t, 8.0, c.Adaptive.PriorStrength)
	assert.True(t, c.Adaptive.UseBenchmarkPriors)
	assert.True(t, c.Correlation.Enabled)
	assert.Equal(t, 0.3, c.Correlation.Spillover)
	assert.Equal(t, 50, c.Sensitivity.NumSamples)
}

func TestDefaultAppliesOptions(t *testing.T) {
	c := config.Default(config.WithPriorStrength(4), config.WithSpillover(0.1))

	assert.Equal(t, 4.0, c.Adaptive.PriorStrength)
	assert.Equal(t, 0.1, c.Correlation.Spillover)
}

func TestWithWeightsOverridesWholesale(t *testing.T) {
	custom := config.ScorerWeights{Compatibility: 2.0}
	c := config.Default(config.WithWeights(custom))

	assert.Equal(t, 2.0, c.Weights.Compatibility)
	assert.Equal(t, 0.0, c.Weights.AccessFit)
}

func TestWithBenchmarkPriorsToggles(t *testing.T) {
	c := config.Default(config.WithBenchmarkPriors(false))
	assert.False(t, c.Adaptive.UseBenchmarkPriors)
}

func TestParsePartialDocumentOnlyOverlaysNamedSections(t *testing.T) {
	yaml := []byte(`
adaptive:
  prior_strength: 3.5
`)
	c, err := config.Parse(yaml)
	require.NoError(t, err)

	assert.Equal(t, 3.5, c.Adaptive.PriorStrength)
	// Untouched sections keep their defaults.
	assert.Equal(t, 1.0, c.Weights.Compatibility)
	assert.Equal(t, 0.3, c.Correlation.Spillover)
	assert.Equal(t, 50, c.Sensitivity.NumSamples)
}

func TestParsePartialAdaptiveSectionLeavesSiblingsAtDefault(t *testing.T) {
	yaml := []byte(`
adaptive:
  prior_strength: 4
`)
	c, err := config.Parse(yaml)
	require.NoError(t, err)

	assert.Equal(t, 4.0, c.Adaptive.PriorStrength)
	// A single-field adaptive override must not zero its siblings, since
	// MaxCost=0 would make PassesHardFilters reject every candidate.
	assert.Equal(t, 1.0, c.Adaptive.MaxCost)
	assert.Equal(t, 1.0, c.Adaptive.InfoGainWeight)
	assert.Equal(t, 1.0, c.Adaptive.DetectionWeight)
	assert.Equal(t, 1.0, c.Adaptive.CostWeight)
	assert.Equal(t, 0.5, c.Adaptive.BlendWeight)
	assert.True(t, c.Adaptive.UseBenchmarkPriors)
	assert.Equal(t, 1.5, c.Adaptive.ProbeInfoGainMultiplier)
	assert.Equal(t, 0.7, c.Adaptive.ProbeCostMultiplier)
	assert.Equal(t, 0.3, c.Adaptive.ExploitInfoGainMultiplier)
	assert.Equal(t, 1.2, c.Adaptive.ExploitCostMultiplier)
}

func TestParseExplicitFalseBoolOverlaysCorrectly(t *testing.T) {
	yaml := []byte(`
adaptive:
  use_benchmark_priors: false
`)
	c, err := config.Parse(yaml)
	require.NoError(t, err)

	assert.False(t, c.Adaptive.UseBenchmarkPriors)
	// Sibling fields, including the numeric ones that would look "zero" if
	// the whole section were swapped in, must be untouched.
	assert.Equal(t, 8.0, c.Adaptive.PriorStrength)
	assert.Equal(t, 1.0, c.Adaptive.MaxCost)
}

func TestParseFullWeightsSectionReplacesDefaults(t *testing.T) {
	yaml := []byte(`
weights:
  compatibility: 2.0
  access_fit: 0.1
  goal_fit: 0.1
  defense_bypass_likelihood: 0.1
  signal_gain: 0.1
  cost_penalty: 0.1
  detection_risk_penalty: 0.1
`)
	c, err := config.Parse(yaml)
	require.NoError(t, err)

	assert.Equal(t, 2.0, c.Weights.Compatibility)
	assert.Equal(t, 0.1, c.Weights.AccessFit)
}

func TestParseInvalidYAMLReturnsError(t *testing.T) {
	_, err := config.Parse([]byte("not: valid: yaml: : :"))
	assert.Error(t, err)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := config.Load("/nonexistent/path/to/config.yaml")
	assert.Error(t, err)
}

func TestScorerWeightsAsMapAndWithWeight(t *testing.T) {
	w := config.Default().Weights
	m := w.AsMap()
	assert.Equal(t, w.Compatibility, m["compatibility"])
	assert.Equal(t, w.DetectionRiskPenalty, m["detection_risk_penalty"])

	updated := w.WithWeight("cost_penalty", 9.0)
	assert.Equal(t, 9.0, updated.CostPenalty)
	// Unknown names are ignored rather than erroring.
	unchanged := w.WithWeight("not_a_weight", 9.0)
	assert.Equal(t, w, unchanged)
}

func TestScorerWeightsPositiveAndPenaltySums(t *testing.T) {
	w := config.Default().Weights
	assert.InDelta(t, w.Compatibility+w.AccessFit+w.GoalFit+w.DefenseBypassLikelihood+w.SignalGain, w.PositiveSum(), 1e-9)
	assert.InDelta(t, w.CostPenalty+w.DetectionRiskPenalty, w.PenaltySum(), 1e-9)
}
