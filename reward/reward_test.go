package reward_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryforge/adversarypilot/reward"
	"github.com/sentryforge/adversarypilot/result"
)

func boolPtr(b bool) *bool       { return &b }
func floatPtr(f float64) *float64 { return &f }

func TestBinaryPolicySuccessAndFailure(t *testing.T) {
	p := reward.BinaryPolicy{}

	r := p.ComputeReward(result.EvaluationResult{Success: boolPtr(true)})
	require.NotNil(t, r)
	assert.Equal(t, 1.0, *r)

	r = p.ComputeReward(result.EvaluationResult{Success: boolPtr(false)})
	require.NotNil(t, r)
	assert.Equal(t, 0.0, *r)
}

func TestBinaryPolicyInconclusiveReturnsNil(t *testing.T) {
	p := reward.BinaryPolicy{}
	r := p.ComputeReward(result.EvaluationResult{})
	assert.Nil(t, r)
}

func TestWeightedPolicyPrefersScoreOverBinary(t *testing.T) {
	p := reward.WeightedPolicy{}
	r := p.ComputeReward(result.EvaluationResult{Success: boolPtr(false), Score: floatPtr(0.73)})
	require.NotNil(t, r)
	assert.Equal(t, 0.73, *r)
}

func TestWeightedPolicyClampsScoreToUnitRange(t *testing.T) {
	p := reward.WeightedPolicy{}

	r := p.ComputeReward(result.EvaluationResult{Score: floatPtr(1.4)})
	require.NotNil(t, r)
	assert.Equal(t, 1.0, *r)

	r = p.ComputeReward(result.EvaluationResult{Score: floatPtr(-0.2)})
	require.NotNil(t, r)
	assert.Equal(t, 0.0, *r)
}

func TestWeightedPolicyFallsBackToBinaryWithoutScore(t *testing.T) {
	p := reward.WeightedPolicy{}
	r := p.ComputeReward(result.EvaluationResult{Success: boolPtr(true)})
	require.NotNil(t, r)
	assert.Equal(t, 1.0, *r)
}

func TestWeightedPolicyInconclusiveWithoutScoreOrSuccess(t *testing.T) {
	p := reward.WeightedPolicy{}
	r := p.ComputeReward(result.EvaluationResult{})
	assert.Nil(t, r)
}
