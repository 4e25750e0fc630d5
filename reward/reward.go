// Package reward maps an EvaluationResult to a reward in [0,1], or nil for
// inconclusive, per the closed RewardPolicy sum type described in the design
// notes: {Binary, Weighted}.
package reward

import "github.com/sentryforge/adversarypilot/result"

// Policy converts an evaluation result into a reward suitable for updating a
// Beta posterior. A nil return means the result is inconclusive and must not
// touch any posterior.
type Policy interface {
	ComputeReward(evaluation result.EvaluationResult) *float64
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func binaryReward(success *bool) *float64 {
	if success == nil {
		return nil
	}
	var r float64
	if *success {
		r = 1.0
	}
	return &r
}

// BinaryPolicy is the default, fully-tested policy: 1.0 for success, 0.0 for
// failure, nil for inconclusive (success == nil).
type BinaryPolicy struct{}

// ComputeReward implements Policy.
func (BinaryPolicy) ComputeReward(evaluation result.EvaluationResult) *float64 {
	return binaryReward(evaluation.Success)
}

// WeightedPolicy uses the evaluation's raw score as the reward when present,
// falling back to the binary reward when it is not.
//
// This is the open question the design notes leave unresolved: using a raw
// score as a reward assumes it is comparable across whatever mix of judges
// produced it. Consumers who enable this policy accept that cross-judge
// comparability depends on matching ComparabilityMetadata; nothing in this
// package normalizes across judge types.
type WeightedPolicy struct{}

// ComputeReward implements Policy.
func (WeightedPolicy) ComputeReward(evaluation result.EvaluationResult) *float64 {
	if evaluation.Score != nil {
		r := clamp01(*evaluation.Score)
		return &r
	}
	return binaryReward(evaluation.Success)
}
