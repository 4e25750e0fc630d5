package result_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sentryforge/adversarypilot/result"
	"github.com/sentryforge/adversarypilot/types"
)

func fullComparability() result.ComparabilityMetadata {
	return result.ComparabilityMetadata{
		TargetProfileHash:   "target-hash",
		TechniqueID:         "t1",
		TechniqueConfigHash: "config-hash",
		SuccessCriteriaHash: "criteria-hash",
		JudgeModelVersion:   "v1",
	}
}

func TestDeriveComparableGroupKeyRequiresAllThreeHashes(t *testing.T) {
	assert.NotEmpty(t, result.DeriveComparableGroupKey(fullComparability()))

	missingTarget := fullComparability()
	missingTarget.TargetProfileHash = ""
	assert.Empty(t, result.DeriveComparableGroupKey(missingTarget))

	missingConfig := fullComparability()
	missingConfig.TechniqueConfigHash = ""
	assert.Empty(t, result.DeriveComparableGroupKey(missingConfig))

	missingCriteria := fullComparability()
	missingCriteria.SuccessCriteriaHash = ""
	assert.Empty(t, result.DeriveComparableGroupKey(missingCriteria))
}

func TestDeriveComparableGroupKeyIsDeterministic(t *testing.T) {
	a := result.DeriveComparableGroupKey(fullComparability())
	b := result.DeriveComparableGroupKey(fullComparability())
	assert.Equal(t, a, b)
}

func TestDeriveComparableGroupKeyDiffersOnJudgeVersion(t *testing.T) {
	a := fullComparability()
	b := fullComparability()
	b.JudgeModelVersion = "v2"

	assert.NotEqual(t, result.DeriveComparableGroupKey(a), result.DeriveComparableGroupKey(b))
}

func TestHashTargetProfileIsDeterministicAndOrderIndependentOverGoals(t *testing.T) {
	a := types.TargetProfile{
		Name:        "acme",
		TargetType:  types.TargetChatbot,
		AccessLevel: types.AccessGrayBox,
		Goals:       []types.Goal{types.GoalJailbreak, types.GoalExtraction},
	}
	b := a
	b.Goals = []types.Goal{types.GoalExtraction, types.GoalJailbreak}

	assert.Equal(t, result.HashTargetProfile(a), result.HashTargetProfile(b))
}

func TestHashTargetProfileDiffersOnAccessLevel(t *testing.T) {
	a := types.TargetProfile{
		Name:        "acme",
		TargetType:  types.TargetChatbot,
		AccessLevel: types.AccessGrayBox,
		Goals:       []types.Goal{types.GoalJailbreak},
	}
	b := a
	b.AccessLevel = types.AccessWhiteBox

	assert.NotEqual(t, result.HashTargetProfile(a), result.HashTargetProfile(b))
}
