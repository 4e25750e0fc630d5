package result_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sentryforge/adversarypilot/result"
)

func cleanPair(id string) result.Pair {
	return result.Pair{
		Attempt:    result.AttemptResult{ID: id, TechniqueID: "t1"},
		Evaluation: result.EvaluationResult{AttemptID: id, Success: boolPtr(true)},
	}
}

func boolPtr(b bool) *bool { return &b }

func TestValidateCleanBatch(t *testing.T) {
	v := result.NewValidator()
	batch := v.Validate([]result.Pair{cleanPair("a1"), cleanPair("a2")})

	assert.Equal(t, result.QualityClean, batch.Quality)
	assert.Equal(t, 1.0, batch.Confidence)
	assert.Empty(t, batch.Warnings)
}

func TestValidateRejectsMissingIDs(t *testing.T) {
	v := result.NewValidator()
	pairs := []result.Pair{
		{Attempt: result.AttemptResult{}, Evaluation: result.EvaluationResult{}},
	}
	batch := v.Validate(pairs)

	assert.Equal(t, result.QualityRejected, batch.Quality)
	assert.NotEmpty(t, batch.Warnings)
}

func TestValidateRejectsMismatchedAttemptID(t *testing.T) {
	v := result.NewValidator()
	pairs := []result.Pair{
		{
			Attempt:    result.AttemptResult{ID: "a1", TechniqueID: "t1"},
			Evaluation: result.EvaluationResult{AttemptID: "different"},
		},
	}
	batch := v.Validate(pairs)
	assert.Equal(t, result.QualityRejected, batch.Quality)
}

func TestValidateRejectsScoreOutOfRange(t *testing.T) {
	v := result.NewValidator()
	score := 1.5
	pairs := []result.Pair{
		{
			Attempt:    result.AttemptResult{ID: "a1", TechniqueID: "t1"},
			Evaluation: result.EvaluationResult{AttemptID: "a1", Score: &score},
		},
	}
	batch := v.Validate(pairs)
	assert.Equal(t, result.QualityRejected, batch.Quality)
}

func TestValidateFlagsHighInconclusiveRateAsSuspectNotRejected(t *testing.T) {
	v := result.NewValidator()
	pairs := []result.Pair{
		{Attempt: result.AttemptResult{ID: "a1", TechniqueID: "t1"}, Evaluation: result.EvaluationResult{AttemptID: "a1"}},
		{Attempt: result.AttemptResult{ID: "a2", TechniqueID: "t1"}, Evaluation: result.EvaluationResult{AttemptID: "a2"}},
		{Attempt: result.AttemptResult{ID: "a3", TechniqueID: "t1"}, Evaluation: result.EvaluationResult{AttemptID: "a3", Success: boolPtr(true)}},
	}
	batch := v.Validate(pairs)

	assert.Equal(t, result.QualitySuspect, batch.Quality)
	assert.NotEmpty(t, batch.Warnings)
}

func TestValidateEmptyBatchIsClean(t *testing.T) {
	v := result.NewValidator()
	batch := v.Validate(nil)
	assert.Equal(t, result.QualityClean, batch.Quality)
	assert.Equal(t, 1.0, batch.Confidence)
}

func TestWithRulesAppendsCustomRuleAndWorstVerdictWins(t *testing.T) {
	v := result.NewValidator().WithRules(func(pairs []result.Pair) (result.IngestQuality, float64, []string) {
		return result.QualityRejected, 0.0, []string{"custom rule always rejects"}
	})
	batch := v.Validate([]result.Pair{cleanPair("a1")})

	assert.Equal(t, result.QualityRejected, batch.Quality)
	assert.Contains(t, batch.Warnings, "custom rule always rejects")
}
