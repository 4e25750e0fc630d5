package analyzer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryforge/adversarypilot/analyzer"
	"github.com/sentryforge/adversarypilot/result"
	"github.com/sentryforge/adversarypilot/types"
)

func sampleCatalog() []types.AttackTechnique {
	return []types.AttackTechnique{
		{ID: "t1", Name: "Prompt Injection", Domain: types.DomainLLM, Phase: types.PhaseExploit, Surface: types.SurfaceModel, Tags: []string{"injection"}},
		{ID: "t2", Name: "Persona Jailbreak", Domain: types.DomainLLM, Phase: types.PhaseExploit, Surface: types.SurfaceGuardrail, Tags: []string{"persona"}},
	}
}

func evalFor(techniqueID string, success *bool, quality float64) result.EvaluationResult {
	return result.EvaluationResult{
		Comparability:   result.ComparabilityMetadata{TechniqueID: techniqueID},
		Success:         success,
		EvidenceQuality: quality,
	}
}

func boolPtr(b bool) *bool { return &b }

func surfaceAssessment(t *testing.T, a analyzer.Assessment, surface types.Surface) analyzer.SurfaceAssessment {
	t.Helper()
	for _, s := range a.Surfaces {
		if s.Surface == surface {
			return s
		}
	}
	t.Fatalf("no assessment for surface %s", surface)
	return analyzer.SurfaceAssessment{}
}

func TestAnalyzeReturnsOneAssessmentPerCanonicalSurface(t *testing.T) {
	a := analyzer.New(3)
	assessment, quality := a.Analyze(nil, nil)

	require.Len(t, assessment.Surfaces, len(types.AllSurfaces))
	for _, s := range assessment.Surfaces {
		assert.True(t, s.InsufficientEvidence)
		assert.Zero(t, s.Attempts)
	}
	assert.Nil(t, assessment.PrimaryWeakness)
	// No evidence, coverage or power, but no comparability warnings either:
	// only the 0.20-weighted comparability term contributes.
	assert.InDelta(t, 0.20, quality.OverallScore, 1e-9)
}

func TestAnalyzeFlagsInsufficientEvidenceBelowMinAttempts(t *testing.T) {
	a := analyzer.New(3)
	evaluations := []result.EvaluationResult{
		evalFor("t1", boolPtr(true), 0.8),
	}
	assessment, _ := a.Analyze(evaluations, sampleCatalog())

	require.Len(t, assessment.Surfaces, len(types.AllSurfaces))
	model := surfaceAssessment(t, assessment, types.SurfaceModel)
	assert.True(t, model.InsufficientEvidence)
	assert.Equal(t, 1, model.Attempts)
	assert.Nil(t, assessment.PrimaryWeakness)
}

func TestAnalyzeComputesWilsonCenterWithinBounds(t *testing.T) {
	a := analyzer.New(3)
	evaluations := []result.EvaluationResult{
		evalFor("t1", boolPtr(true), 0.9),
		evalFor("t1", boolPtr(true), 0.9),
		evalFor("t1", boolPtr(false), 0.9),
		evalFor("t1", boolPtr(false), 0.9),
	}
	assessment, _ := a.Analyze(evaluations, sampleCatalog())

	s := surfaceAssessment(t, assessment, types.SurfaceModel)
	assert.False(t, s.InsufficientEvidence)
	assert.GreaterOrEqual(t, s.WilsonCenter, 0.0)
	assert.LessOrEqual(t, s.WilsonCenter, 1.0)
	assert.LessOrEqual(t, s.WilsonLow, s.WilsonCenter)
	assert.GreaterOrEqual(t, s.WilsonHigh, s.WilsonCenter)
}

func TestAnalyzeWilsonCenterMatchesClosedForm(t *testing.T) {
	// 5 attempts, 3 successes, z=1.96: center=(p+z^2/2n)/(1+z^2/n) = 0.556551.
	a := analyzer.New(3)
	evaluations := []result.EvaluationResult{
		evalFor("t1", boolPtr(true), 1.0),
		evalFor("t1", boolPtr(true), 1.0),
		evalFor("t1", boolPtr(true), 1.0),
		evalFor("t1", boolPtr(false), 1.0),
		evalFor("t1", boolPtr(false), 1.0),
	}
	assessment, _ := a.Analyze(evaluations, sampleCatalog())
	s := surfaceAssessment(t, assessment, types.SurfaceModel)

	assert.InDelta(t, 0.556551, s.WilsonCenter, 0.0005)
	assert.Less(t, s.WilsonLow, s.WilsonCenter)
	assert.Greater(t, s.WilsonHigh, s.WilsonCenter)
}

func TestAnalyzePicksHighestRiskSurfaceAsPrimaryWeakness(t *testing.T) {
	a := analyzer.New(2)
	evaluations := []result.EvaluationResult{
		evalFor("t1", boolPtr(true), 1.0),
		evalFor("t1", boolPtr(true), 1.0),
		evalFor("t2", boolPtr(false), 1.0),
		evalFor("t2", boolPtr(false), 1.0),
	}
	assessment, _ := a.Analyze(evaluations, sampleCatalog())

	require.NotNil(t, assessment.PrimaryWeakness)
	assert.Equal(t, types.SurfaceModel, *assessment.PrimaryWeakness)
}

func TestAnalyzeIgnoresEvaluationsForUnknownTechniques(t *testing.T) {
	a := analyzer.New(3)
	evaluations := []result.EvaluationResult{
		evalFor("unknown", boolPtr(true), 1.0),
	}
	assessment, _ := a.Analyze(evaluations, sampleCatalog())
	for _, s := range assessment.Surfaces {
		assert.Zero(t, s.Attempts)
	}
}

func TestComputeAssessmentQualityImprovesWithMoreEvidence(t *testing.T) {
	a := analyzer.New(3)
	thin, _ := a.Analyze([]result.EvaluationResult{
		evalFor("t1", boolPtr(true), 0.5),
	}, sampleCatalog())

	var evals []result.EvaluationResult
	for i := 0; i < 20; i++ {
		evals = append(evals, evalFor("t1", boolPtr(i%2 == 0), 0.9))
		evals = append(evals, evalFor("t2", boolPtr(i%3 == 0), 0.9))
	}
	rich, _ := a.Analyze(evals, sampleCatalog())

	thinQuality := analyzer.ComputeAssessmentQuality(thin.Surfaces, nil)
	richQuality := analyzer.ComputeAssessmentQuality(rich.Surfaces, nil)
	assert.Greater(t, richQuality.OverallScore, thinQuality.OverallScore)
}

func TestComputeAssessmentQualityPenalizesWarnings(t *testing.T) {
	a := analyzer.New(3)
	assessment, _ := a.Analyze([]result.EvaluationResult{
		evalFor("t1", boolPtr(true), 0.9),
		evalFor("t1", boolPtr(true), 0.9),
		evalFor("t1", boolPtr(true), 0.9),
	}, sampleCatalog())

	clean := analyzer.ComputeAssessmentQuality(assessment.Surfaces, nil)
	warned := analyzer.ComputeAssessmentQuality(assessment.Surfaces, []string{"mismatched judge", "stale comparability hash"})
	assert.Less(t, warned.ComparabilityScore, clean.ComparabilityScore)
	assert.Less(t, warned.OverallScore, clean.OverallScore)
}

func TestComputeAssessmentQualityEmptyAssessmentsIsZeroValue(t *testing.T) {
	q := analyzer.ComputeAssessmentQuality(nil, nil)
	assert.Equal(t, analyzer.AssessmentQuality{}, q)
}
