package correlation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryforge/adversarypilot/correlation"
	"github.com/sentryforge/adversarypilot/posterior"
	"github.com/sentryforge/adversarypilot/types"
)

func familyCatalog() []types.AttackTechnique {
	return []types.AttackTechnique{
		{ID: "t1", Domain: types.DomainLLM, Surface: types.SurfaceGuardrail, Tags: []string{"jailbreak"}},
		{ID: "t2", Domain: types.DomainLLM, Surface: types.SurfaceGuardrail, Tags: []string{"jailbreak"}},
		{ID: "t3", Domain: types.DomainLLM, Surface: types.SurfaceModel, Tags: []string{"extraction"}},
	}
}

func TestSiblingsExcludesSelfAndOtherFamilies(t *testing.T) {
	fc := correlation.New(0.3)
	fc.RegisterTechniques(familyCatalog())

	siblings := fc.Siblings("t1")
	assert.Equal(t, []string{"t2"}, siblings)
	assert.Empty(t, fc.Siblings("t3"))
}

func TestSiblingsUnknownTechniqueReturnsNil(t *testing.T) {
	fc := correlation.New(0.3)
	fc.RegisterTechniques(familyCatalog())
	assert.Nil(t, fc.Siblings("unknown"))
}

func TestPropagateAppliesSpilloverToSiblingsOnly(t *testing.T) {
	fc := correlation.New(0.3)
	fc.RegisterTechniques(familyCatalog())
	state := posterior.NewState(8.0)

	fc.Propagate("t1", 1.0, state)

	sib, ok := state.Get("t2")
	require.True(t, ok)
	// Sibling initialized from neutral 0.5 prior, k=8: alpha=5, beta=5, then
	// +0.3*1.0 alpha, +0.3*0.0 beta.
	assert.InDelta(t, 5.3, sib.Alpha, 1e-9)
	assert.InDelta(t, 5.0, sib.Beta, 1e-9)
	assert.Zero(t, sib.Observations)

	_, observedInitialized := state.Get("t1")
	assert.False(t, observedInitialized, "Propagate must not touch the observed technique's own posterior")
}

func TestPropagateWithNoSiblingsIsNoop(t *testing.T) {
	fc := correlation.New(0.3)
	fc.RegisterTechniques(familyCatalog())
	state := posterior.NewState(8.0)

	fc.Propagate("t3", 1.0, state)
	assert.Empty(t, state.Posteriors)
}

func TestRegisterTechniquesRebuildsIndexFromScratch(t *testing.T) {
	fc := correlation.New(0.3)
	fc.RegisterTechniques(familyCatalog())
	fc.RegisterTechniques([]types.AttackTechnique{
		{ID: "solo", Domain: types.DomainAgent, Surface: types.SurfaceTool, Tags: []string{"agent"}},
	})

	assert.Nil(t, fc.Siblings("t1"))
	assert.Empty(t, fc.Siblings("solo"))
}
