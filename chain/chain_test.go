package chain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryforge/adversarypilot/chain"
	"github.com/sentryforge/adversarypilot/result"
	"github.com/sentryforge/adversarypilot/types"
)

func chainCatalog() []types.AttackTechnique {
	return []types.AttackTechnique{
		{ID: "recon1", Name: "Recon", Domain: types.DomainLLM, Phase: types.PhaseRecon, Surface: types.SurfaceModel, SupportedGoals: []types.Goal{types.GoalJailbreak}, SupportedTargetTypes: []types.TargetType{types.TargetChatbot}, BaseCost: 1},
		{ID: "probe1", Name: "Probe", Domain: types.DomainLLM, Phase: types.PhaseProbe, Surface: types.SurfaceModel, SupportedGoals: []types.Goal{types.GoalJailbreak}, SupportedTargetTypes: []types.TargetType{types.TargetChatbot}, BaseCost: 1},
		{ID: "exploit-defended", Name: "ExploitDefended", Domain: types.DomainLLM, Phase: types.PhaseExploit, Surface: types.SurfaceGuardrail, SupportedGoals: []types.Goal{types.GoalJailbreak}, SupportedTargetTypes: []types.TargetType{types.TargetChatbot}, BaseCost: 1},
		{ID: "exploit-clean", Name: "ExploitClean", Domain: types.DomainLLM, Phase: types.PhaseExploit, Surface: types.SurfaceModel, SupportedGoals: []types.Goal{types.GoalJailbreak}, SupportedTargetTypes: []types.TargetType{types.TargetChatbot}, BaseCost: 2},
		{ID: "exploit-fallback", Name: "ExploitFallback", Domain: types.DomainLLM, Phase: types.PhaseExploit, Surface: types.SurfaceModel, SupportedGoals: []types.Goal{types.GoalJailbreak}, SupportedTargetTypes: []types.TargetType{types.TargetChatbot}, BaseCost: 3},
	}
}

func chainTarget() types.TargetProfile {
	return types.TargetProfile{
		Name:        "chatbot",
		TargetType:  types.TargetChatbot,
		AccessLevel: types.AccessBlackBox,
		Goals:       []types.Goal{types.GoalJailbreak},
	}
}

func boolTruePtr() *bool { v := true; return &v }
func boolFalsePtr() *bool { v := false; return &v }

func TestPlanOrdersStagesByKillChainPhase(t *testing.T) {
	cp := chain.New(5)
	chains := cp.Plan(chainCatalog(), chainTarget(), nil)

	require.Len(t, chains, 1)
	c := chains[0]
	require.GreaterOrEqual(t, len(c.Stages), 2)
	assert.Equal(t, types.PhaseRecon, c.Stages[0].Phase)
	assert.Equal(t, types.PhaseProbe, c.Stages[1].Phase)
	for _, s := range c.Stages[2:] {
		assert.Equal(t, types.PhaseExploit, s.Phase)
	}
}

func TestPlanAvoidsDefendedSurfaceWhenAlternativeExists(t *testing.T) {
	cp := chain.New(5)
	priors := []result.EvaluationResult{
		{Comparability: result.ComparabilityMetadata{TechniqueID: "exploit-defended"}, Success: boolFalsePtr()},
		{Comparability: result.ComparabilityMetadata{TechniqueID: "exploit-defended"}, Success: boolFalsePtr()},
	}
	chains := cp.Plan(chainCatalog(), chainTarget(), priors)

	require.Len(t, chains, 1)
	var exploitIDs []string
	for _, s := range chains[0].Stages {
		if s.Phase == types.PhaseExploit {
			exploitIDs = append(exploitIDs, s.TechniqueID)
		}
	}
	require.NotEmpty(t, exploitIDs)
	assert.Equal(t, "exploit-clean", exploitIDs[0])
}

func TestPlanCapsExploitStagesAtTwo(t *testing.T) {
	cp := chain.New(5)
	chains := cp.Plan(chainCatalog(), chainTarget(), nil)

	require.Len(t, chains, 1)
	exploitCount := 0
	for _, s := range chains[0].Stages {
		if s.Phase == types.PhaseExploit {
			exploitCount++
		}
	}
	assert.LessOrEqual(t, exploitCount, 2)
}

func TestSuggestEscalationNamesTechniquesOnTheNextSurface(t *testing.T) {
	cp := chain.New(5)
	catalog := chainCatalog()
	chains := cp.Plan(catalog, chainTarget(), nil)
	require.Len(t, chains, 1)

	// Escalation for a jailbreak goal from "model" falls back to the default
	// adjacent-surface order, which has no other candidates in this small
	// catalog, so the direct call below (a synthetic chain ending on the
	// guardrail technique, taking the guardrail->model path) is what
	// exercises a named escalation table entry.
	synthetic := chain.AttackChain{
		Goal: types.GoalJailbreak,
		Stages: []chain.ChainStage{
			{Phase: types.PhaseExploit, TechniqueID: "exploit-defended"},
		},
	}
	suggestions := chain.SuggestEscalation(synthetic, nil, catalog)
	assert.Contains(t, suggestions, "exploit-clean")
}

func TestSuggestEscalationEmptyChainReturnsNil(t *testing.T) {
	assert.Nil(t, chain.SuggestEscalation(chain.AttackChain{}, nil, chainCatalog()))
}

func TestSuggestEscalationSkipsDefendedSurfaces(t *testing.T) {
	catalog := chainCatalog()
	synthetic := chain.AttackChain{
		Goal: types.GoalJailbreak,
		Stages: []chain.ChainStage{
			{Phase: types.PhaseExploit, TechniqueID: "exploit-defended"},
		},
	}
	priors := []result.EvaluationResult{
		{Comparability: result.ComparabilityMetadata{TechniqueID: "exploit-defended"}, Success: boolFalsePtr()},
		{Comparability: result.ComparabilityMetadata{TechniqueID: "exploit-defended"}, Success: boolFalsePtr()},
	}
	suggestions := chain.SuggestEscalation(synthetic, priors, catalog)
	assert.NotContains(t, suggestions, "exploit-defended")
}
